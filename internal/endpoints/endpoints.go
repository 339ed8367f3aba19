// Package endpoints builds request paths for the Discord REST API and maps
// them onto the route templates the remote uses as rate-limit buckets.
package endpoints

import (
	"fmt"
	"net/url"
)

const (
	// BaseHost is the default API host.
	BaseHost = "https://discordapp.com"
	// BaseURL is the versioned API prefix appended to the host.
	BaseURL = "/api/v6"
)

const (
	Gateway    = "/gateway"
	GatewayBot = "/gateway/bot"
)

// OAuth2Application returns the path of an OAuth2 application. Pass "@me" for
// the application owning the token.
func OAuth2Application(appID string) string {
	return fmt.Sprintf("/oauth2/applications/%s", appID)
}

func Channel(channelID string) string {
	return fmt.Sprintf("/channels/%s", channelID)
}

func ChannelMessages(channelID string) string {
	return fmt.Sprintf("/channels/%s/messages", channelID)
}

func ChannelMessage(channelID, messageID string) string {
	return fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)
}

// ChannelMessageReaction returns the reaction collection of a message for
// one emoji. The emoji is path-escaped.
func ChannelMessageReaction(channelID, messageID, emoji string) string {
	return fmt.Sprintf("/channels/%s/messages/%s/reactions/%s", channelID, messageID, url.PathEscape(emoji))
}

// ChannelMessageReactionUser addresses a single user's reaction. Use "@me"
// for the current user.
func ChannelMessageReactionUser(channelID, messageID, emoji, userID string) string {
	return ChannelMessageReaction(channelID, messageID, emoji) + "/" + userID
}

func GuildBans(guildID string) string {
	return fmt.Sprintf("/guilds/%s/bans", guildID)
}

func GuildBan(guildID, userID string) string {
	return fmt.Sprintf("/guilds/%s/bans/%s", guildID, userID)
}

func GuildPrune(guildID string) string {
	return fmt.Sprintf("/guilds/%s/prune", guildID)
}

func Webhook(webhookID string) string {
	return fmt.Sprintf("/webhooks/%s", webhookID)
}

func WebhookToken(webhookID, token string) string {
	return fmt.Sprintf("/webhooks/%s/%s", webhookID, token)
}
