// Package api groups thin wrappers that build a path and forward to the
// rest dispatcher.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/snowtransfer/snowtransfer/internal/endpoints"
	"github.com/snowtransfer/snowtransfer/internal/rest"
)

// GatewayData describes where to connect to the gateway.
type GatewayData struct {
	URL    string `json:"url"`
	Shards int    `json:"shards,omitempty"`
}

// OAuthApplication is the subset of an OAuth2 application the client uses.
type OAuthApplication struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description"`
	BotPublic   bool   `json:"bot_public"`
	Owner       struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"owner"`
}

// BotMethods exposes the bot-specific endpoints.
type BotMethods struct {
	dispatcher *rest.Dispatcher
}

func NewBotMethods(d *rest.Dispatcher) *BotMethods {
	return &BotMethods{dispatcher: d}
}

// GetGateway returns the gateway URL to connect to.
func (m *BotMethods) GetGateway(ctx context.Context) (GatewayData, error) {
	return rest.Do[GatewayData](ctx, m.dispatcher, endpoints.Gateway, http.MethodGet, rest.JSON(nil))
}

// GetGatewayBot returns the gateway URL and the recommended shard count.
func (m *BotMethods) GetGatewayBot(ctx context.Context) (GatewayData, error) {
	return rest.Do[GatewayData](ctx, m.dispatcher, endpoints.GatewayBot, http.MethodGet, rest.JSON(nil))
}

// GetOAuthApplication returns an OAuth2 application; an empty appID means
// the application owning the token.
func (m *BotMethods) GetOAuthApplication(ctx context.Context, appID string) (OAuthApplication, error) {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		appID = "@me"
	}
	return rest.Do[OAuthApplication](ctx, m.dispatcher, endpoints.OAuth2Application(appID), http.MethodGet, rest.JSON(nil))
}
