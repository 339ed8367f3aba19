package endpoints

import (
	"net/http"
	"strings"
)

// Route is a resolved request target.
type Route struct {
	// Path is the concrete path sent on the wire.
	Path string
	// BucketKey is the route template shared by every path that draws from
	// the same remote rate-limit budget.
	BucketKey string
}

// majorParameters keep their ID in the bucket key: the remote tracks limits
// per channel, guild and webhook.
var majorParameters = map[string]bool{
	"channels": true,
	"guilds":   true,
	"webhooks": true,
}

const (
	idPlaceholder    = ":id"
	tokenPlaceholder = ":token"
	minWebhookToken  = 64
)

// Resolve maps a concrete path and method to its route.
func Resolve(path, method string) Route {
	concrete := path
	if i := strings.IndexAny(concrete, "?#"); i >= 0 {
		concrete = concrete[:i]
	}
	return Route{Path: path, BucketKey: BucketKey(concrete, method)}
}

// BucketKey collapses the variable segments of path into placeholders.
func BucketKey(path, method string) string {
	segments := strings.Split(path, "/")
	for i := 1; i < len(segments); i++ {
		prev := segments[i-1]
		seg := segments[i]
		switch {
		case prev == "reactions":
			segments[i] = idPlaceholder
		case isSnowflake(seg) && prev != "" && !isSnowflake(prev) && !majorParameters[prev]:
			segments[i] = idPlaceholder
		case i == 3 && segments[1] == "webhooks" && len(seg) >= minWebhookToken && isTokenSegment(seg):
			segments[i] = tokenPlaceholder
		}
	}
	route := strings.Join(segments, "/")

	// Message deletion has its own budget separate from edits and fetches.
	if strings.EqualFold(method, http.MethodDelete) && strings.HasSuffix(route, "/messages/"+idPlaceholder) {
		route = http.MethodDelete + " " + route
	}
	return route
}

// IsReactionRoute reports whether key belongs to the reaction endpoints,
// which carry a stricter remote sub-limit than their headers advertise.
func IsReactionRoute(key string) bool {
	return strings.Contains(key, "/reactions/"+idPlaceholder)
}

// UsesQueryParams reports whether the payload for a request is sent as query
// parameters rather than a JSON body.
func UsesQueryParams(path, method string) bool {
	if strings.EqualFold(method, http.MethodGet) {
		return true
	}
	return strings.Contains(path, "/bans") || strings.Contains(path, "/prune")
}

func isSnowflake(seg string) bool {
	if len(seg) < 17 || len(seg) > 20 {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isTokenSegment(seg string) bool {
	for _, r := range seg {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
