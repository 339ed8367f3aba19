package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snowtransfer/snowtransfer/internal/rest"
)

func newBotMethods(t *testing.T, handler http.HandlerFunc) *BotMethods {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	d := rest.NewDispatcher(rest.NewRatelimiter(), "Bot test", rest.WithBaseURL(server.URL), rest.WithHTTPClient(server.Client()))
	return NewBotMethods(d)
}

func TestGetGatewayBot(t *testing.T) {
	methods := newBotMethods(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/gateway/bot", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"url":"wss://gateway.discord.gg","shards":3}`))
	})

	data, err := methods.GetGatewayBot(context.Background())
	require.NoError(t, err)
	require.Equal(t, GatewayData{URL: "wss://gateway.discord.gg", Shards: 3}, data)
}

func TestGetGateway(t *testing.T) {
	methods := newBotMethods(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/gateway", r.URL.Path)
		_, _ = w.Write([]byte(`{"url":"wss://gateway.discord.gg"}`))
	})

	data, err := methods.GetGateway(context.Background())
	require.NoError(t, err)
	require.Equal(t, "wss://gateway.discord.gg", data.URL)
	require.Zero(t, data.Shards)
}

func TestGetOAuthApplicationDefaultsToSelf(t *testing.T) {
	methods := newBotMethods(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/applications/@me", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"1","name":"snow","owner":{"id":"2","username":"wolke"}}`))
	})

	app, err := methods.GetOAuthApplication(context.Background(), " ")
	require.NoError(t, err)
	require.Equal(t, "snow", app.Name)
	require.Equal(t, "wolke", app.Owner.Username)
}

func TestGetOAuthApplicationSurfacesRemoteError(t *testing.T) {
	methods := newBotMethods(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"401: Unauthorized"}`))
	})

	_, err := methods.GetOAuthApplication(context.Background(), "42")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 401")
}
