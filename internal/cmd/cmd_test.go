package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowtransfer/snowtransfer/internal/rest"
)

func TestConfigShowRedactsToken(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "show", "--token", "Bot secret"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "[redacted]")
	assert.Contains(t, out.String(), "max_attempts: 3")
	assert.Contains(t, out.String(), "reaction_floor: 250ms")
	assert.NotContains(t, out.String(), "secret")
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc", "today")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "snowtransfer 1.2.3\n", out.String())
}

func TestRequestPayload(t *testing.T) {
	t.Cleanup(func() {
		requestData, requestReason, requestFile = "", "", ""
	})

	requestData = `{"content":"hi"}`
	requestReason = "cleanup"
	payload, err := requestPayload()
	require.NoError(t, err)
	assert.Equal(t, rest.EncodingJSON, payload.Encoding)
	assert.Equal(t, map[string]any{"content": "hi", "reason": "cleanup"}, payload.Data)

	path := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))
	requestFile = path
	payload, err = requestPayload()
	require.NoError(t, err)
	assert.Equal(t, rest.EncodingMultipart, payload.Encoding)
	assert.Equal(t, rest.File{Name: "cat.png", Data: []byte("png")}, payload.Data[rest.FileKey])

	requestData = `[1]`
	_, err = requestPayload()
	assert.Error(t, err)
}

func TestVersionExtendedReportsBuildUserAgent(t *testing.T) {
	SetVersionInfo("1.2.3", "abc", "today")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--extended"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		extended = false
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "User-Agent: DiscordBot (https://github.com/snowtransfer/snowtransfer, 1.2.3)")
}
