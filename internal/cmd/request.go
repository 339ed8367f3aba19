package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/snowtransfer/snowtransfer/internal/observability"
	"github.com/snowtransfer/snowtransfer/internal/output"
	"github.com/snowtransfer/snowtransfer/internal/rest"
)

var (
	requestData    string
	requestFile    string
	requestReason  string
	requestRepeat  int
	requestBuckets string
)

var requestCmd = &cobra.Command{
	Use:   "request <method> <path>",
	Short: "Send a rate-limited request to any API route",
	Long: `Send a request through the ratelimiter.

The path is relative to the API prefix, e.g. /channels/<id>/messages.
--data takes a JSON object; for GET requests and the ban and prune routes its
fields are sent as query parameters, otherwise as the JSON body. --file sends
the request as multipart with the object in payload_json. --repeat sends the
same request several times concurrently; calls on one route still run one at
a time.`,
	Example: `  snowtransfer request GET /gateway/bot
  snowtransfer request POST /channels/123/messages --data '{"content":"hi"}'
  snowtransfer request PUT /guilds/1/bans/2 --reason "spam" --data '{"delete-message-days":1}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		method := strings.ToUpper(strings.TrimSpace(args[0]))
		path := args[1]
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}

		format := output.FormatTable
		if requestBuckets != "" {
			var err error
			if format, err = output.ParseFormat(requestBuckets); err != nil {
				return err
			}
		}

		payload, err := requestPayload()
		if err != nil {
			return err
		}

		c, err := newClient(observability.CLILogger)
		if err != nil {
			return err
		}
		defer c.Close() // nolint:errcheck // best-effort cleanup

		repeat := max(requestRepeat, 1)
		results := make([]json.RawMessage, repeat)

		var g errgroup.Group
		for i := range repeat {
			g.Go(func() error {
				body, err := c.dispatcher.Request(cmd.Context(), path, method, payload)
				if err != nil {
					return err
				}
				results[i] = body
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, body := range results {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), output.FormatResponse(body))
		}
		observability.CLILogger.Debug("Request completed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("repeat", repeat),
			zap.Duration("last_latency", c.dispatcher.Latency()))

		if requestBuckets != "" {
			showBuckets = true
		}
		return printBuckets(cmd, c, format)
	},
}

// requestPayload builds the payload from --data, --reason and --file.
func requestPayload() (rest.Payload, error) {
	data := map[string]any{}
	if strings.TrimSpace(requestData) != "" {
		if err := json.Unmarshal([]byte(requestData), &data); err != nil {
			return rest.Payload{}, fmt.Errorf("--data must be a JSON object: %w", err)
		}
	}
	if requestReason != "" {
		data[rest.ReasonKey] = requestReason
	}
	if requestFile == "" {
		return rest.JSON(data), nil
	}

	contents, err := os.ReadFile(requestFile)
	if err != nil {
		return rest.Payload{}, fmt.Errorf("read --file: %w", err)
	}
	data[rest.FileKey] = rest.File{Name: filepath.Base(requestFile), Data: contents}
	return rest.Multipart(data), nil
}

func init() {
	rootCmd.AddCommand(requestCmd)

	requestCmd.Flags().StringVarP(&requestData, "data", "d", "", "JSON object sent as body or query")
	requestCmd.Flags().StringVarP(&requestFile, "file", "f", "", "attach a file (sends multipart)")
	requestCmd.Flags().StringVar(&requestReason, "reason", "", "audit log reason")
	requestCmd.Flags().IntVarP(&requestRepeat, "repeat", "n", 1, "send the request n times concurrently")
	requestCmd.Flags().StringVar(&requestBuckets, "show-buckets", "", "print the bucket table afterwards (table, json, markdown)")
	requestCmd.Flags().Lookup("show-buckets").NoOptDefVal = string(output.FormatTable)
}
