package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/snowtransfer/snowtransfer/internal/api"
	"github.com/snowtransfer/snowtransfer/internal/observability"
	"github.com/snowtransfer/snowtransfer/internal/output"
)

var showBuckets bool

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Fetch the gateway URL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBotMethod(cmd, func(ctx context.Context, m *api.BotMethods) (any, error) {
			return m.GetGateway(ctx)
		})
	},
}

var gatewayBotCmd = &cobra.Command{
	Use:   "gateway-bot",
	Short: "Fetch the gateway URL and recommended shard count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBotMethod(cmd, func(ctx context.Context, m *api.BotMethods) (any, error) {
			return m.GetGatewayBot(ctx)
		})
	},
}

var applicationCmd = &cobra.Command{
	Use:   "application [app-id]",
	Short: "Fetch an OAuth2 application (defaults to the token's own)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID := ""
		if len(args) == 1 {
			appID = args[0]
		}
		return runBotMethod(cmd, func(ctx context.Context, m *api.BotMethods) (any, error) {
			return m.GetOAuthApplication(ctx, appID)
		})
	},
}

func runBotMethod(cmd *cobra.Command, call func(context.Context, *api.BotMethods) (any, error)) error {
	c, err := newClient(observability.CLILogger)
	if err != nil {
		return err
	}
	defer c.Close() // nolint:errcheck // best-effort cleanup

	result, err := call(cmd.Context(), api.NewBotMethods(c.dispatcher))
	if err != nil {
		return err
	}

	rendered, err := (&output.JSONFormatter{Indent: true}).FormatValue(result)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return printBuckets(cmd, c, output.FormatTable)
}

func printBuckets(cmd *cobra.Command, c *client, format output.Format) error {
	if !showBuckets {
		return nil
	}
	rendered, err := output.NewFormatter(format).FormatSnapshot(output.SnapshotOf(c.dispatcher.Ratelimiter(), time.Now()))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{gatewayCmd, gatewayBotCmd, applicationCmd} {
		c.Flags().BoolVar(&showBuckets, "show-buckets", false, "print the bucket table after the response")
		rootCmd.AddCommand(c)
	}
}
