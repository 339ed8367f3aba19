package cmd

import (
	"os"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/snowtransfer/snowtransfer/internal/config"
	"github.com/snowtransfer/snowtransfer/internal/observability"
)

const appName = "snowtransfer"

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Rate-limit aware REST client for the Discord API",
	Long: `snowtransfer sends requests to the Discord REST API while honouring its
per-route and global rate limits.

Requests are grouped into buckets by route; each bucket runs its calls one at
a time and waits out the limits the API reports. Use "serve" to share one set
of buckets between several local processes.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/snowtransfer/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	flags.String("token", "", "authorization value sent verbatim, e.g. \"Bot <token>\"")
	flags.String("base-host", "", "API host, e.g. a local proxy")
	flags.String("trace", "", "append failed attempts to an NDJSON file")
	flags.Int("max-attempts", 0, "network attempts per request (default 3)")

	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("api.token", flags.Lookup("token"))
	_ = viper.BindPFlag("api.base_host", flags.Lookup("base-host"))
	_ = viper.BindPFlag("trace.file", flags.Lookup("trace"))
	_ = viper.BindPFlag("rate_limit.max_attempts", flags.Lookup("max-attempts"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	observability.InitCLILogger(appName, verbose)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if appConfigDir := gfconfig.GetAppConfigDir(appName); appConfigDir != "" {
			viper.AddConfigPath(appConfigDir)
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Could not find home directory", err)
			}
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath("./config")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	config.BindEnv(viper.GetViper())
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		observability.CLILogger.Debug("No config file found, using defaults and environment variables")
	} else if cfgFile != "" {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Error reading config file", err)
	} else {
		observability.CLILogger.Warn("Error reading config file", zap.Error(err))
	}
}
