package main

import (
	"io"

	"github.com/misicnenad/fith-on/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultLogLevel = "warn"

// cli carries the state shared by every subcommand of one invocation.
type cli struct {
	viper      *viper.Viper
	configFile string
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{
		viper:  config.NewViper(),
		stdout: stdout,
		stderr: stderr,
	}
	c.viper.SetDefault("log.level", defaultLogLevel)

	rootCmd := &cobra.Command{
		Use:   "fithon",
		Short: "Plan and log 5/3/1 training blocks",
		Long: `fithon keeps your 5/3/1 training blocks and notes in sync with the fith-on API.
Changes are saved remotely first and only then shown locally; while offline the last
synchronized collection is shown from the local cache.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadFile(c.viper, c.configFile)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "Path to configuration file")
	flags.String("api-url", c.viper.GetString("api.url"), "fith-on API base URL")
	flags.String("api-token", "", "API access token")
	flags.String("user", "", "User key (the account email)")
	flags.String("cache-path", c.viper.GetString("cache.path"), "Directory of the offline cache")
	flags.Bool("offline", false, "Work from the offline cache without contacting the API")
	flags.Duration("request-timeout", c.viper.GetDuration("request.timeout"), "Timeout for each API request")
	flags.Duration("probe-interval", c.viper.GetDuration("network.probe_interval"), "How often watch checks that the API is reachable")
	flags.String("log-level", defaultLogLevel, "Log level (debug, info, warn, error)")

	c.bindFlag(rootCmd, "api.url", "api-url")
	c.bindFlag(rootCmd, "api.token", "api-token")
	c.bindFlag(rootCmd, "user.key", "user")
	c.bindFlag(rootCmd, "cache.path", "cache-path")
	c.bindFlag(rootCmd, "network.offline", "offline")
	c.bindFlag(rootCmd, "request.timeout", "request-timeout")
	c.bindFlag(rootCmd, "network.probe_interval", "probe-interval")
	c.bindFlag(rootCmd, "log.level", "log-level")

	rootCmd.AddCommand(
		newListCommand(c),
		newAddBlockCommand(c),
		newAddNoteCommand(c),
		newRemoveCommand(c),
		newAmrapCommand(c),
		newWeightsCommand(c),
		newExportCommand(c),
		newWatchCommand(c),
	)
	return rootCmd
}

func (c *cli) bindFlag(cmd *cobra.Command, key, flag string) {
	if err := c.viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}
