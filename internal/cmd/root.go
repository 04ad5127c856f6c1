package cmd

import (
	"github.com/MrEthical07/goIntake/internal/config"
	"github.com/spf13/cobra"
)

var versionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// SetVersionInfo is called by main with the values set through ldflags.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

type rootFlags struct {
	configFile    string
	envFiles      []string
	logLevel      string
	embeddedRedis bool
	redisURL      string
}

// Execute runs the goIntake command tree.
func Execute() error {
	return NewRootCommand().Execute()
}

func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "goIntake",
		Short:         "Anonymous legal-intake gateway",
		Long:          "goIntake issues one-time intake credentials, validates them behind a sliding-window limiter and stores the resulting case reports.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "YAML config file")
	pf.StringSliceVar(&flags.envFiles, "env-file", nil, "dotenv files to load (default .env.local,.env)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.BoolVar(&flags.embeddedRedis, "embedded-redis", false, "run against an in-process Redis (data is lost on exit)")
	pf.StringVar(&flags.redisURL, "redis-url", "", "Redis URL override, e.g. redis://localhost:6379/0")

	root.AddCommand(
		newServeCommand(flags),
		newIssueCommand(flags),
		newDeactivateCommand(flags),
		newVersionCommand(),
	)
	return root
}

// load resolves config and applies command-line overrides.
func (f *rootFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: f.configFile,
		EnvFiles:   f.envFiles,
	})
	if err != nil {
		return config.Config{}, err
	}

	pf := cmd.Flags()
	if pf.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if pf.Changed("embedded-redis") {
		cfg.Redis.Embedded = f.embeddedRedis
	}
	if pf.Changed("redis-url") {
		cfg.Redis.URL = f.redisURL
	}
	return cfg, nil
}
