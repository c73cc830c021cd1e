package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"vinosuggest-engine/internal/app"
)

type rootOptions struct {
	dataDir       string
	defaultConfig string
	envFile       string
	verbose       bool
}

// appOptions keeps one-shot commands quiet unless --verbose is set.
func (o *rootOptions) appOptions(skipCatalog bool) app.Options {
	opts := app.Options{
		DataDir:       o.dataDir,
		DefaultConfig: o.defaultConfig,
		EnvFile:       o.envFile,
		SkipCatalog:   skipCatalog,
	}
	if !o.verbose {
		opts.LogLevel = "warn"
	}
	return opts
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "vinosuggest",
		Short: "Wine recommendations from taste preferences",
		Long: `VinoSuggest stores a user's taste preferences and price range and
recommends wines from a static catalog whose reviews match them.

Run "serve" for the local HTTP engine, or use the one-shot commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.dataDir, "data-dir", "", "directory holding config.yml and data files (env VINO_DATA_DIR, default .)")
	pf.StringVar(&opts.defaultConfig, "default-config", filepath.Join("config", "config.yml"), "config copied into the data dir on first run")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before VINO_* overrides")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log at the configured level instead of warn")

	root.AddCommand(
		newServeCmd(opts),
		newSaveCmd(opts),
		newShowCmd(opts),
		newClearCmd(opts),
		newListCmd(opts),
		newRecommendCmd(opts),
		newCategoriesCmd(),
	)
	return root
}
