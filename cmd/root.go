/*
tiktoken-prefetch stages tokenizer vocabularies for offline use.
Copyright (C) 2025  Mayer & Ott GbR

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as
published by the Free Software Foundation, either version 3 of the
License, or (at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public Licen
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/bloodmagesoftware/tiktoken-prefetch/cachedir"
	"github.com/bloodmagesoftware/tiktoken-prefetch/config"
	"github.com/bloodmagesoftware/tiktoken-prefetch/encodings"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	interactive bool

	cfg    *config.Config
	logger zerolog.Logger = newLogger(os.Stderr, zerolog.InfoLevel)
)

// Replaced in tests.
var (
	newFetcher func() encodings.Fetcher = func() encodings.Fetcher { return encodings.NewTiktokenFetcher() }
	environ    cachedir.Environ         = cachedir.OSEnviron{}
	fsys       afero.Fs                 = afero.NewOsFs()
)

var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Pre-download tiktoken vocabularies into a local cache",
	Long: `tiktoken-prefetch downloads tokenizer vocabulary files into the tiktoken cache directory so that
they are available in environments without network access. The cache directory is taken from
TIKTOKEN_CACHE_DIR or DATA_GYM_CACHE_DIR; when neither is set, /tmp/tiktoken_cache_dir is used
and exported as TIKTOKEN_CACHE_DIR.`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath, cmd.Flags())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		level, err := cfg.Level()
		if err != nil {
			return err
		}
		logger = newLogger(os.Stderr, level)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		names := cfg.Encodings
		if interactive {
			var err error
			names, err = pickEncodings(names)
			if err != nil {
				return err
			}
		}
		return runPrefetch(cmd.Context(), prefetchOptions{
			CacheDir:  cfg.CacheDir,
			Encodings: names,
			Resolver:  cfg.Resolver(environ),
			Fs:        fsys,
			Fetcher:   newFetcher(),
			Out:       cmd.OutOrStdout(),
			Logger:    logger,
		})
	},
}

func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		reportError(logger, err)
		os.Exit(1)
	}
}

// reportError logs err even when the configured level is above error.
func reportError(log zerolog.Logger, err error) {
	l := log.Level(zerolog.ErrorLevel)
	l.Error().Err(err).Msg("command failed")
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default is config.yaml in the working directory or the user config directory)")
	flags.String("cache-dir", "", "cache directory; overrides TIKTOKEN_CACHE_DIR and DATA_GYM_CACHE_DIR")
	flags.StringSlice("encodings", nil, "encodings to download (default cl100k_base,o200k_base)")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")

	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "choose the encodings interactively")
}
