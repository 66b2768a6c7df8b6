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
	"fmt"
	"io"
	"time"

	"github.com/bloodmagesoftware/tiktoken-prefetch/cachedir"
	"github.com/bloodmagesoftware/tiktoken-prefetch/encodings"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the cached vocabularies against the reference data",
	Long:  `Load every configured encoding from the cache directory and compare its ranks with the vocabularies bundled in tiktoken-go-loader. Fails when the directory is missing or empty, or when any rank differs. An encoding missing from a non-empty cache is downloaded by tiktoken while it is loaded, so verification may need network access and may add files to the cache.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := cfg.Resolver(environ).Resolve(cfg.CacheDir)
		if err != nil {
			return fmt.Errorf("failed to resolve cache dir: %w", err)
		}
		if _, err := cachedir.RequireContents(fsys, res.Path); err != nil {
			return fmt.Errorf("nothing to verify, run %s first: %w", rootCmd.Name(), err)
		}

		log := logger.With().Str("cache_dir", res.Path).Logger()
		start := time.Now()
		result, err := encodings.NewVerifier().Verify(cmd.Context(), cfg.Encodings)
		if err != nil {
			return err
		}
		log.Info().Dur("took", time.Since(start)).Int("files", len(result.Files)).Msg("cache verified")
		printVerifyResult(cmd.OutOrStdout(), res.Path, result)
		return nil
	},
}

func printVerifyResult(w io.Writer, dir string, result *encodings.VerifyResult) {
	for _, r := range result.Reports {
		fmt.Fprintf(w, "ok  %s (%s)\n", r.Encoding, r.Took.Round(time.Millisecond))
	}
	for _, f := range result.Files {
		fmt.Fprintf(w, "    %s: %s ranks\n", f.Source, humanize.Comma(int64(f.Ranks)))
	}
	fmt.Fprintf(w, "Verified %d encodings in cache_dir=%q\n", len(result.Reports), dir)
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
