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
	"io"

	"github.com/bloodmagesoftware/tiktoken-prefetch/cachedir"
	"github.com/bloodmagesoftware/tiktoken-prefetch/encodings"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

type prefetchOptions struct {
	// CacheDir takes precedence over the resolver's variables when set.
	CacheDir  string
	Encodings []string
	Resolver  *cachedir.Resolver
	Fs        afero.Fs
	Fetcher   encodings.Fetcher
	Out       io.Writer
	Logger    zerolog.Logger
}

// runPrefetch resolves and creates the cache directory, fetches every
// encoding in order and prints what ended up in the directory.
func runPrefetch(ctx context.Context, o prefetchOptions) error {
	res, err := o.Resolver.Resolve(o.CacheDir)
	if err != nil {
		return fmt.Errorf("failed to resolve cache dir: %w", err)
	}
	if res.Defaulted {
		fmt.Fprintln(o.Out, res.Notice(o.Resolver.Canonical()))
	}
	log := o.Logger.With().Str("cache_dir", res.Path).Str("source", res.Source).Logger()

	fmt.Fprintf(o.Out, "Downloading tokenizers to cache_dir=%q. Tokenizer list: %v\n", res.Path, o.Encodings)
	if err := cachedir.Prepare(o.Fs, res.Path); err != nil {
		return err
	}

	if err := encodings.Prefetch(ctx, o.Fetcher, o.Encodings, log); err != nil {
		return err
	}

	entries, err := cachedir.List(o.Fs, res.Path)
	if err != nil {
		return err
	}
	log.Debug().Int("entries", len(entries)).Int64("bytes", cachedir.TotalSize(entries)).Msg("cache populated")
	fmt.Fprintf(o.Out, "Retrieved tokenizers. Contents of cache_dir (sha1sum of tokenizer URL): %s\n", cachedir.JoinNames(entries))
	return nil
}
