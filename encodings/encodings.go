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

// Package encodings drives the tokenizer library to populate its on-disk
// vocabulary cache.
package encodings

import (
	"context"
	"fmt"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
)

// Fetcher makes one encoding available in the local cache. Implementations
// own download, naming and retry behavior.
type Fetcher interface {
	Fetch(ctx context.Context, name string) error
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, name string) error

func (f FetcherFunc) Fetch(ctx context.Context, name string) error {
	return f(ctx, name)
}

// Defaults returns the encodings staged when none are configured.
func Defaults() []string {
	return []string{tiktoken.MODEL_CL100K_BASE, tiktoken.MODEL_O200K_BASE}
}

// Known returns the encodings the library ships definitions for. It is only
// used to offer choices; names are never checked against it.
func Known() []string {
	return []string{
		tiktoken.MODEL_O200K_BASE,
		tiktoken.MODEL_CL100K_BASE,
		tiktoken.MODEL_P50K_BASE,
		tiktoken.MODEL_P50K_EDIT,
		tiktoken.MODEL_R50K_BASE,
	}
}

// FetchError is returned by Prefetch for the encoding that stopped the run.
type FetchError struct {
	Encoding string
	// Index of Encoding in the requested list.
	Index int
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch encoding %q: %v", e.Encoding, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Prefetch fetches names one after the other, in order. The first failure
// stops the run; later names are not attempted.
func Prefetch(ctx context.Context, f Fetcher, names []string, logger zerolog.Logger) error {
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return &FetchError{Encoding: name, Index: i, Err: err}
		}
		logger.Info().Str("encoding", name).Int("index", i).Msg("fetching encoding")
		start := time.Now()
		if err := f.Fetch(ctx, name); err != nil {
			return &FetchError{Encoding: name, Index: i, Err: err}
		}
		logger.Info().Str("encoding", name).Dur("took", time.Since(start)).Msg("encoding cached")
	}
	return nil
}
