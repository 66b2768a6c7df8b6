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

package encodings

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/sourcegraph/conc/pool"
)

var ErrRankMismatch = errors.New("cached ranks differ from reference")

// Report describes one verified encoding.
type Report struct {
	Encoding string
	Took     time.Duration
}

// FileCheck describes one vocabulary file compared against the reference.
type FileCheck struct {
	Encoding string
	Source   string
	Ranks    int
}

type VerifyResult struct {
	Reports []Report
	Files   []FileCheck
}

// SourceURL is where tiktoken-go downloads the vocabulary for name from.
func SourceURL(name string) string {
	return "https://openaipublic.blob.core.windows.net/encodings/" + name + ".tiktoken"
}

type loadedFile struct {
	encoding string
	source   string
	ranks    map[string]int
}

// recordingLoader hands the library whatever the cached loader returns and
// remembers it for comparison. The library serializes calls into it.
type recordingLoader struct {
	cached tiktoken.BpeLoader

	mu      sync.Mutex
	current string
	files   []loadedFile
}

func (l *recordingLoader) LoadTiktokenBpe(file string) (map[string]int, error) {
	ranks, err := l.cached.LoadTiktokenBpe(file)
	if err != nil {
		return nil, fmt.Errorf("cached %s: %w", file, err)
	}
	l.mu.Lock()
	l.files = append(l.files, loadedFile{encoding: l.current, source: file, ranks: ranks})
	l.mu.Unlock()
	return ranks, nil
}

func (l *recordingLoader) loading(name string) {
	l.mu.Lock()
	l.current = name
	l.mu.Unlock()
}

func compareRanks(got, want map[string]int) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: %d ranks, want %d", ErrRankMismatch, len(got), len(want))
	}
	for token, rank := range want {
		g, ok := got[token]
		if !ok {
			return fmt.Errorf("%w: rank %d missing", ErrRankMismatch, rank)
		}
		if g != rank {
			return fmt.Errorf("%w: token has rank %d, want %d", ErrRankMismatch, g, rank)
		}
	}
	return nil
}

// Verifier checks staged encodings against the vocabularies embedded in
// tiktoken-go-loader.
type Verifier struct {
	// Cached is the library's own loader. It downloads a vocabulary that is
	// missing from the cache, so verifying an incomplete cache completes it.
	Cached        tiktoken.BpeLoader
	Reference     tiktoken.BpeLoader
	MaxGoroutines int

	install     func(tiktoken.BpeLoader)
	getEncoding func(name string) error
}

func NewVerifier() *Verifier {
	return &Verifier{
		Cached:        tiktoken.NewDefaultBpeLoader(),
		Reference:     tiktoken_loader.NewOfflineLoader(),
		MaxGoroutines: runtime.NumCPU(),
		install:       tiktoken.SetBpeLoader,
		getEncoding: func(name string) error {
			_, err := tiktoken.GetEncoding(name)
			return err
		},
	}
}

// Verify loads names through the library one at a time, since the library
// holds a package-wide lock while loading, then compares every loaded file
// with the reference on a pool of goroutines. It replaces the library's
// process-wide loader and is meant to run once per process.
func (v *Verifier) Verify(ctx context.Context, names []string) (*VerifyResult, error) {
	loader := &recordingLoader{cached: v.Cached}
	v.install(loader)

	var (
		reports []Report
		errs    []error
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loader.loading(name)
		start := time.Now()
		if err := v.getEncoding(name); err != nil {
			errs = append(errs, fmt.Errorf("verify %q: %w", name, err))
			continue
		}
		reports = append(reports, Report{Encoding: name, Took: time.Since(start)})
	}

	workers := v.MaxGoroutines
	if workers < 1 {
		workers = 1
	}
	loader.mu.Lock()
	loaded := append([]loadedFile(nil), loader.files...)
	loader.mu.Unlock()

	checks := make([]FileCheck, len(loaded))
	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i, f := range loaded {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			want, err := v.Reference.LoadTiktokenBpe(f.source)
			if err != nil {
				return fmt.Errorf("verify %q: reference %s: %w", f.encoding, f.source, err)
			}
			if err := compareRanks(f.ranks, want); err != nil {
				return fmt.Errorf("verify %q: %s: %w", f.encoding, f.source, err)
			}
			checks[i] = FileCheck{Encoding: f.encoding, Source: f.source, Ranks: len(f.ranks)}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	sort.Slice(checks, func(i, j int) bool { return checks[i].Source < checks[j].Source })
	return &VerifyResult{Reports: reports, Files: checks}, nil
}
