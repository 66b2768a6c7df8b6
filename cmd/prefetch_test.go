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
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bloodmagesoftware/tiktoken-prefetch/cachedir"
	"github.com/bloodmagesoftware/tiktoken-prefetch/encodings"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cache file names tiktoken uses for the two default encodings.
var cacheKeys = map[string]string{
	"cl100k_base": "9b5ad71b2ce5302211f9c61530b329a4922fc6a4",
	"o200k_base":  "fb374d419588a4632f3f557e76b4b70aebbca790",
}

// fakeLibrary writes a vocabulary file the way the tokenizer library would,
// into whatever directory env currently names.
type fakeLibrary struct {
	fs    afero.Fs
	env   cachedir.Environ
	calls []string
	fail  error
}

func (l *fakeLibrary) Fetch(_ context.Context, name string) error {
	l.calls = append(l.calls, name)
	if l.fail != nil {
		return l.fail
	}
	dir, ok := l.env.LookupEnv(cachedir.CanonicalEnv)
	if !ok || dir == "" {
		dir, _ = l.env.LookupEnv(cachedir.LegacyEnv)
	}
	return afero.WriteFile(l.fs, filepath.Join(dir, cacheKeys[name]), []byte("IQ== 0\n"), 0o644)
}

func newTestOptions(env cachedir.MapEnviron, fs afero.Fs, lib *fakeLibrary, out *bytes.Buffer) prefetchOptions {
	return prefetchOptions{
		Encodings: encodings.Defaults(),
		Resolver: &cachedir.Resolver{
			Candidates: cachedir.DefaultCandidates(),
			Default:    "/tmp/tiktoken_cache_dir",
			Env:        env,
		},
		Fs:      fs,
		Fetcher: lib,
		Out:     out,
		Logger:  zerolog.Nop(),
	}
}

func TestRunPrefetchWithDefaultDir(t *testing.T) {
	env := cachedir.MapEnviron{}
	fs := afero.NewMemMapFs()
	lib := &fakeLibrary{fs: fs, env: env}
	var out bytes.Buffer

	require.NoError(t, runPrefetch(context.Background(), newTestOptions(env, fs, lib, &out)))

	assert.Equal(t, "/tmp/tiktoken_cache_dir", env["TIKTOKEN_CACHE_DIR"])
	assert.Equal(t, []string{"cl100k_base", "o200k_base"}, lib.calls)
	assert.Equal(t,
		"Set TIKTOKEN_CACHE_DIR=/tmp/tiktoken_cache_dir\n"+
			"Downloading tokenizers to cache_dir=\"/tmp/tiktoken_cache_dir\". Tokenizer list: [cl100k_base o200k_base]\n"+
			"Retrieved tokenizers. Contents of cache_dir (sha1sum of tokenizer URL): "+
			"9b5ad71b2ce5302211f9c61530b329a4922fc6a4, fb374d419588a4632f3f557e76b4b70aebbca790\n",
		out.String())
}

func TestRunPrefetchWithLegacyVariable(t *testing.T) {
	env := cachedir.MapEnviron{"DATA_GYM_CACHE_DIR": "/custom/path"}
	fs := afero.NewMemMapFs()
	lib := &fakeLibrary{fs: fs, env: env}
	var out bytes.Buffer

	require.NoError(t, runPrefetch(context.Background(), newTestOptions(env, fs, lib, &out)))

	assert.NotContains(t, out.String(), "Set TIKTOKEN_CACHE_DIR=")
	assert.Contains(t, out.String(), `cache_dir="/custom/path"`)
	_, set := env["TIKTOKEN_CACHE_DIR"]
	assert.False(t, set)

	entries, err := cachedir.List(fs, "/custom/path")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRunPrefetchExplicitDir(t *testing.T) {
	env := cachedir.MapEnviron{"TIKTOKEN_CACHE_DIR": "/from/env"}
	fs := afero.NewMemMapFs()
	lib := &fakeLibrary{fs: fs, env: env}
	var out bytes.Buffer

	opts := newTestOptions(env, fs, lib, &out)
	opts.CacheDir = "/from/flag"
	require.NoError(t, runPrefetch(context.Background(), opts))

	assert.Equal(t, "/from/flag", env["TIKTOKEN_CACHE_DIR"])
	ok, err := afero.Exists(fs, "/from/flag/"+cacheKeys["o200k_base"])
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunPrefetchIsRepeatable(t *testing.T) {
	env := cachedir.MapEnviron{}
	fs := afero.NewMemMapFs()
	lib := &fakeLibrary{fs: fs, env: env}

	var first, second bytes.Buffer
	require.NoError(t, runPrefetch(context.Background(), newTestOptions(env, fs, lib, &first)))
	require.NoError(t, runPrefetch(context.Background(), newTestOptions(env, fs, lib, &second)))

	// The second run finds TIKTOKEN_CACHE_DIR set by the first.
	assert.NotContains(t, second.String(), "Set TIKTOKEN_CACHE_DIR=")
	entries, err := cachedir.List(fs, "/tmp/tiktoken_cache_dir")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRunPrefetchAbortsOnFetchFailure(t *testing.T) {
	env := cachedir.MapEnviron{}
	fs := afero.NewMemMapFs()
	boom := errors.New("Get \"https://openaipublic.blob.core.windows.net/encodings/cl100k_base.tiktoken\": dial tcp: lookup failed")
	lib := &fakeLibrary{fs: fs, env: env, fail: boom}
	var out bytes.Buffer

	err := runPrefetch(context.Background(), newTestOptions(env, fs, lib, &out))
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"cl100k_base"}, lib.calls)
	assert.NotContains(t, out.String(), "Retrieved tokenizers")
	exists, _ := afero.DirExists(fs, "/tmp/tiktoken_cache_dir")
	assert.True(t, exists, "directory is created before fetching")
}

func TestRunPrefetchFailsWhenDirCannotBeCreated(t *testing.T) {
	env := cachedir.MapEnviron{}
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	lib := &fakeLibrary{fs: fs, env: env}
	var out bytes.Buffer

	err := runPrefetch(context.Background(), newTestOptions(env, fs, lib, &out))
	require.Error(t, err)
	assert.Empty(t, lib.calls)
}

func TestPrintListing(t *testing.T) {
	fs := afero.NewMemMapFs()
	res := cachedir.Resolution{Path: "/cache", Source: cachedir.CanonicalEnv}

	var out bytes.Buffer
	require.NoError(t, printListing(&out, fs, res))
	assert.Contains(t, out.String(), "does not exist")
	exists, _ := afero.Exists(fs, "/cache")
	assert.False(t, exists)

	require.NoError(t, cachedir.Prepare(fs, "/cache"))
	out.Reset()
	require.NoError(t, printListing(&out, fs, res))
	assert.Contains(t, out.String(), "is empty")

	require.NoError(t, afero.WriteFile(fs, "/cache/"+cacheKeys["cl100k_base"], make([]byte, 2048), 0o644))
	out.Reset()
	require.NoError(t, printListing(&out, fs, res))
	assert.Contains(t, out.String(), `cache_dir="/cache" (from TIKTOKEN_CACHE_DIR)`)
	assert.Contains(t, out.String(), cacheKeys["cl100k_base"])
	assert.Contains(t, out.String(), "2.0 kB")
	assert.Contains(t, out.String(), "1 files")
}

func TestPrintVerifyResult(t *testing.T) {
	var out bytes.Buffer
	printVerifyResult(&out, "/cache", &encodings.VerifyResult{
		Reports: []encodings.Report{{Encoding: "cl100k_base", Took: 1500 * time.Millisecond}},
		Files:   []encodings.FileCheck{{Source: "https://example.invalid/cl100k_base.tiktoken", Ranks: 100256}},
	})
	assert.Equal(t,
		"ok  cl100k_base (1.5s)\n"+
			"    https://example.invalid/cl100k_base.tiktoken: 100,256 ranks\n"+
			"Verified 1 encodings in cache_dir=\"/cache\"\n",
		out.String())
}

func TestPickerOptions(t *testing.T) {
	opts := pickerOptions([]string{"o200k_base", "my_custom"})
	assert.Equal(t, []string{"o200k_base", "my_custom", "cl100k_base", "p50k_base", "p50k_edit", "r50k_base"}, opts)

	assert.Equal(t, []string{"o200k_base", "cl100k_base"}, orderSelection([]string{"cl100k_base", "o200k_base"}, opts))
}
