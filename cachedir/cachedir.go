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

package cachedir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
)

var ErrEmptyCache = errors.New("cache directory is empty")

// Prepare creates dir and its parents. It is a no-op when dir exists.
func Prepare(fsys afero.Fs, dir string) error {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return nil
}

type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// List returns everything in dir. Names are whatever the tokenizer library
// wrote; nothing is filtered.
func List(fsys afero.Fs, dir string) ([]Entry, error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache dir %s: %w", dir, err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, Entry{
			Name:    fi.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
			IsDir:   fi.IsDir(),
		})
	}
	return entries, nil
}

// RequireContents fails with ErrEmptyCache when dir has no entries and with
// fs.ErrNotExist when it is missing. It never creates dir.
func RequireContents(fsys afero.Fs, dir string) ([]Entry, error) {
	if _, err := fsys.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("cache dir %s: %w", dir, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to stat cache dir %s: %w", dir, err)
	}
	entries, err := List(fsys, dir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrEmptyCache)
	}
	return entries, nil
}

func JoinNames(entries []Entry) string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return strings.Join(names, ", ")
}

func TotalSize(entries []Entry) int64 {
	var n int64
	for _, e := range entries {
		n += e.Size
	}
	return n
}
