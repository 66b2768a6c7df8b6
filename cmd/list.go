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
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/bloodmagesoftware/tiktoken-prefetch/cachedir"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the cache directory and its contents",
	Long:  `List the resolved cache directory and the vocabulary files in it. File names are the SHA-1 of the source URL, as written by tiktoken. The directory is never created.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := cfg.Resolver(environ).Resolve(cfg.CacheDir)
		if err != nil {
			return fmt.Errorf("failed to resolve cache dir: %w", err)
		}
		return printListing(cmd.OutOrStdout(), fsys, res)
	},
}

func printListing(w io.Writer, fsys afero.Fs, res cachedir.Resolution) error {
	fmt.Fprintf(w, "cache_dir=%q (from %s)\n", res.Path, res.Source)

	entries, err := cachedir.List(fsys, res.Path)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(w, "cache directory does not exist")
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "cache directory is empty")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Name, humanize.Bytes(uint64(e.Size)), humanize.Time(e.ModTime)})
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("NAME", "SIZE", "MODIFIED").
		Rows(rows...)
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "%d files, %s\n", len(entries), humanize.Bytes(uint64(cachedir.TotalSize(entries))))
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
}
