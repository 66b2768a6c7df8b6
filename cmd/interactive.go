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
	"slices"

	"github.com/bloodmagesoftware/tiktoken-prefetch/encodings"
	"github.com/charmbracelet/huh"
)

var errNoSelection = errors.New("select at least one encoding")

// pickerOptions lists the configured encodings first, then the rest of the
// encodings the library knows about.
func pickerOptions(configured []string) []string {
	options := slices.Clone(configured)
	for _, name := range encodings.Known() {
		if !slices.Contains(options, name) {
			options = append(options, name)
		}
	}
	return options
}

// pickEncodings asks which encodings to download, preselecting configured.
func pickEncodings(configured []string) ([]string, error) {
	selected := slices.Clone(configured)
	options := pickerOptions(configured)

	if err := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Encodings").
			Description("Select the tokenizer vocabularies to download.").
			Options(huh.NewOptions(options...)...).
			Validate(func(s []string) error {
				if len(s) == 0 {
					return errNoSelection
				}
				return nil
			}).
			Value(&selected),
	)).Run(); err != nil {
		return nil, fmt.Errorf("failed to run encoding selection: %w", err)
	}

	return orderSelection(selected, options), nil
}

// orderSelection returns selected in picker order, not toggle order.
func orderSelection(selected, options []string) []string {
	out := make([]string, 0, len(selected))
	for _, o := range options {
		if slices.Contains(selected, o) {
			out = append(out, o)
		}
	}
	return out
}
