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

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenFetcher materializes encodings through tiktoken-go, which reads
// TIKTOKEN_CACHE_DIR or DATA_GYM_CACHE_DIR and skips the download when the
// vocabulary file is already cached.
type TiktokenFetcher struct {
	getEncoding func(name string) (*tiktoken.Tiktoken, error)
}

func NewTiktokenFetcher() *TiktokenFetcher {
	return &TiktokenFetcher{getEncoding: tiktoken.GetEncoding}
}

// Fetch blocks until the library returns; the library does not take a
// context, so ctx is only checked before the call.
func (f *TiktokenFetcher) Fetch(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := f.getEncoding(name)
	return err
}
