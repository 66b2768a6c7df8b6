//go:build windows

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
	"os"
	"path/filepath"
)

func getDefaultDir() string {
	// %TEMP% first, then %USERPROFILE%\AppData\Local\Temp via os.TempDir.
	if tmp := os.Getenv("TEMP"); tmp != "" {
		return filepath.Join(tmp, "tiktoken_cache_dir")
	}
	return filepath.Join(os.TempDir(), "tiktoken_cache_dir")
}
