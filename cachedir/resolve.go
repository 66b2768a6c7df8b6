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

// Package cachedir resolves, creates and lists the directory the tokenizer
// library caches vocabulary files in.
package cachedir

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	// CanonicalEnv is read first by the tokenizer library.
	CanonicalEnv = "TIKTOKEN_CACHE_DIR"
	// LegacyEnv is the fallback variable the library also honors.
	LegacyEnv = "DATA_GYM_CACHE_DIR"

	SourceDefault = "default"
	SourceFlag    = "flag"
)

var (
	ErrNoCandidates          = errors.New("no cache directory variables configured")
	ErrUnsupportedCandidates = errors.New("cache directory variables must follow the tokenizer library's lookup order")
)

// DefaultCandidates returns the cache variables in the order the tokenizer
// library consults them.
func DefaultCandidates() []string {
	return []string{CanonicalEnv, LegacyEnv}
}

// ValidateCandidates accepts a non-empty prefix of DefaultCandidates. Any
// other list lets the resolved directory drift from the one the library
// writes to.
func ValidateCandidates(candidates []string) error {
	if len(candidates) == 0 {
		return ErrNoCandidates
	}
	known := DefaultCandidates()
	if len(candidates) > len(known) {
		return fmt.Errorf("%w: got %v, want a prefix of %v", ErrUnsupportedCandidates, candidates, known)
	}
	for i, name := range candidates {
		if name != known[i] {
			return fmt.Errorf("%w: got %v, want a prefix of %v", ErrUnsupportedCandidates, candidates, known)
		}
	}
	return nil
}

// Environ is the part of the process environment the resolver needs.
type Environ interface {
	LookupEnv(key string) (string, bool)
	Setenv(key, value string) error
}

// OSEnviron reads and writes the real process environment.
type OSEnviron struct{}

func (OSEnviron) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (OSEnviron) Setenv(key, value string) error {
	return os.Setenv(key, value)
}

// MapEnviron is an in-memory Environ.
type MapEnviron map[string]string

func (m MapEnviron) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m MapEnviron) Setenv(key, value string) error {
	m[key] = value
	return nil
}

type Resolution struct {
	Path string
	// Source is the variable that supplied Path, SourceDefault or SourceFlag.
	Source string
	// Defaulted reports that no candidate was set and the canonical variable
	// was exported with the default.
	Defaulted bool
}

// Notice is the line printed when the default was applied.
func (r Resolution) Notice(canonical string) string {
	return fmt.Sprintf("Set %s=%s", canonical, r.Path)
}

// Resolver picks the cache directory from a prioritized list of variables.
// Candidates[0] is the canonical variable.
type Resolver struct {
	Candidates []string
	Default    string
	Env        Environ
}

func NewResolver() *Resolver {
	return &Resolver{
		Candidates: DefaultCandidates(),
		Default:    DefaultDir(),
		Env:        OSEnviron{},
	}
}

func (r *Resolver) Canonical() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0]
}

// Resolve returns the cache directory. An explicit path wins and is exported
// as the canonical variable, since the library only reads the environment.
// Otherwise the first candidate with a non-empty value is returned and the
// environment is left alone. With nothing set, the default is exported as
// the canonical variable.
func (r *Resolver) Resolve(explicit string) (Resolution, error) {
	if len(r.Candidates) == 0 {
		return Resolution{}, ErrNoCandidates
	}
	canonical := r.Candidates[0]

	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if err := r.export(canonical, explicit); err != nil {
			return Resolution{}, err
		}
		return Resolution{Path: explicit, Source: SourceFlag}, nil
	}

	for _, name := range r.Candidates {
		if v, ok := r.Env.LookupEnv(name); ok && v != "" {
			return Resolution{Path: v, Source: name}, nil
		}
	}

	if err := r.export(canonical, r.Default); err != nil {
		return Resolution{}, err
	}
	return Resolution{Path: r.Default, Source: SourceDefault, Defaulted: true}, nil
}

func (r *Resolver) export(key, value string) error {
	if cur, ok := r.Env.LookupEnv(key); ok && cur == value {
		return nil
	}
	if err := r.Env.Setenv(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
