package uploadguard

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Allowlist holds path and content patterns excluded from scanning.
type Allowlist struct {
	Paths   []string // file path patterns, matched against the path as given
	Regexes []string // content patterns
}

// LoadAllowlists merges the allowlist files at paths. Missing files are
// skipped; invalid TOML or patterns are errors.
func LoadAllowlists(paths ...string) (*Allowlist, error) {
	merged := &Allowlist{Paths: []string{}, Regexes: []string{}}
	for _, p := range paths {
		if p == "" {
			continue
		}
		a, err := loadTOML(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		merged.Paths = append(merged.Paths, a.Paths...)
		merged.Regexes = append(merged.Regexes, a.Regexes...)
	}
	return merged, nil
}

func loadTOML(path string) (*Allowlist, error) {
	var doc struct {
		Allowlist struct {
			Paths   []string
			Regexes []string
		}
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	a := &Allowlist{Paths: doc.Allowlist.Paths, Regexes: doc.Allowlist.Regexes}
	if _, err := compileAll(a.Paths); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if _, err := compileAll(a.Regexes); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: '%s': %v", ErrInvalidRegex, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
