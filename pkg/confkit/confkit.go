// Package confkit holds the section-file and dotenv plumbing shared by the
// service config and the market and llm sections.
package confkit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Section is a config block kept in its own file next to the main config.
// Value may also be set directly, in which case File stays empty.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate loads File with loader and stores the result. Relative paths resolve
// against base after ${ENV} expansion. An empty File leaves the section as is.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if strings.TrimSpace(s.File) == "" {
		return nil
	}
	p := resolvePath(base, s.File)
	v, err := loader(p)
	if err != nil {
		return fmt.Errorf("section %s: %w", p, err)
	}
	s.File, s.Value = p, v
	return nil
}

func resolvePath(base, file string) string {
	file = os.ExpandEnv(strings.TrimSpace(file))
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}
