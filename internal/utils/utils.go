// Package utils provides small shared helpers.
package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ExpandPath expands a leading tilde and any environment variables in path.
func ExpandPath(path string) string {
	s := os.ExpandEnv(path)
	if strings.HasPrefix(s, "~") {
		home, err := homedir.Dir()
		if err == nil {
			s = filepath.Join(home, strings.TrimPrefix(s, "~"))
		}
	}
	return s
}
