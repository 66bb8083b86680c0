//go:build integration

package itest

import (
	"errors"
	"os"
	"path/filepath"
)

// findRepoRoot walks up from the working directory to the go.mod that
// declares the clipforge module.
func findRepoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for dir := wd; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			if _, err := os.Stat(filepath.Join(dir, "cmd", "clipforge")); err == nil {
				return dir, nil
			}
		}
		if filepath.Dir(dir) == dir {
			return "", errors.New("could not locate the clipforge module root")
		}
	}
}
