//go:build !unix

package main

import (
	"os"
	"path/filepath"
)

type fileKey string

func identify(name string) (fileKey, bool, error) {
	stat, err := os.Stat(name)
	if err != nil {
		return "", false, err
	}
	abs, err := filepath.Abs(name)
	return fileKey(abs), stat.Mode().IsRegular(), err
}

func mapFile(name string) ([]byte, func(), error) {
	return readWholeFile(name)
}
