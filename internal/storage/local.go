// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes uploads into a directory that the HTTP server also
// serves under urlPrefix.
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore returns a LocalStore rooted at dir. URLs are built as
// urlPrefix + "/" + key.
func NewLocalStore(dir, urlPrefix string) *LocalStore {
	return &LocalStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

// Put writes data to dir/key, creating the directory on first use. Keys
// must be plain file names.
func (s *LocalStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("local store: invalid key %q", key)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("local store mkdir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return "", fmt.Errorf("local store write %s: %w", key, err)
	}
	return s.urlPrefix + "/" + key, nil
}

// Dir returns the directory uploads are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}
