// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage stores uploaded catalog images. A BlobStore writes bytes
// under a key and returns the public URL; the local filesystem and
// S3-compatible object storage are the two implementations.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUploadFailed wraps every failure to persist an uploaded file.
var ErrUploadFailed = errors.New("upload failed")

// BlobStore persists bytes under key and returns the URL they are served at.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Stored describes a successfully stored upload. ThumbURL is empty when no
// thumbnail was produced.
type Stored struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	ThumbURL string `json:"thumbUrl,omitempty"`
}

// Uploader names uploads and writes them, with an optional thumbnail, to a
// BlobStore.
type Uploader struct {
	blobs BlobStore
	now   func() time.Time
}

// NewUploader returns an Uploader writing to blobs.
func NewUploader(blobs BlobStore) *Uploader {
	return &Uploader{blobs: blobs, now: time.Now}
}

// Store writes data under a fresh "<unix-millis>-<8 hex>" filename that
// keeps the original extension. Raster images wider than the thumbnail
// width also get a "<name>_thumb.jpg" companion; thumbnail failures are
// logged and otherwise ignored.
func (u *Uploader) Store(ctx context.Context, data []byte, originalName, contentType string) (*Stored, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ExtensionFromType(contentType)
	}
	filename := fmt.Sprintf("%d-%s%s", u.now().UnixMilli(), uuid.NewString()[:8], ext)

	url, err := u.blobs.Put(ctx, filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUploadFailed, filename, err)
	}
	stored := &Stored{URL: url, Filename: filename}

	if !Thumbable(contentType) {
		return stored, nil
	}

	thumb, err := GenerateThumbnail(bytes.NewReader(data), ThumbMaxWidth)
	if err != nil {
		slog.Warn("thumbnail generation failed", "error", err, "filename", filename)
		return stored, nil
	}
	if thumb == nil {
		return stored, nil
	}

	thumbName := strings.TrimSuffix(filename, ext) + "_thumb.jpg"
	thumbURL, err := u.blobs.Put(ctx, thumbName, "image/jpeg", thumb)
	if err != nil {
		slog.Warn("thumbnail upload failed", "error", err, "filename", thumbName)
		return stored, nil
	}
	stored.ThumbURL = thumbURL
	return stored, nil
}

// ExtensionFromType returns a file extension for known image MIME types.
func ExtensionFromType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	default:
		return ""
	}
}
