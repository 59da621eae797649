/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package media resolves track media references into locations the audio
// renderer can open, and probes local media for metadata.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrNoReference indicates a track without a media reference.
	ErrNoReference = errors.New("media reference is empty")

	// ErrNotFound indicates the referenced media does not exist.
	ErrNotFound = errors.New("media not found")

	// ErrUnsupported indicates a reference scheme the resolver cannot serve.
	ErrUnsupported = errors.New("unsupported media reference")
)

// Handle is a resolved media reference. Handles backed by a transient
// resource (a downloaded object) must be closed when the deck lets go of them.
type Handle struct {
	Location string
	Local    bool

	once    sync.Once
	release func() error
}

// NewHandle wraps location. release, when non-nil, runs once on Close.
func NewHandle(location string, local bool, release func() error) *Handle {
	return &Handle{Location: location, Local: local, release: release}
}

// Close releases the transient resource behind the handle, if any.
func (h *Handle) Close() error {
	if h == nil || h.release == nil {
		return nil
	}
	var err error
	h.once.Do(func() { err = h.release() })
	return err
}

// Resolver turns media references into handles.
//
// Supported references: absolute or media-root relative paths, file:// URLs,
// http(s):// URLs (passed through to the renderer) and s3://bucket/key objects
// (downloaded to a temporary file when an S3 fetcher is configured).
type Resolver struct {
	root   string
	s3     *S3Fetcher
	logger zerolog.Logger
}

// NewResolver creates a resolver rooted at mediaRoot. s3 may be nil.
func NewResolver(mediaRoot string, s3 *S3Fetcher, logger zerolog.Logger) *Resolver {
	return &Resolver{
		root:   mediaRoot,
		s3:     s3,
		logger: logger.With().Str("component", "media-resolver").Logger(),
	}
}

// Resolve validates ref and returns a handle the renderer can open.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*Handle, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNoReference
	}

	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return &Handle{Location: ref}, nil
	case strings.HasPrefix(lower, "s3://"):
		return r.resolveS3(ctx, ref)
	case strings.HasPrefix(lower, "file://"):
		return r.resolvePath(ref[len("file://"):])
	case strings.Contains(lower, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ref)
	default:
		return r.resolvePath(ref)
	}
}

func (r *Resolver) resolvePath(path string) (*Handle, error) {
	if !filepath.IsAbs(path) && r.root != "" {
		path = filepath.Join(r.root, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat media: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return &Handle{Location: path, Local: true}, nil
}

func (r *Resolver) resolveS3(ctx context.Context, ref string) (*Handle, error) {
	if r.s3 == nil {
		return nil, fmt.Errorf("%w: s3 storage not configured", ErrUnsupported)
	}
	bucket, key, err := splitS3(ref)
	if err != nil {
		return nil, err
	}
	path, err := r.s3.Fetch(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Str("bucket", bucket).Str("key", key).Str("path", path).Msg("media object fetched")
	return NewHandle(path, true, func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}), nil
}

// splitS3 parses s3://bucket/key.
func splitS3(ref string) (string, string, error) {
	rest := ref[len("s3://"):]
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: malformed s3 reference %q", ErrUnsupported, ref)
	}
	return bucket, key, nil
}
