/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestResolve(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "song.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	r := NewResolver(root, nil, zerolog.Nop())

	tests := []struct {
		name    string
		ref     string
		want    string
		local   bool
		wantErr error
	}{
		{name: "empty", ref: "  ", wantErr: ErrNoReference},
		{name: "relative", ref: "song.mp3", want: filepath.Join(root, "song.mp3"), local: true},
		{name: "file url", ref: "file://" + filepath.Join(root, "song.mp3"), want: filepath.Join(root, "song.mp3"), local: true},
		{name: "missing", ref: "nope.mp3", wantErr: ErrNotFound},
		{name: "directory", ref: root, wantErr: ErrNotFound},
		{name: "http", ref: "https://cdn.example.com/a.mp3", want: "https://cdn.example.com/a.mp3"},
		{name: "s3 without fetcher", ref: "s3://bucket/a.mp3", wantErr: ErrUnsupported},
		{name: "unknown scheme", ref: "ftp://host/a.mp3", wantErr: ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := r.Resolve(context.Background(), tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if h.Location != tt.want {
				t.Fatalf("location = %q, want %q", h.Location, tt.want)
			}
			if h.Local != tt.local {
				t.Fatalf("local = %v, want %v", h.Local, tt.local)
			}
			if err := h.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
		})
	}
}

func TestHandleCloseReleasesOnce(t *testing.T) {
	calls := 0
	h := NewHandle("x", false, func() error { calls++; return nil })
	h.Close()
	h.Close()
	if calls != 1 {
		t.Fatalf("expected one release, got %d", calls)
	}

	var nilHandle *Handle
	if err := nilHandle.Close(); err != nil {
		t.Fatalf("nil handle close: %v", err)
	}
}

func TestSplitS3(t *testing.T) {
	bucket, key, err := splitS3("s3://media/library/a.mp3")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if bucket != "media" || key != "library/a.mp3" {
		t.Fatalf("unexpected split %q %q", bucket, key)
	}
	if _, _, err := splitS3("s3://media"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestReadTagsFallsBackToFilename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Daft Punk - Around the World.mp3")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	tags := ReadTags(path)
	if tags.Artist != "Daft Punk" || tags.Title != "Around the World" {
		t.Fatalf("unexpected tags %+v", tags)
	}
}

func TestProbeRejectsUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.ogg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Probe(path); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	if SupportedExtension(path) {
		t.Fatal("ogg should not be supported")
	}
}
