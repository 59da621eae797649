/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"
)

// Tags holds the descriptive metadata embedded in a media file.
type Tags struct {
	Title  string
	Artist string
	Album  string
	Genre  string
}

// SupportedExtension reports whether Probe can decode the file type.
func SupportedExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".wav":
		return true
	}
	return false
}

// Probe returns the playback duration of a local media file.
func Probe(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		return 0, fmt.Errorf("%w: cannot probe %s", ErrUnsupported, filepath.Ext(path))
	}
	if err != nil {
		return 0, fmt.Errorf("decode media: %w", err)
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}

// ReadTags reads ID3/MP4/FLAC tags. Files without tags yield a title derived
// from the file name in "Artist - Title" form when possible.
func ReadTags(path string) Tags {
	fallback := tagsFromFilename(path)

	f, err := os.Open(path)
	if err != nil {
		return fallback
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return fallback
	}

	out := Tags{
		Title:  strings.TrimSpace(meta.Title()),
		Artist: strings.TrimSpace(meta.Artist()),
		Album:  strings.TrimSpace(meta.Album()),
		Genre:  strings.TrimSpace(meta.Genre()),
	}
	if out.Title == "" {
		out.Title = fallback.Title
	}
	if out.Artist == "" {
		out.Artist = fallback.Artist
	}
	return out
}

func tagsFromFilename(path string) Tags {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if artist, title, ok := strings.Cut(name, " - "); ok {
		return Tags{Artist: strings.TrimSpace(artist), Title: strings.TrimSpace(title)}
	}
	return Tags{Title: name}
}
