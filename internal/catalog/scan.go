/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/godtalktv/radio-pro-automation/internal/media"
	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/rs/zerolog"
)

// ScanDirectory walks root for decodable media and builds music tracks from
// their tags and probed duration. Media references are relative to root.
// Files that fail to probe are logged and skipped.
func ScanDirectory(root string, logger zerolog.Logger) ([]models.Track, error) {
	var tracks []models.Track
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !media.SupportedExtension(path) {
			return nil
		}

		dur, err := media.Probe(path)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("skipping undecodable media")
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		tags := media.ReadTags(path)
		tracks = append(tracks, models.Track{
			ID:        TrackID(rel),
			Title:     tags.Title,
			Artist:    tags.Artist,
			Album:     tags.Album,
			Category:  strings.ToLower(tags.Genre),
			Duration:  dur.Seconds(),
			TrackType: models.TrackTypeMusic,
			MediaURL:  rel,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("root", root).Int("tracks", len(tracks)).Msg("media directory scanned")
	return tracks, nil
}
