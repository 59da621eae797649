/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build version information.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is the current version of Radio Pro Automation.
// This is set at build time via ldflags:
//
//	-X github.com/godtalktv/radio-pro-automation/internal/version.Version=X.Y.Z
var Version = "0.9.0"

// Commit returns the VCS revision embedded by the Go toolchain, if any.
func Commit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}

// String formats the version for CLI output.
func String() string {
	if c := Commit(); c != "" {
		return fmt.Sprintf("%s (%s)", Version, c)
	}
	return Version
}
