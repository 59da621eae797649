/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "testing"

func TestCuePoint(t *testing.T) {
	tests := []struct {
		name     string
		outro    float64
		duration float64
		want     float64
		wantOK   bool
	}{
		{"no outro", 0, 200, 0, false},
		{"regular outro", 10, 200, 190, true},
		{"falls back to track duration", 10, 0, 170, true},
		{"outro equals duration", 200, 200, 0, true},
		{"outro longer than media", 250, 200, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := Track{Duration: 180, OutroTime: tt.outro}
			cue, ok := track.CuePoint(tt.duration)
			if cue != tt.want || ok != tt.wantOK {
				t.Fatalf("CuePoint(%v) = (%v, %v), want (%v, %v)", tt.duration, cue, ok, tt.want, tt.wantOK)
			}
		})
	}
}
