/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); got != tt.want {
			t.Fatalf("sampler(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestDisabledTracing(t *testing.T) {
	tp, err := InitTracer(context.Background(), TracerConfig{ServiceName: "radiopro"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	_, span := StartSpan(context.Background(), ScopePlayout, "test", "s1")
	EndSpan(span, errors.New("boom"))
	if span.SpanContext().IsValid() {
		t.Fatal("expected a no-op span when tracing is disabled")
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
