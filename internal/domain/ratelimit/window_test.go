package ratelimit

import (
	"testing"
	"time"
)

func TestCurrentResetsElapsedWindow(t *testing.T) {
	start := time.Unix(0, 0)
	w := WindowState{ScanCount: 7, WindowStart: start, ResetAt: start.Add(Window)}

	if got := w.Current(start.Add(30 * time.Minute)); got.ScanCount != 7 {
		t.Fatalf("open window should be unchanged, got %+v", got)
	}

	at := start.Add(Window)
	got := w.Current(at)
	if got.ScanCount != 0 || !got.WindowStart.Equal(at) || !got.ResetAt.Equal(at.Add(Window)) {
		t.Fatalf("expected fresh window at reset boundary, got %+v", got)
	}
}

func TestStatusOf(t *testing.T) {
	now := time.Unix(100, 0)
	tests := []struct {
		count     int
		allowed   bool
		remaining int
	}{
		{count: 0, allowed: true, remaining: 10},
		{count: 9, allowed: true, remaining: 1},
		{count: 10, allowed: false, remaining: 0},
		{count: 12, allowed: false, remaining: 0},
	}
	for _, tt := range tests {
		w := Fresh(now)
		w.ScanCount = tt.count
		st := StatusOf(w)
		if st.Allowed != tt.allowed || st.Remaining != tt.remaining || st.ScanCount != tt.count {
			t.Errorf("count=%d: unexpected status %+v", tt.count, st)
		}
	}
}

func TestFormatTimeRemaining(t *testing.T) {
	now := time.Unix(1_000, 0)
	tests := []struct {
		resetAt time.Time
		want    string
	}{
		{resetAt: now.Add(45 * time.Minute), want: "45 mins"},
		{resetAt: now.Add(time.Minute + 30*time.Second), want: "1 min"},
		{resetAt: now.Add(59 * time.Second), want: "59 secs"},
		{resetAt: now.Add(time.Second), want: "1 sec"},
		{resetAt: now.Add(-time.Minute), want: "0 secs"},
	}
	for _, tt := range tests {
		if got := FormatTimeRemaining(tt.resetAt, now); got != tt.want {
			t.Errorf("FormatTimeRemaining(%v) = %q, want %q", tt.resetAt.Sub(now), got, tt.want)
		}
	}
}
