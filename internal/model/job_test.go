package model

import (
	"testing"
)

func TestJobStatusTransitions(t *testing.T) {
	cases := []struct {
		from JobStatus
		to   JobStatus
		want bool
	}{
		{JobStatusQueued, JobStatusAnalyzing, true},
		{JobStatusQueued, JobStatusGrading, true},
		{JobStatusQueued, JobStatusComplete, true},
		{JobStatusQueued, JobStatusFailed, true},
		{JobStatusAnalyzing, JobStatusGrading, true},
		{JobStatusAnalyzing, JobStatusComplete, true},
		{JobStatusAnalyzing, JobStatusFailed, true},
		{JobStatusGrading, JobStatusComplete, true},
		{JobStatusGrading, JobStatusFailed, true},

		// backward moves are never allowed
		{JobStatusAnalyzing, JobStatusQueued, false},
		{JobStatusGrading, JobStatusAnalyzing, false},
		{JobStatusGrading, JobStatusQueued, false},

		// terminal statuses accept nothing
		{JobStatusComplete, JobStatusFailed, false},
		{JobStatusComplete, JobStatusGrading, false},
		{JobStatusFailed, JobStatusComplete, false},
		{JobStatusFailed, JobStatusAnalyzing, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	for _, s := range []JobStatus{JobStatusQueued, JobStatusAnalyzing, JobStatusGrading} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobStatusComplete, JobStatusFailed} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestMoodIsValid(t *testing.T) {
	for _, m := range ValidMoods {
		if !m.IsValid() {
			t.Errorf("%s should be valid", m)
		}
	}
	for _, m := range []Mood{"", "noir", "CINEMATIC"} {
		if m.IsValid() {
			t.Errorf("%q should not be valid", m)
		}
	}
}

func TestStringListRoundTrip(t *testing.T) {
	list := StringList{"clip-a", "clip-b"}

	value, err := list.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var got StringList
	if err := got.Scan(value); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 || got[0] != "clip-a" || got[1] != "clip-b" {
		t.Errorf("round trip mismatch: %v", got)
	}

	var empty StringList
	if err := empty.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty list from NULL, got %v", empty)
	}
}

func TestJobProgressTracksFailures(t *testing.T) {
	p := NewJobProgress([]string{"clip-a", "clip-b", "clip-c"})

	if got := p.CountStage(ClipStagePending); got != 3 {
		t.Fatalf("expected 3 pending clips, got %d", got)
	}

	p.SetStage("clip-a", ClipStageAnalyzed)
	p.Fail("clip-b", "analysis failed: timeout")
	p.SetStage("clip-c", ClipStageGraded)

	if got := p.Stage("clip-b"); got != ClipStageFailed {
		t.Errorf("expected clip-b failed, got %s", got)
	}

	failures := p.Failures()
	if len(failures) != 1 || failures[0].ClipID != "clip-b" {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if failures[0].Err != "analysis failed: timeout" {
		t.Errorf("unexpected failure reason: %q", failures[0].Err)
	}

	// unknown clip ids are ignored
	p.Fail("clip-zz", "should not appear")
	if got := len(p.Failures()); got != 1 {
		t.Errorf("unknown clip id must be ignored, got %d failures", got)
	}
}
