package backup

import (
	"sync/atomic"
	"testing"
	"time"

	"sproutbook/internal/testutil"
)

func TestNextOccurrence_Daily(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hhmm string
		want time.Time
	}{
		{
			name: "before todays slot",
			now:  time.Date(2026, 2, 13, 1, 0, 0, 0, time.UTC), // Friday
			hhmm: "02:00",
			want: time.Date(2026, 2, 13, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "after todays slot rolls to tomorrow",
			now:  time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC), // Friday 10:00
			hhmm: "02:00",
			want: time.Date(2026, 2, 14, 2, 0, 0, 0, time.UTC), // Saturday 02:00
		},
		{
			name: "exactly at slot rolls to tomorrow",
			now:  time.Date(2026, 2, 13, 2, 0, 0, 0, time.UTC),
			hhmm: "02:00",
			want: time.Date(2026, 2, 14, 2, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOccurrence(tt.now, tt.hhmm, DayDaily)
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextOccurrence_Weekly(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hhmm string
		day  int
		want time.Time
	}{
		{
			name: "same day but slot passed waits a week",
			now:  time.Date(2026, 2, 15, 3, 0, 0, 0, time.UTC), // Sunday 03:00
			hhmm: "02:00",
			day:  0, // Sunday
			want: time.Date(2026, 2, 22, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "same day before slot",
			now:  time.Date(2026, 2, 15, 1, 0, 0, 0, time.UTC), // Sunday 01:00
			hhmm: "02:00",
			day:  0,
			want: time.Date(2026, 2, 15, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "target later this week",
			now:  time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC), // Friday
			hhmm: "02:00",
			day:  6, // Saturday
			want: time.Date(2026, 2, 14, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "target earlier in week wraps forward",
			now:  time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC), // Friday
			hhmm: "02:00",
			day:  1, // Monday
			want: time.Date(2026, 2, 16, 2, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOccurrence(tt.now, tt.hhmm, tt.day)
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence() = %v, want %v", got, tt.want)
			}
			if got.Weekday() != time.Weekday(tt.day) {
				t.Errorf("NextOccurrence() weekday = %v, want %v", got.Weekday(), time.Weekday(tt.day))
			}
		})
	}
}

func TestScheduler_ApplyArmsTimer(t *testing.T) {
	clock := testutil.NewStubClock(time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC))
	s := NewScheduler(func(string) {}, clock, NewNopLogger())
	defer s.Stop()

	settings := DefaultSettings("/tmp/backups")
	s.Apply(settings)

	next, ok := s.NextRun()
	if !ok {
		t.Fatal("NextRun() not armed after Apply")
	}
	want := time.Date(2026, 2, 14, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextRun() = %v, want %v", next, want)
	}
}

func TestScheduler_IntervalMode(t *testing.T) {
	clock := testutil.NewStubClock(time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC))
	s := NewScheduler(func(string) {}, clock, NewNopLogger())
	defer s.Stop()

	settings := DefaultSettings("/tmp/backups")
	settings.Mode = ModeInterval
	settings.IntervalHours = 6
	s.Apply(settings)

	next, ok := s.NextRun()
	if !ok {
		t.Fatal("NextRun() not armed")
	}
	want := time.Date(2026, 2, 13, 16, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextRun() = %v, want %v", next, want)
	}
}

func TestScheduler_DisabledStopsTimer(t *testing.T) {
	clock := testutil.NewStubClock(time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC))
	s := NewScheduler(func(string) {}, clock, NewNopLogger())
	defer s.Stop()

	settings := DefaultSettings("/tmp/backups")
	s.Apply(settings)

	settings.Enabled = false
	s.Apply(settings)

	if _, ok := s.NextRun(); ok {
		t.Error("NextRun() still armed after disable")
	}
}

func TestScheduler_FiresAndRearms(t *testing.T) {
	var fired atomic.Int32
	s := NewScheduler(func(trigger string) {
		if trigger != "scheduled" {
			t.Errorf("trigger = %q, want scheduled", trigger)
		}
		fired.Add(1)
	}, RealClock{}, NewNopLogger())
	defer s.Stop()

	// Interval mode with a tiny delay by arming directly at "now".
	settings := DefaultSettings("/tmp/backups")
	settings.Mode = ModeInterval
	settings.IntervalHours = 1
	s.Apply(settings)

	// Force the armed timer to fire immediately.
	s.mu.Lock()
	s.timer.Stop()
	gen := s.gen
	s.mu.Unlock()
	s.fire(gen)

	if got := fired.Load(); got != 1 {
		t.Fatalf("fired %d times, want 1", got)
	}
	if _, ok := s.NextRun(); !ok {
		t.Error("scheduler did not re-arm after firing")
	}
}

func TestScheduler_StaleGenerationSkipsRun(t *testing.T) {
	var fired atomic.Int32
	s := NewScheduler(func(string) { fired.Add(1) }, RealClock{}, NewNopLogger())
	defer s.Stop()

	settings := DefaultSettings("/tmp/backups")
	settings.Mode = ModeInterval
	s.Apply(settings)

	s.mu.Lock()
	stale := s.gen
	s.mu.Unlock()

	s.Apply(settings) // bumps generation
	s.fire(stale)

	if got := fired.Load(); got != 0 {
		t.Errorf("stale firing ran the backup %d times, want 0", got)
	}
}
