package backup

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Scheduler arms a single timer for the next automatic backup and re-arms
// it after each firing. Apply replaces the schedule atomically: the old
// timer is cancelled before the new one is armed, so at most one timer is
// live at any moment.
type Scheduler struct {
	run    func(trigger string)
	clock  Clock
	logger Logger

	mu       sync.Mutex
	timer    *time.Timer
	gen      uint64
	settings Settings
	armed    bool
	nextAt   time.Time
}

// NewScheduler creates a stopped scheduler. run is invoked (on the timer
// goroutine) for every firing, with the trigger label for the backup log.
func NewScheduler(run func(trigger string), clock Clock, logger Logger) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Scheduler{run: run, clock: clock, logger: logger}
}

// Apply replaces the active schedule with the given settings. Disabled
// settings stop the scheduler.
func (s *Scheduler) Apply(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.settings = settings
	if !settings.Enabled {
		s.logger.Info("backup scheduler disabled")
		return
	}
	s.armLocked()
}

// Stop cancels any armed timer. The scheduler can be re-armed with Apply.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// NextRun returns the time of the next scheduled backup and whether one is
// armed.
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return time.Time{}, false
	}
	return s.nextAt, true
}

func (s *Scheduler) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.armed = false
}

func (s *Scheduler) armLocked() {
	now := s.clock.Now()
	next := s.nextLocked(now)
	delay := next.Sub(now)
	if delay < 0 {
		delay = 0
	}

	gen := s.gen
	s.timer = time.AfterFunc(delay, func() { s.fire(gen) })
	s.armed = true
	s.nextAt = next
	s.logger.Info("backup scheduled", "next_run", next.Format(time.RFC3339), "mode", s.settings.Mode)
}

func (s *Scheduler) nextLocked(now time.Time) time.Time {
	if s.settings.Mode == ModeInterval {
		return now.Add(time.Duration(s.settings.IntervalHours) * time.Hour)
	}
	return NextOccurrence(now, s.settings.ScheduleTime, s.settings.ScheduleDay)
}

// fire runs one scheduled backup and re-arms the timer. A stale generation
// means Apply or Stop raced the firing; the run is skipped.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduled backup panicked", "panic", fmt.Sprint(r))
			}
		}()
		s.run("scheduled")
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || !s.settings.Enabled {
		return
	}
	s.gen++
	s.armLocked()
}

// NextOccurrence computes the next wall-clock occurrence of hhmm ("HH:MM")
// strictly after now, in now's location. day selects a weekday (0=Sunday)
// or DayDaily for every day.
func NextOccurrence(now time.Time, hhmm string, day int) time.Time {
	hour, minute := parseHHMM(hhmm)
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	if day == DayDaily {
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate
	}

	offset := (day - int(now.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, offset)
	if offset == 0 && !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// parseHHMM splits a pre-validated "HH:MM" string. Malformed input falls
// back to midnight rather than panicking; Settings.Validate is the gate.
func parseHHMM(hhmm string) (hour, minute int) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	hour, _ = strconv.Atoi(parts[0])
	minute, _ = strconv.Atoi(parts[1])
	return hour, minute
}
