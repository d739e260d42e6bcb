package backup

import (
	"fmt"
	"regexp"
	"strconv"
)

// Backup modes.
const (
	ModeInterval = "interval" // every N hours, anchored at arming time
	ModeSchedule = "schedule" // at a wall-clock time, daily or weekly
)

// DayDaily selects every day of the week in schedule mode.
const DayDaily = -1

// Settings are the runtime-adjustable backup settings, persisted in the
// settings store so they survive restarts without a config file edit.
type Settings struct {
	Enabled       bool   `json:"enabled"`
	Mode          string `json:"mode"`
	IntervalHours int    `json:"interval_hours"`
	ScheduleTime  string `json:"schedule_time"` // HH:MM, 24-hour
	ScheduleDay   int    `json:"schedule_day"`  // 0=Sunday..6=Saturday, DayDaily for every day
	StoragePath   string `json:"storage_path"`
	MaxRetained   int    `json:"max_retained"`
}

// Settings store keys.
const (
	keyEnabled       = "backup.enabled"
	keyMode          = "backup.mode"
	keyIntervalHours = "backup.interval_hours"
	keyScheduleTime  = "backup.schedule_time"
	keyScheduleDay   = "backup.schedule_day"
	keyStoragePath   = "backup.storage_path"
	keyMaxRetained   = "backup.max_retained"
)

// SettingsStore is the key/value persistence surface for backup settings.
type SettingsStore interface {
	Setting(key string) (string, error)
	SaveSettings(values map[string]string) error
}

// DefaultSettings returns the settings used before any are persisted.
// defaultStoragePath comes from the process configuration.
func DefaultSettings(defaultStoragePath string) Settings {
	return Settings{
		Enabled:       true,
		Mode:          ModeSchedule,
		IntervalHours: 24,
		ScheduleTime:  "02:00",
		ScheduleDay:   DayDaily,
		StoragePath:   defaultStoragePath,
		MaxRetained:   10,
	}
}

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Validate checks the settings for internal consistency.
func (s Settings) Validate() error {
	switch s.Mode {
	case ModeInterval, ModeSchedule:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidSettings, s.Mode)
	}
	if s.IntervalHours < 1 {
		return fmt.Errorf("%w: interval must be at least 1 hour", ErrInvalidSettings)
	}
	if !timePattern.MatchString(s.ScheduleTime) {
		return fmt.Errorf("%w: schedule time %q is not HH:MM", ErrInvalidSettings, s.ScheduleTime)
	}
	if s.ScheduleDay != DayDaily && (s.ScheduleDay < 0 || s.ScheduleDay > 6) {
		return fmt.Errorf("%w: schedule day %d out of range", ErrInvalidSettings, s.ScheduleDay)
	}
	if s.StoragePath == "" {
		return fmt.Errorf("%w: storage path is required", ErrInvalidSettings)
	}
	if s.MaxRetained < 1 {
		return fmt.Errorf("%w: retention limit must be at least 1", ErrInvalidSettings)
	}
	return nil
}

// LoadSettings reads the persisted settings, falling back to defaults for
// keys that have never been saved.
func LoadSettings(store SettingsStore, defaultStoragePath string) (Settings, error) {
	s := DefaultSettings(defaultStoragePath)

	read := func(key string) (string, bool, error) {
		v, err := store.Setting(key)
		if err != nil {
			return "", false, fmt.Errorf("reading %s: %w", key, err)
		}
		return v, v != "", nil
	}

	if v, ok, err := read(keyEnabled); err != nil {
		return s, err
	} else if ok {
		s.Enabled = v == "true"
	}
	if v, ok, err := read(keyMode); err != nil {
		return s, err
	} else if ok {
		s.Mode = v
	}
	if v, ok, err := read(keyIntervalHours); err != nil {
		return s, err
	} else if ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("parsing %s: %w", keyIntervalHours, err)
		}
		s.IntervalHours = n
	}
	if v, ok, err := read(keyScheduleTime); err != nil {
		return s, err
	} else if ok {
		s.ScheduleTime = v
	}
	if v, ok, err := read(keyScheduleDay); err != nil {
		return s, err
	} else if ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("parsing %s: %w", keyScheduleDay, err)
		}
		s.ScheduleDay = n
	}
	if v, ok, err := read(keyStoragePath); err != nil {
		return s, err
	} else if ok {
		s.StoragePath = v
	}
	if v, ok, err := read(keyMaxRetained); err != nil {
		return s, err
	} else if ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("parsing %s: %w", keyMaxRetained, err)
		}
		s.MaxRetained = n
	}

	return s, nil
}

// SaveSettings persists all settings keys atomically.
func SaveSettings(store SettingsStore, s Settings) error {
	values := map[string]string{
		keyEnabled:       strconv.FormatBool(s.Enabled),
		keyMode:          s.Mode,
		keyIntervalHours: strconv.Itoa(s.IntervalHours),
		keyScheduleTime:  s.ScheduleTime,
		keyScheduleDay:   strconv.Itoa(s.ScheduleDay),
		keyStoragePath:   s.StoragePath,
		keyMaxRetained:   strconv.Itoa(s.MaxRetained),
	}
	if err := store.SaveSettings(values); err != nil {
		return fmt.Errorf("saving backup settings: %w", err)
	}
	return nil
}
