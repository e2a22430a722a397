// Package prefs loads user booking preferences from a YAML file and keeps an
// in-memory snapshot refreshed when the file changes.
package prefs

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/courtbot/tennis-bot/internal/slots"
)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

type rawFile struct {
	Preferences []rawPreference `mapstructure:"preferences" validate:"dive"`
}

type rawPreference struct {
	UserID   int64    `mapstructure:"user_id" validate:"required"`
	Weekdays []string `mapstructure:"weekdays" validate:"min=1"`
	Times    []string `mapstructure:"times" validate:"min=1"`
	Courts   []int    `mapstructure:"courts"`
	Priority int      `mapstructure:"priority" validate:"min=1"`
}

// Store serves read-mostly preference snapshots. Readers always get copies,
// so a reload during a pipeline run cannot change the run's view.
type Store struct {
	v   *viper.Viper
	log *slog.Logger

	mu          sync.RWMutex
	preferences []slots.Preference
}

// NewStore loads the preferences file at path and returns a Store for it.
func NewStore(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	v := viper.New()
	v.SetConfigFile(path)

	s := &Store{v: v, log: log}
	if err := s.reload(); err != nil {
		return nil, err
	}

	return s, nil
}

// Watch re-reads the preferences file whenever it changes on disk. Invalid
// edits are logged and the previous snapshot stays in effect.
func (s *Store) Watch() {
	s.v.OnConfigChange(func(event fsnotify.Event) {
		if err := s.reload(); err != nil {
			s.log.Error("preferences reload failed, keeping previous snapshot",
				slog.String("file", event.Name), slog.Any("error", err))
			return
		}
		s.log.Info("preferences reloaded", slog.String("file", event.Name))
	})
	s.v.WatchConfig()
}

// Preferences returns a copy of the current preference snapshot.
func (s *Store) Preferences() []slots.Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]slots.Preference, len(s.preferences))
	copy(snapshot, s.preferences)
	return snapshot
}

// ForWeekday returns the preferences covering the given weekday.
func (s *Store) ForWeekday(day time.Weekday) []slots.Preference {
	var applicable []slots.Preference
	for _, p := range s.Preferences() {
		if p.AppliesTo(day) {
			applicable = append(applicable, p)
		}
	}
	return applicable
}

func (s *Store) reload() error {
	if err := s.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read preferences: %w", err)
	}

	var raw rawFile
	if err := s.v.Unmarshal(&raw); err != nil {
		return fmt.Errorf("unmarshal preferences: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(raw); err != nil {
		return fmt.Errorf("validate preferences: %w", err)
	}

	parsed, err := parsePreferences(raw.Preferences)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.preferences = parsed
	s.mu.Unlock()

	s.log.Info("loaded preferences", slog.Int("count", len(parsed)))
	return nil
}

func parsePreferences(raw []rawPreference) ([]slots.Preference, error) {
	type userDay struct {
		user int64
		day  time.Weekday
	}
	seen := make(map[userDay]bool)

	parsed := make([]slots.Preference, 0, len(raw))
	for _, entry := range raw {
		pref := slots.Preference{
			UserID:   entry.UserID,
			Courts:   append([]int(nil), entry.Courts...),
			Priority: entry.Priority,
		}

		for _, name := range entry.Weekdays {
			day, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				return nil, fmt.Errorf("unknown weekday %q", name)
			}
			if seen[userDay{entry.UserID, day}] {
				return nil, fmt.Errorf("duplicate weekday %q for user %d", name, entry.UserID)
			}
			seen[userDay{entry.UserID, day}] = true
			pref.Weekdays = append(pref.Weekdays, day)
		}

		for _, spec := range entry.Times {
			r, err := slots.ParseRange(spec)
			if err != nil {
				return nil, fmt.Errorf("user %d: %w", entry.UserID, err)
			}
			pref.Times = append(pref.Times, r)
		}

		parsed = append(parsed, pref)
	}

	return parsed, nil
}

// Describe renders the snapshot as a plain-text schedule for the bot.
func (s *Store) Describe() string {
	preferences := s.Preferences()
	if len(preferences) == 0 {
		return "No booking preferences configured."
	}

	var b strings.Builder
	b.WriteString("Schedule and preferences:\n")
	for _, p := range preferences {
		days := make([]string, len(p.Weekdays))
		for i, d := range p.Weekdays {
			days[i] = d.String()
		}
		times := make([]string, len(p.Times))
		for i, r := range p.Times {
			times[i] = r.String()
		}
		fmt.Fprintf(&b, "• %s at %s", strings.Join(days, ", "), strings.Join(times, ", "))
		if len(p.Courts) > 0 {
			fmt.Fprintf(&b, " (prefer courts %s)", joinInts(p.Courts))
		}
		fmt.Fprintf(&b, " [priority %d]\n", p.Priority)
	}
	return b.String()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
