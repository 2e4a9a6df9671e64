// Package device holds the player's shared mutable state — brightness,
// screen power, and their schedules — behind a single mutex rather than
// a constellation of atomics.
package device

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// BrightnessScheduleEntry sets the brightness level to apply starting at a
// given time of day.
type BrightnessScheduleEntry struct {
	Hour   uint8
	Minute uint8
	Level  uint8 // 0-100
}

// ScreenScheduleEntry turns the screen on for one daily time window on a
// set of weekdays.
type ScreenScheduleEntry struct {
	OnTime  string // HH:MM:SS
	OffTime string // HH:MM:SS
	Days    string // comma-separated weekday abbreviations, e.g. "Mon,Tue"
}

// State is the single shared mutable record of device runtime configuration.
// Every getter/setter takes the same RWMutex; there is deliberately no
// per-field locking.
type State struct {
	mu sync.RWMutex

	brightnessLevel    uint8
	brightnessSchedule []BrightnessScheduleEntry

	screenOn          bool
	screenSchedule    []ScreenScheduleEntry
	screenLastApplied *bool

	deviceID   string
	deviceName string
}

// New builds device state with the screen on and brightness at full.
func New(deviceID, deviceName string) *State {
	return &State{
		brightnessLevel: 100,
		screenOn:        true,
		deviceID:        deviceID,
		deviceName:      deviceName,
	}
}

func (s *State) DeviceID() string   { return s.deviceID }
func (s *State) DeviceName() string { return s.deviceName }

// Brightness returns the current software brightness level (0-100).
func (s *State) Brightness() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.brightnessLevel
}

// SetBrightness clamps level to 100 and stores it.
func (s *State) SetBrightness(level uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if level > 100 {
		level = 100
	}
	s.brightnessLevel = level
}

// ScreenOn reports whether the display is currently powered.
func (s *State) ScreenOn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screenOn
}

// SetScreenOn sets the display power flag directly.
func (s *State) SetScreenOn(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenOn = on
}

// SetBrightnessSchedule replaces the brightness schedule wholesale.
func (s *State) SetBrightnessSchedule(entries []BrightnessScheduleEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brightnessSchedule = append([]BrightnessScheduleEntry(nil), entries...)
}

// BrightnessSchedule returns a copy of the current schedule.
func (s *State) BrightnessSchedule() []BrightnessScheduleEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]BrightnessScheduleEntry(nil), s.brightnessSchedule...)
}

// SetScreenSchedule replaces the screen power schedule wholesale, resetting
// the last-applied marker so the next check always re-evaluates.
func (s *State) SetScreenSchedule(entries []ScreenScheduleEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenSchedule = append([]ScreenScheduleEntry(nil), entries...)
	s.screenLastApplied = nil
}

// ScreenSchedule returns a copy of the current schedule.
func (s *State) ScreenSchedule() []ScreenScheduleEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ScreenScheduleEntry(nil), s.screenSchedule...)
}

// CheckBrightnessSchedule applies the most recent schedule entry at or
// before "now", wrapping to the last entry if none has elapsed yet today.
func (s *State) CheckBrightnessSchedule(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.brightnessSchedule) == 0 {
		return
	}
	currentMinutes := now.Hour()*60 + now.Minute()
	entries := append([]BrightnessScheduleEntry(nil), s.brightnessSchedule...)
	sort.Slice(entries, func(i, j int) bool {
		return int(entries[i].Hour)*60+int(entries[i].Minute) < int(entries[j].Hour)*60+int(entries[j].Minute)
	})

	var best *BrightnessScheduleEntry
	for i := range entries {
		entryMinutes := int(entries[i].Hour)*60 + int(entries[i].Minute)
		if entryMinutes <= currentMinutes {
			best = &entries[i]
		}
	}
	if best == nil {
		best = &entries[len(entries)-1]
	}
	s.brightnessLevel = best.Level
}

// ShouldScreenBeOn evaluates the screen schedule for "now"; the second
// return value is false when there is no configured schedule, meaning the
// caller should leave screen power untouched.
func (s *State) ShouldScreenBeOn(now time.Time) (on bool, hasSchedule bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.screenSchedule) == 0 {
		return false, false
	}
	currentTime := now.Format("15:04:05")
	dayName := now.Format("Mon")
	for _, entry := range s.screenSchedule {
		if entry.Days != "" && !containsDay(entry.Days, dayName) {
			continue
		}
		if currentTime >= entry.OnTime && currentTime < entry.OffTime {
			return true, true
		}
	}
	return false, true
}

// ApplyScreenSchedule evaluates the schedule and reports whether the
// caller should issue a screen-power transition, deduplicating repeated
// identical states the way the exiting last_state tracking does.
func (s *State) ApplyScreenSchedule(now time.Time) (shouldChange bool, on bool) {
	want, has := s.ShouldScreenBeOn(now)
	if !has {
		return false, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screenLastApplied != nil && *s.screenLastApplied == want {
		return false, want
	}
	s.screenLastApplied = &want
	return true, want
}

func containsDay(days, day string) bool {
	for _, d := range splitComma(days) {
		if d == day {
			return true
		}
	}
	return false
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// EncodeBrightnessSchedule serializes entries as "Hour:Minute:Level" joined
// by ";", for storage as a single text column value.
func EncodeBrightnessSchedule(entries []BrightnessScheduleEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%d:%d:%d", e.Hour, e.Minute, e.Level))
	}
	return strings.Join(parts, ";")
}

// DecodeBrightnessSchedule parses the format written by
// EncodeBrightnessSchedule, skipping any malformed entry rather than
// failing the whole restore.
func DecodeBrightnessSchedule(encoded string) []BrightnessScheduleEntry {
	if encoded == "" {
		return nil
	}
	var out []BrightnessScheduleEntry
	for _, part := range strings.Split(encoded, ";") {
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			continue
		}
		hour, err1 := strconv.ParseUint(fields[0], 10, 8)
		minute, err2 := strconv.ParseUint(fields[1], 10, 8)
		level, err3 := strconv.ParseUint(fields[2], 10, 8)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		out = append(out, BrightnessScheduleEntry{Hour: uint8(hour), Minute: uint8(minute), Level: uint8(level)})
	}
	return out
}

// EncodeScreenSchedule serializes entries as "OnTime|OffTime|Days" joined
// by ";", for storage as a single text column value.
func EncodeScreenSchedule(entries []ScreenScheduleEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s|%s|%s", e.OnTime, e.OffTime, e.Days))
	}
	return strings.Join(parts, ";")
}

// DecodeScreenSchedule parses the format written by EncodeScreenSchedule,
// skipping any malformed entry rather than failing the whole restore.
func DecodeScreenSchedule(encoded string) []ScreenScheduleEntry {
	if encoded == "" {
		return nil
	}
	var out []ScreenScheduleEntry
	for _, part := range strings.Split(encoded, ";") {
		fields := strings.SplitN(part, "|", 3)
		if len(fields) != 3 {
			continue
		}
		out = append(out, ScreenScheduleEntry{OnTime: fields[0], OffTime: fields[1], Days: fields[2]})
	}
	return out
}

// ApplyBrightness multiplies each pixel's RGB channels by the current
// brightness level, leaving alpha untouched. A level of 100 is a no-op.
func (s *State) ApplyBrightness(pix []byte) {
	level := s.Brightness()
	if level >= 100 {
		return
	}
	factor := float64(level) / 100.0
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = uint8(float64(pix[i]) * factor)
		pix[i+1] = uint8(float64(pix[i+1]) * factor)
		pix[i+2] = uint8(float64(pix[i+2]) * factor)
	}
}
