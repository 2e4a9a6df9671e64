// Package store persists the last accepted program XML, uploaded media
// assets, and the device-state index (brightness, schedules, file
// metadata) that must survive a restart.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ledsign/boxplayer/internal/device"
)

const programFileName = "current_program.xml"

// Store owns the program directory on disk plus a small SQLite database
// recording the upload index and device-state snapshot, rather than
// hand-rolling a flat-file index.
type Store struct {
	dir string
	db  *sql.DB
}

// Open creates the program directory if needed and opens (creating if
// absent) state.db inside it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create program dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("store: open state db: %w", err)
	}
	s := &Store{dir: dir, db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			name       TEXT PRIMARY KEY,
			size       INTEGER NOT NULL,
			md5        TEXT NOT NULL,
			received_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS device_state (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the program directory path.
func (s *Store) Dir() string { return s.dir }

// SaveProgram writes the accepted screen XML verbatim to
// current_program.xml.
func (s *Store) SaveProgram(xml []byte) error {
	path := filepath.Join(s.dir, programFileName)
	if err := os.WriteFile(path, xml, 0o644); err != nil {
		return fmt.Errorf("store: save program: %w", err)
	}
	return nil
}

// LoadProgram reads the persisted program XML, if any. It returns
// (nil, nil) when no program has ever been accepted.
func (s *Store) LoadProgram() ([]byte, error) {
	path := filepath.Join(s.dir, programFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load program: %w", err)
	}
	return data, nil
}

// ClearProgram removes the persisted program XML, if present.
func (s *Store) ClearProgram() error {
	path := filepath.Join(s.dir, programFileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: clear program: %w", err)
	}
	return nil
}

// SaveFile atomically writes a received media file to the program
// directory under its sanitized original filename, and records it in the
// upload index.
func (s *Store) SaveFile(name string, data []byte, md5 string) error {
	safe := sanitizeFilename(name)
	path := filepath.Join(s.dir, safe)
	tmp := path + ".partial"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write file %s: %w", safe, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: finalize file %s: %w", safe, err)
	}
	_, err := s.db.Exec(
		`INSERT INTO files (name, size, md5, received_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET size=excluded.size, md5=excluded.md5, received_at=excluded.received_at`,
		safe, len(data), md5, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store: index file %s: %w", safe, err)
	}
	return nil
}

// ListFiles returns the names of regular, non-program files directly
// under the program directory.
func (s *Store) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("store: list files: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == programFileName || name == "state.db" || strings.HasSuffix(name, ".partial") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// GetFiles returns the names recorded in the upload index, as opposed to
// ListFiles which walks the filesystem directly.
func (s *Store) GetFiles() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM files ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: get files: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: scan file row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate file rows: %w", err)
	}
	return names, nil
}

// DeleteFile removes one file from the program directory and its index
// entry.
func (s *Store) DeleteFile(name string) error {
	safe := sanitizeFilename(name)
	path := filepath.Join(s.dir, safe)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete file %s: %w", safe, err)
	}
	if _, err := s.db.Exec(`DELETE FROM files WHERE name = ?`, safe); err != nil {
		return fmt.Errorf("store: unindex file %s: %w", safe, err)
	}
	return nil
}

// Clear removes every regular file under the program directory (except
// the state database itself) and truncates the file index.
func (s *Store) Clear() error {
	names, err := s.ListFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("store: clear file %s: %w", name, err)
		}
	}
	if err := s.ClearProgram(); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM files`); err != nil {
		return fmt.Errorf("store: clear file index: %w", err)
	}
	return nil
}

// PutDeviceStateValue persists one key/value pair in the device_state
// table, used to survive restarts for things like the last brightness
// level or the configured schedules.
func (s *Store) PutDeviceStateValue(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO device_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("store: put device state %s: %w", key, err)
	}
	return nil
}

// GetDeviceStateValue reads one key from the device_state table. ok is
// false when the key has never been set.
func (s *Store) GetDeviceStateValue(key string) (value string, ok bool, err error) {
	row := s.db.QueryRow(`SELECT value FROM device_state WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store: get device state %s: %w", key, err)
	}
	return value, true, nil
}

const (
	deviceStateKeyBrightness         = "brightness"
	deviceStateKeyScreenOn           = "screen_on"
	deviceStateKeyBrightnessSchedule = "brightness_schedule"
	deviceStateKeyScreenSchedule     = "screen_schedule"
)

// SaveDeviceState writes the current brightness, screen power, and
// schedules into the device_state table so they survive a restart.
func (s *Store) SaveDeviceState(dev *device.State) error {
	values := map[string]string{
		deviceStateKeyBrightness:         strconv.Itoa(int(dev.Brightness())),
		deviceStateKeyScreenOn:           strconv.FormatBool(dev.ScreenOn()),
		deviceStateKeyBrightnessSchedule: device.EncodeBrightnessSchedule(dev.BrightnessSchedule()),
		deviceStateKeyScreenSchedule:     device.EncodeScreenSchedule(dev.ScreenSchedule()),
	}
	for key, value := range values {
		if err := s.PutDeviceStateValue(key, value); err != nil {
			return err
		}
	}
	return nil
}

// RestoreDeviceState applies any previously saved brightness, screen
// power, and schedules onto dev. Missing keys (a fresh install) leave dev
// at its constructed defaults.
func (s *Store) RestoreDeviceState(dev *device.State) error {
	if value, ok, err := s.GetDeviceStateValue(deviceStateKeyBrightness); err != nil {
		return err
	} else if ok {
		if level, err := strconv.Atoi(value); err == nil && level >= 0 && level <= 255 {
			dev.SetBrightness(uint8(level))
		}
	}
	if value, ok, err := s.GetDeviceStateValue(deviceStateKeyScreenOn); err != nil {
		return err
	} else if ok {
		if on, err := strconv.ParseBool(value); err == nil {
			dev.SetScreenOn(on)
		}
	}
	if value, ok, err := s.GetDeviceStateValue(deviceStateKeyBrightnessSchedule); err != nil {
		return err
	} else if ok {
		dev.SetBrightnessSchedule(device.DecodeBrightnessSchedule(value))
	}
	if value, ok, err := s.GetDeviceStateValue(deviceStateKeyScreenSchedule); err != nil {
		return err
	} else if ok {
		dev.SetScreenSchedule(device.DecodeScreenSchedule(value))
	}
	return nil
}

// sanitizeFilename strips path separators and NUL bytes so an uploaded
// filename can never escape the program directory.
func sanitizeFilename(name string) string {
	s := strings.ReplaceAll(name, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "\x00", "_")
	s = strings.ReplaceAll(s, "..", "_")
	if s == "" {
		s = "unnamed"
	}
	return s
}
