// Package scheduler runs the background tasks that are not driven by
// network traffic: screen/brightness schedule enforcement, best-effort
// time sync, and removable-media program loading.
package scheduler

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledsign/boxplayer/internal/device"
	"github.com/ledsign/boxplayer/internal/player"
	"github.com/ledsign/boxplayer/internal/program"
	"github.com/ledsign/boxplayer/internal/store"
)

// scheduleInterval is how often the screen and brightness schedules are
// re-evaluated.
const scheduleInterval = 30 * time.Second

// mediaWatchInterval is how often removable-media mount points are scanned.
const mediaWatchInterval = 5 * time.Second

// timeSyncInitialDelay and timeSyncInterval match the source's "10s after
// start, then every 6h" cadence.
const timeSyncInitialDelay = 10 * time.Second
const timeSyncInterval = 6 * time.Hour

// mountPrefixes are the removable-media mount points checked for program
// files, resolved from original_source's find_usb_program_paths.
var mountPrefixes = []string{
	"/mnt/usb",
	"/media/usb",
	"/media/usb0",
	"/run/media",
	"/mnt/sdcard",
}

// TimeSyncer invokes whatever external tool synchronizes the system clock;
// it is an injected collaborator since the invocation itself is out of
// scope for this emulator.
type TimeSyncer interface {
	Sync() error
}

// Scheduler owns the three long-running background tasks: brightness and
// screen-power schedule enforcement, time sync, and removable-media program
// import.
type Scheduler struct {
	Device     *device.State
	Queue      player.Queue
	Store      *store.Store
	ProgramDir string
	TimeSync   TimeSyncer

	lastBrightness    uint8
	haveLastBrightness bool
	lastMediaPath     string
}

// New builds a scheduler with no brightness baseline, so the first schedule
// tick always sends the current brightness level.
func New(dev *device.State, queue player.Queue, st *store.Store, programDir string, sync TimeSyncer) *Scheduler {
	return &Scheduler{
		Device:     dev,
		Queue:      queue,
		Store:      st,
		ProgramDir: programDir,
		TimeSync:   sync,
	}
}

// Run starts all background tasks; each returns when stopCh closes.
func (s *Scheduler) Run(stopCh <-chan struct{}) {
	go s.runScreenAndBrightnessSchedule(stopCh)
	go s.runTimeSync(stopCh)
	go s.runMediaWatch(stopCh)
}

func (s *Scheduler) runScreenAndBrightnessSchedule(stopCh <-chan struct{}) {
	ticker := time.NewTicker(scheduleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			changed := false
			if shouldChange, on := s.Device.ApplyScreenSchedule(now); shouldChange {
				log.Printf("scheduler: screen schedule turning %s", onOff(on))
				s.Device.SetScreenOn(on)
				s.Queue.TrySend(player.ScreenPower(on))
				changed = true
			}

			s.Device.CheckBrightnessSchedule(now)
			level := s.Device.Brightness()
			if !s.haveLastBrightness || level != s.lastBrightness {
				s.haveLastBrightness = true
				s.lastBrightness = level
				s.Queue.TrySend(player.SetBrightness(level))
				changed = true
			}

			if changed {
				s.persistDeviceState()
			}
		}
	}
}

func (s *Scheduler) runTimeSync(stopCh <-chan struct{}) {
	select {
	case <-stopCh:
		return
	case <-time.After(timeSyncInitialDelay):
	}
	s.syncOnce()

	ticker := time.NewTicker(timeSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.syncOnce()
		}
	}
}

func (s *Scheduler) syncOnce() {
	if s.TimeSync == nil {
		return
	}
	if err := s.TimeSync.Sync(); err != nil {
		log.Printf("scheduler: time sync failed: %v", err)
	}
}

func (s *Scheduler) runMediaWatch(stopCh <-chan struct{}) {
	ticker := time.NewTicker(mediaWatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.scanMedia()
		}
	}
}

func (s *Scheduler) scanMedia() {
	found := findMediaProgramDirs()
	if len(found) == 0 {
		if s.lastMediaPath != "" {
			log.Printf("scheduler: removable media at %s no longer present", s.lastMediaPath)
			s.lastMediaPath = ""
		}
		return
	}

	for _, path := range found {
		if path == s.lastMediaPath {
			continue
		}
		log.Printf("scheduler: found program media at %s", path)
		if err := s.loadFromMedia(path); err != nil {
			log.Printf("scheduler: failed to load media at %s: %v", path, err)
			continue
		}
		s.lastMediaPath = path
		return
	}
}

// findMediaProgramDirs scans the known mount-point prefixes for a directory
// containing at least one .xml file.
func findMediaProgramDirs() []string {
	var results []string
	for _, mount := range mountPrefixes {
		entries, err := os.ReadDir(mount)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(mount, entry.Name())
			if dirHasXML(dir) {
				results = append(results, dir)
			}
		}
	}
	return results
}

func dirHasXML(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			return true
		}
	}
	return false
}

// loadFromMedia copies every regular file from the mount path into the
// configured program directory, then dispatches a LoadScreen for the first
// XML file that parses successfully.
func (s *Scheduler) loadFromMedia(mediaDir string) error {
	entries, err := os.ReadDir(mediaDir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.ProgramDir, 0o755); err != nil {
		return err
	}

	var xmlFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(mediaDir, entry.Name())
		data, err := os.ReadFile(src)
		if err != nil {
			log.Printf("scheduler: read %s: %v", src, err)
			continue
		}
		dst := filepath.Join(s.ProgramDir, entry.Name())
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			log.Printf("scheduler: write %s: %v", dst, err)
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			xmlFiles = append(xmlFiles, dst)
		}
	}

	for _, path := range xmlFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		screen, err := program.Parse(string(data))
		if err != nil {
			log.Printf("scheduler: parse %s: %v", path, err)
			continue
		}
		if s.Store != nil {
			s.Store.SaveProgram(data)
		}
		s.Queue.TrySend(player.LoadScreen(screen))
		return nil
	}
	return nil
}

// persistDeviceState writes the current brightness and screen power to
// the state database so a restart resumes from the last applied schedule
// decision rather than the device's constructed defaults.
func (s *Scheduler) persistDeviceState() {
	if s.Store == nil {
		return
	}
	if err := s.Store.SaveDeviceState(s.Device); err != nil {
		log.Printf("scheduler: failed to persist device state: %v", err)
	}
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
