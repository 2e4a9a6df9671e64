package player

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ledsign/boxplayer/internal/compositor"
	"github.com/ledsign/boxplayer/internal/device"
	"github.com/ledsign/boxplayer/internal/program"
	"github.com/ledsign/boxplayer/internal/render"
	"github.com/ledsign/boxplayer/internal/store"
)

// FrameSink accepts one composited frame; internal/sink provides the
// concrete implementations (PNG/raw/framebuffer) so player stays decoupled
// from output-device details while still depending on the same Pixmap type
// the compositor produces.
type FrameSink interface {
	Write(pix *render.Pixmap) error
}

// Player owns the frame timer, drains the command queue between ticks, and
// rotates through the active program list by play-control duration.
type Player struct {
	mu sync.Mutex

	Device     *device.State
	Store      *store.Store
	Queue      Queue
	Compositor *compositor.Compositor
	Output     FrameSink
	FPS        int
	ProgramDir string

	programs        []program.Program
	currentIndex    int
	framesInProgram uint64
}

// New builds a player. Compositor and Output must already be constructed
// by the caller (cmd/boxplayer) and passed in explicitly rather than built
// by a magic constructor.
func New(dev *device.State, st *store.Store, queue Queue, comp *compositor.Compositor, output FrameSink, fps int, programDir string) *Player {
	return &Player{
		Device:     dev,
		Store:      st,
		Queue:      queue,
		Compositor: comp,
		Output:     output,
		FPS:        fps,
		ProgramDir: programDir,
	}
}

// LoadProgramsFromDir scans dir for *.xml files and replaces the active
// program list with every program parsed from them. The startup bootstrap in
// cmd/boxplayer loads current_program.xml through the store and does not
// call it.
func (p *Player) LoadProgramsFromDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("player: read program dir %s: %w", dir, err)
	}

	var programs []program.Program
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("player: read %s: %v", path, err)
			continue
		}
		screen, err := program.Parse(string(data))
		if err != nil {
			log.Printf("player: parse %s: %v", path, err)
			continue
		}
		programs = append(programs, screen.Programs...)
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("player: no program XML files found in %s", dir)
	}

	p.mu.Lock()
	p.programs = programs
	p.currentIndex = 0
	p.framesInProgram = 0
	p.mu.Unlock()
	return nil
}

// Run ticks the frame timer at 1000/fps ms until stopCh closes: drain
// commands, render if the screen is on and programs exist, then check
// rotation.
func (p *Player) Run(stopCh <-chan struct{}) {
	fps := p.FPS
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Duration(1000/fps) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.drainCommands()
			p.tick()
		}
	}
}

func (p *Player) drainCommands() {
	for {
		select {
		case cmd := <-p.Queue:
			p.handleCommand(cmd)
		default:
			return
		}
	}
}

func (p *Player) handleCommand(cmd Command) {
	switch cmd.Kind {
	case CmdLoadScreen:
		p.mu.Lock()
		p.programs = cmd.Screen.Programs
		p.currentIndex = 0
		p.framesInProgram = 0
		p.mu.Unlock()
		log.Printf("player: loaded screen with %d program(s)", len(cmd.Screen.Programs))
	case CmdSetBrightness:
		p.Device.SetBrightness(cmd.Brightness)
	case CmdScreenPower:
		p.Device.SetScreenOn(cmd.ScreenOn)
	}
}

func (p *Player) tick() {
	p.mu.Lock()
	if !p.Device.ScreenOn() || len(p.programs) == 0 {
		p.mu.Unlock()
		return
	}
	current := &p.programs[p.currentIndex]
	p.mu.Unlock()

	fb := p.Compositor.RenderFrame(current)
	p.Device.ApplyBrightness(fb.Pix)
	if p.Output != nil {
		if err := p.Output.Write(fb); err != nil {
			log.Printf("player: sink write failed: %v", err)
		}
	}

	p.checkRotation()
}

// checkRotation advances the cursor once the current program's effective
// duration (play_control.duration parsed as HH:MM:SS, fallback 10s) has
// elapsed, skipping any program whose date/time/week filter excludes now.
func (p *Player) checkRotation() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.framesInProgram++
	durationFrames := uint64(durationSeconds(p.programs[p.currentIndex].PlayControl) * p.fpsOrDefault())
	if p.framesInProgram < durationFrames {
		return
	}

	p.framesInProgram = 0
	n := len(p.programs)
	now := time.Now()
	for i := 1; i <= n; i++ {
		next := (p.currentIndex + i) % n
		if isEligibleNow(p.programs[next].PlayControl, now) {
			p.currentIndex = next
			return
		}
	}
	// No program currently passes its filter; keep displaying the current
	// one rather than stalling on a blank cursor.
}

// PlayStatus reports the fields the discovery beacon's Ext1 packet needs,
// satisfying beacon.StatusProvider without the beacon package depending on
// player's internal types.
func (p *Player) PlayStatus() (status uint8, programIndex, normalCount, intercutCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.programs) == 0 {
		return 0, 0, 0, 0
	}
	return 1, p.currentIndex, len(p.programs), 0
}

func (p *Player) fpsOrDefault() int {
	if p.FPS <= 0 {
		return 30
	}
	return p.FPS
}

// durationSeconds parses play_control.duration as HH:MM:SS, defaulting to
// 10 seconds when absent or malformed.
func durationSeconds(pc *program.PlayControl) int {
	const fallback = 10
	if pc == nil || pc.Duration == "" {
		return fallback
	}
	parts := strings.Split(pc.Duration, ":")
	if len(parts) != 3 {
		return fallback
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	s, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return fallback
	}
	return h*3600 + m*60 + s
}

// isEligibleNow evaluates play_control's date/time/week filters against now.
// A filter that is absent imposes no constraint, and neither does a date
// range that fails to parse or an empty time or week value. Time bounds are
// compared as strings against "15:04:05", and a week list matches only
// three-letter day names ("Mon"), so a malformed time or week value can
// exclude the program.
func isEligibleNow(pc *program.PlayControl, now time.Time) bool {
	if pc == nil {
		return true
	}
	if pc.Disabled {
		return false
	}
	if pc.Date != nil && !dateInRange(pc.Date, now) {
		return false
	}
	if pc.Time != nil && !timeInRange(pc.Time, now) {
		return false
	}
	if pc.Week != nil && !weekEnabled(pc.Week, now) {
		return false
	}
	return true
}

func dateInRange(d *program.DateRange, now time.Time) bool {
	start, errStart := time.ParseInLocation("2006-01-02", d.Start, now.Location())
	end, errEnd := time.ParseInLocation("2006-01-02", d.End, now.Location())
	if errStart != nil || errEnd != nil {
		return true
	}
	today := now.Truncate(24 * time.Hour)
	return !today.Before(start) && !today.After(end)
}

func timeInRange(t *program.TimeRange, now time.Time) bool {
	if t.Start == "" || t.End == "" {
		return true
	}
	current := now.Format("15:04:05")
	return current >= t.Start && current < t.End
}

func weekEnabled(w *program.WeekMask, now time.Time) bool {
	if w.Enable == "" {
		return true
	}
	day := now.Format("Mon")
	for _, d := range strings.Split(w.Enable, ",") {
		if strings.TrimSpace(d) == day {
			return true
		}
	}
	return false
}
