// Package player owns the frame timer, the bounded command queue, and
// program rotation — the single consumer every protocol handler and
// scheduler task feeds into.
package player

import (
	"github.com/ledsign/boxplayer/internal/metrics"
	"github.com/ledsign/boxplayer/internal/program"
)

// CommandKind tags which variant a Command carries.
type CommandKind int

const (
	CmdLoadScreen CommandKind = iota
	CmdSetBrightness
	CmdScreenPower
)

// Command is the single message type accepted by the player's inbox: one
// tagged struct instead of an interface hierarchy — cheap to construct
// from any of the many send sites (dispatcher, scheduler).
type Command struct {
	Kind       CommandKind
	Screen     *program.Screen // CmdLoadScreen
	Brightness uint8           // CmdSetBrightness
	ScreenOn   bool            // CmdScreenPower
}

// LoadScreen builds a command replacing the active program list.
func LoadScreen(screen *program.Screen) Command {
	return Command{Kind: CmdLoadScreen, Screen: screen}
}

// SetBrightness builds a command updating the device's brightness.
func SetBrightness(level uint8) Command {
	return Command{Kind: CmdSetBrightness, Brightness: level}
}

// ScreenPower builds a command toggling render output on or off.
func ScreenPower(on bool) Command {
	return Command{Kind: CmdScreenPower, ScreenOn: on}
}

// QueueCapacity is the player's inbox depth — the sole backpressure
// mechanism in the system.
const QueueCapacity = 64

// Queue is a bounded, multi-producer single-consumer command channel.
type Queue chan Command

// NewQueue allocates a queue at the fixed capacity.
func NewQueue() Queue {
	return make(Queue, QueueCapacity)
}

// TrySend enqueues a command without blocking, reporting false if the
// queue is full. Callers on the hot path (protocol handlers) must use
// this rather than a blocking send, so a stalled consumer never stalls
// the network goroutine feeding it.
func (q Queue) TrySend(cmd Command) bool {
	select {
	case q <- cmd:
		return true
	default:
		metrics.CommandQueueDropped.Inc()
		return false
	}
}
