package render

// EffectPhase is a content item's position in its entrance/display/exit
// lifecycle.
type EffectPhase int

const (
	PhaseEntering EffectPhase = iota
	PhaseDisplaying
	PhaseExiting
	PhaseDone
)

// The 30 named transition effect codes understood by ApplyEffect.
const (
	EffectImmediate          uint8 = 0
	EffectMoveLeft           uint8 = 1
	EffectMoveRight          uint8 = 2
	EffectMoveUp             uint8 = 3
	EffectMoveDown           uint8 = 4
	EffectCoverLeft          uint8 = 5
	EffectCoverRight         uint8 = 6
	EffectCoverUp            uint8 = 7
	EffectCoverDown          uint8 = 8
	EffectCoverTopLeft       uint8 = 9
	EffectCoverTopRight      uint8 = 10
	EffectCoverBottomLeft    uint8 = 11
	EffectCoverBottomRight   uint8 = 12
	EffectDivideHorizontal   uint8 = 13
	EffectDivideVertical     uint8 = 14
	EffectCloseHorizontal    uint8 = 15
	EffectCloseVertical      uint8 = 16
	EffectFade               uint8 = 17
	EffectShutterHorizontal  uint8 = 18
	EffectShutterVertical    uint8 = 19
	EffectNoClear            uint8 = 20
	EffectSeriesMoveLeft     uint8 = 21
	EffectSeriesMoveRight    uint8 = 22
	EffectSeriesMoveUp       uint8 = 23
	EffectSeriesMoveDown     uint8 = 24
	EffectRandom             uint8 = 25
	EffectHeadToTailLeft     uint8 = 26
	EffectHeadToTailRight    uint8 = 27
	EffectHeadToTailUp       uint8 = 28
	EffectHeadToTailDown     uint8 = 29
)

// transitionDurationMS maps an effect speed (0=fastest, 8=slowest) to its
// transition length in milliseconds.
func transitionDurationMS(speed uint8) uint64 {
	switch speed {
	case 0:
		return 0
	case 1:
		return 200
	case 2:
		return 400
	case 3:
		return 600
	case 4:
		return 800
	case 5:
		return 1000
	case 6:
		return 1500
	case 7:
		return 2000
	case 8:
		return 3000
	default:
		return 500
	}
}

// EffectState tracks one area slot's progress through entering, displaying,
// and exiting its current content item.
type EffectState struct {
	CurrentIndex      int
	Phase             EffectPhase
	Progress          float32
	PhaseStartMS      uint64
	DisplayDurationMS uint64
	EffectIn          uint8
	EffectOut         uint8
	InSpeed           uint8
	OutSpeed          uint8
}

// NewEffectState builds the state for the first content item of an area.
func NewEffectState(effectIn, effectOut, inSpeed, outSpeed uint8, durationTenths uint32) *EffectState {
	return &EffectState{
		Phase:             PhaseEntering,
		DisplayDurationMS: uint64(durationTenths) * 100,
		EffectIn:          effectIn,
		EffectOut:         effectOut,
		InSpeed:           inSpeed,
		OutSpeed:          outSpeed,
	}
}

// Reset reinitializes the state for the next content item, carrying the
// absolute elapsed time the new item starts at.
func (s *EffectState) Reset(effectIn, effectOut, inSpeed, outSpeed uint8, durationTenths uint32, startMS uint64) {
	s.Phase = PhaseEntering
	s.Progress = 0
	s.PhaseStartMS = startMS
	s.DisplayDurationMS = uint64(durationTenths) * 100
	s.EffectIn = effectIn
	s.EffectOut = effectOut
	s.InSpeed = inSpeed
	s.OutSpeed = outSpeed
}

// Update advances the phase/progress for the given absolute elapsed time in
// milliseconds. It reports whether the item should be advanced to the next
// one in the playlist.
func (s *EffectState) Update(elapsedMS uint64) bool {
	switch s.Phase {
	case PhaseEntering:
		dur := transitionDurationMS(s.InSpeed)
		if dur == 0 || s.EffectIn == 0 {
			s.Progress = 1
			s.Phase = PhaseDisplaying
			s.PhaseStartMS = elapsedMS
			return false
		}
		elapsedInPhase := saturatingSub(elapsedMS, s.PhaseStartMS)
		s.Progress = minF32(float32(elapsedInPhase)/float32(dur), 1)
		if s.Progress >= 1 {
			s.Phase = PhaseDisplaying
			s.PhaseStartMS = elapsedMS
		}
		return false
	case PhaseDisplaying:
		if s.DisplayDurationMS == 0 {
			return false
		}
		elapsedInPhase := saturatingSub(elapsedMS, s.PhaseStartMS)
		if elapsedInPhase >= s.DisplayDurationMS {
			s.Phase = PhaseExiting
			s.PhaseStartMS = elapsedMS
			s.Progress = 0
		}
		return false
	case PhaseExiting:
		dur := transitionDurationMS(s.OutSpeed)
		if dur == 0 || s.EffectOut == 0 {
			s.Progress = 1
			s.Phase = PhaseDone
			return true
		}
		elapsedInPhase := saturatingSub(elapsedMS, s.PhaseStartMS)
		s.Progress = minF32(float32(elapsedInPhase)/float32(dur), 1)
		if s.Progress >= 1 {
			s.Phase = PhaseDone
			return true
		}
		return false
	default: // PhaseDone
		return true
	}
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func minF32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

// ApplyEffect composites content onto target at the given phase/progress
// using the named transition, in place.
func ApplyEffect(effectType uint8, progress float32, phase EffectPhase, content, target *Pixmap) {
	var p float32
	switch phase {
	case PhaseEntering:
		p = progress
	case PhaseExiting:
		p = 1 - progress
	case PhaseDisplaying:
		p = 1
	case PhaseDone:
		return
	}

	w, h := target.Width, target.Height

	switch {
	case effectType == EffectImmediate:
		drawFull(content, target)
	case effectType == EffectMoveLeft:
		drawOffset(content, target, int((1-p)*float32(w)), 0)
	case effectType == EffectMoveRight:
		drawOffset(content, target, -int((1-p)*float32(w)), 0)
	case effectType == EffectMoveUp:
		drawOffset(content, target, 0, int((1-p)*float32(h)))
	case effectType == EffectMoveDown:
		drawOffset(content, target, 0, -int((1-p)*float32(h)))
	case effectType >= EffectCoverLeft && effectType <= EffectCoverDown:
		var dx, dy int
		switch effectType {
		case EffectCoverLeft:
			dx = -int((1 - p) * float32(w))
		case EffectCoverRight:
			dx = int((1 - p) * float32(w))
		case EffectCoverUp:
			dy = -int((1 - p) * float32(h))
		case EffectCoverDown:
			dy = int((1 - p) * float32(h))
		}
		drawOffset(content, target, dx, dy)
	case effectType >= EffectCoverTopLeft && effectType <= EffectCoverBottomRight:
		var dx, dy int
		ix, iy := int((1-p)*float32(w)), int((1-p)*float32(h))
		switch effectType {
		case EffectCoverTopLeft:
			dx, dy = -ix, -iy
		case EffectCoverTopRight:
			dx, dy = ix, -iy
		case EffectCoverBottomLeft:
			dx, dy = -ix, iy
		case EffectCoverBottomRight:
			dx, dy = ix, iy
		}
		drawOffset(content, target, dx, dy)
	case effectType == EffectDivideHorizontal:
		half := int(p * float32(w) / 2)
		center := w / 2
		drawRegion(content, target, center-half, 0, 0, 0, half, h)
		drawRegion(content, target, center, 0, center, 0, half, h)
	case effectType == EffectDivideVertical:
		half := int(p * float32(h) / 2)
		center := h / 2
		drawRegion(content, target, 0, center-half, 0, 0, w, half)
		drawRegion(content, target, 0, center, 0, center, w, half)
	case effectType == EffectCloseHorizontal:
		edge := int((1 - p) * float32(w) / 2)
		drawRegion(content, target, edge, 0, edge, 0, w-2*edge, h)
	case effectType == EffectCloseVertical:
		edge := int((1 - p) * float32(h) / 2)
		drawRegion(content, target, 0, edge, 0, edge, w, h-2*edge)
	case effectType == EffectFade:
		drawFaded(content, target, float64(p))
	case effectType == EffectShutterHorizontal:
		const numBlinds = 8
		blindH := h / numBlinds
		visible := int(p * float32(blindH))
		for i := 0; i < numBlinds; i++ {
			y := i * blindH
			drawRegion(content, target, 0, y, 0, y, w, visible)
		}
	case effectType == EffectShutterVertical:
		const numBlinds = 8
		blindW := w / numBlinds
		visible := int(p * float32(blindW))
		for i := 0; i < numBlinds; i++ {
			x := i * blindW
			drawRegion(content, target, x, 0, x, 0, visible, h)
		}
	case effectType == EffectNoClear:
		drawFull(content, target)
	case effectType >= EffectSeriesMoveLeft && effectType <= EffectSeriesMoveDown:
		// Continuous scroll is realized by the content renderer itself;
		// the compositor just draws the already-scrolled frame.
		drawFull(content, target)
	case effectType == EffectRandom:
		pseudo := uint8(int(progress*16)%16) + 1
		ApplyEffect(pseudo, progress, phase, content, target)
	case effectType >= EffectHeadToTailLeft && effectType <= EffectHeadToTailDown:
		drawFull(content, target)
	default:
		drawFull(content, target)
	}
}
