package device

import (
	"testing"
	"time"
)

func TestSetBrightnessClamps(t *testing.T) {
	s := New("HD1234", "test-device")
	s.SetBrightness(150)
	if got := s.Brightness(); got != 100 {
		t.Fatalf("expected clamp to 100, got %d", got)
	}
	s.SetBrightness(42)
	if got := s.Brightness(); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestCheckBrightnessScheduleWrapsAround(t *testing.T) {
	s := New("HD1234", "test-device")
	s.SetBrightnessSchedule([]BrightnessScheduleEntry{
		{Hour: 8, Minute: 0, Level: 100},
		{Hour: 20, Minute: 0, Level: 30},
	})
	// 02:00 is before both entries today, so it should wrap to the last
	// (20:00, level 30) rather than leave brightness unset.
	s.CheckBrightnessSchedule(time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC))
	if got := s.Brightness(); got != 30 {
		t.Fatalf("expected wraparound to last entry (30), got %d", got)
	}
	s.CheckBrightnessSchedule(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	if got := s.Brightness(); got != 100 {
		t.Fatalf("expected 08:00 entry (100) to apply at 09:00, got %d", got)
	}
}

func TestShouldScreenBeOnRespectsDayAndRange(t *testing.T) {
	s := New("HD1234", "test-device")
	s.SetScreenSchedule([]ScreenScheduleEntry{
		{OnTime: "08:00:00", OffTime: "20:00:00", Days: "Mon,Tue,Wed,Thu,Fri"},
	})
	// 2026-01-05 is a Monday.
	on, has := s.ShouldScreenBeOn(time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC))
	if !has || !on {
		t.Fatalf("expected screen on during Monday business hours, got on=%v has=%v", on, has)
	}
	// 2026-01-04 is a Sunday, not in the day list.
	on, has = s.ShouldScreenBeOn(time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC))
	if !has || on {
		t.Fatalf("expected screen off on Sunday, got on=%v has=%v", on, has)
	}
}

func TestApplyScreenScheduleDeduplicatesTransitions(t *testing.T) {
	s := New("HD1234", "test-device")
	s.SetScreenSchedule([]ScreenScheduleEntry{
		{OnTime: "00:00:00", OffTime: "23:59:59", Days: ""},
	})
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	change, on := s.ApplyScreenSchedule(now)
	if !change || !on {
		t.Fatalf("expected first evaluation to report a change to on, got change=%v on=%v", change, on)
	}
	change, _ = s.ApplyScreenSchedule(now)
	if change {
		t.Fatalf("expected second identical evaluation to report no change")
	}
}

func TestApplyBrightnessMultipliesRGBNotAlpha(t *testing.T) {
	s := New("HD1234", "test-device")
	s.SetBrightness(50)
	pix := []byte{200, 100, 40, 255}
	s.ApplyBrightness(pix)
	if pix[3] != 255 {
		t.Fatalf("alpha should be untouched, got %d", pix[3])
	}
	if pix[0] != 100 || pix[1] != 50 || pix[2] != 20 {
		t.Fatalf("expected halved RGB, got %v", pix[:3])
	}
}

func TestApplyBrightnessFullIsNoOp(t *testing.T) {
	s := New("HD1234", "test-device")
	pix := []byte{10, 20, 30, 255}
	s.ApplyBrightness(pix)
	if pix[0] != 10 || pix[1] != 20 || pix[2] != 30 {
		t.Fatalf("expected no change at full brightness, got %v", pix[:3])
	}
}

func TestBrightnessScheduleEncodeDecodeRoundTrip(t *testing.T) {
	entries := []BrightnessScheduleEntry{
		{Hour: 8, Minute: 0, Level: 100},
		{Hour: 20, Minute: 30, Level: 30},
	}
	encoded := EncodeBrightnessSchedule(entries)
	got := DecodeBrightnessSchedule(encoded)
	if len(got) != 2 || got[0] != entries[0] || got[1] != entries[1] {
		t.Fatalf("round trip mismatch: encoded=%q got=%+v", encoded, got)
	}
}

func TestDecodeBrightnessScheduleSkipsMalformedEntries(t *testing.T) {
	got := DecodeBrightnessSchedule("8:0:100;garbage;20:30:30")
	if len(got) != 2 {
		t.Fatalf("expected malformed entry to be skipped, got %+v", got)
	}
}

func TestDecodeBrightnessScheduleEmptyStringIsNil(t *testing.T) {
	if got := DecodeBrightnessSchedule(""); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", got)
	}
}

func TestScreenScheduleEncodeDecodeRoundTrip(t *testing.T) {
	entries := []ScreenScheduleEntry{
		{OnTime: "08:00:00", OffTime: "20:00:00", Days: "Mon,Tue"},
		{OnTime: "00:00:00", OffTime: "23:59:59", Days: ""},
	}
	encoded := EncodeScreenSchedule(entries)
	got := DecodeScreenSchedule(encoded)
	if len(got) != 2 || got[0] != entries[0] || got[1] != entries[1] {
		t.Fatalf("round trip mismatch: encoded=%q got=%+v", encoded, got)
	}
}

func TestDecodeScreenScheduleEmptyStringIsNil(t *testing.T) {
	if got := DecodeScreenSchedule(""); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", got)
	}
}
