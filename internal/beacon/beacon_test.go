package beacon

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ledsign/boxplayer/internal/device"
)

type fakeStatus struct{}

func (fakeStatus) PlayStatus() (uint8, int, int, int) { return 1, 0, 2, 0 }

func TestBuildDeviceInfoLayout(t *testing.T) {
	b := &Beacon{device: device.New("HD1234567890123", "TestPlayer"), playerName: "TestPlayer"}
	packet := b.buildDeviceInfo()
	if len(packet) < 15+4+1 {
		t.Fatalf("packet too short: %d bytes", len(packet))
	}
	idField := packet[:15]
	if !bytes.HasPrefix(idField, []byte("HD1234567890123")) {
		t.Fatalf("expected device id prefix, got %q", idField)
	}
	rest := packet[15+4:]
	nameEnd := bytes.IndexByte(rest, 0x00)
	if nameEnd < 0 {
		t.Fatalf("expected NUL terminator after player name")
	}
	if string(rest[:nameEnd]) != "TestPlayer" {
		t.Fatalf("expected player name TestPlayer, got %q", rest[:nameEnd])
	}
	xmlPart := string(rest[nameEnd+1:])
	if !strings.Contains(xmlPart, "<DeviceInfo") {
		t.Fatalf("expected DeviceInfo xml, got %q", xmlPart)
	}
}

func TestBuildExt1Layout(t *testing.T) {
	b := &Beacon{device: device.New("HD1234567890123", "TestPlayer"), Status: fakeStatus{}}
	packet := b.buildExt1()
	if len(packet) < 15 {
		t.Fatalf("packet too short: %d bytes", len(packet))
	}
	xmlPart := string(packet[15:])
	if !strings.Contains(xmlPart, `ProgramCount="2,0"`) {
		t.Fatalf("expected program counts in Ext1 xml, got %q", xmlPart)
	}
}

func TestFixedFieldTruncatesAndPads(t *testing.T) {
	short := fixedField("abc", 5)
	if len(short) != 5 || string(short[:3]) != "abc" || short[3] != 0 || short[4] != 0 {
		t.Fatalf("expected padded field, got %v", short)
	}
	long := fixedField("abcdefgh", 5)
	if string(long) != "abcde" {
		t.Fatalf("expected truncated field, got %q", long)
	}
}
