package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ledsign/boxplayer/internal/device"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadProgram(t *testing.T) {
	s := newTestStore(t)
	xml := []byte("<screen><program guid=\"p1\"/></screen>")
	if err := s.SaveProgram(xml); err != nil {
		t.Fatalf("save program: %v", err)
	}
	got, err := s.LoadProgram()
	if err != nil {
		t.Fatalf("load program: %v", err)
	}
	if string(got) != string(xml) {
		t.Fatalf("expected verbatim xml, got %q", got)
	}
}

func TestLoadProgramMissingReturnsNilNoError(t *testing.T) {
	s := newTestStore(t)
	got, err := s.LoadProgram()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing program, got %v", got)
	}
}

func TestClearProgramRemovesFile(t *testing.T) {
	s := newTestStore(t)
	s.SaveProgram([]byte("<screen/>"))
	if err := s.ClearProgram(); err != nil {
		t.Fatalf("clear program: %v", err)
	}
	got, err := s.LoadProgram()
	if err != nil || got != nil {
		t.Fatalf("expected program cleared, got %v err %v", got, err)
	}
}

func TestSaveFileAndListFiles(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveFile("logo.png", []byte("PNGDATA"), "deadbeef"); err != nil {
		t.Fatalf("save file: %v", err)
	}
	names, err := s.ListFiles()
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(names) != 1 || names[0] != "logo.png" {
		t.Fatalf("expected [logo.png], got %v", names)
	}
	data, err := os.ReadFile(filepath.Join(s.Dir(), "logo.png"))
	if err != nil || string(data) != "PNGDATA" {
		t.Fatalf("unexpected file contents: %q err %v", data, err)
	}
}

func TestSaveFileSanitizesPathTraversal(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveFile("../../etc/passwd", []byte("x"), "md5"); err != nil {
		t.Fatalf("save file: %v", err)
	}
	names, _ := s.ListFiles()
	for _, n := range names {
		if n == "../../etc/passwd" {
			t.Fatalf("path traversal was not sanitized")
		}
	}
}

func TestDeleteFileRemovesFromDiskAndIndex(t *testing.T) {
	s := newTestStore(t)
	s.SaveFile("a.png", []byte("a"), "md5")
	if err := s.DeleteFile("a.png"); err != nil {
		t.Fatalf("delete file: %v", err)
	}
	names, _ := s.ListFiles()
	if len(names) != 0 {
		t.Fatalf("expected no files after delete, got %v", names)
	}
}

func TestClearRemovesEverything(t *testing.T) {
	s := newTestStore(t)
	s.SaveProgram([]byte("<screen/>"))
	s.SaveFile("a.png", []byte("a"), "md5")
	s.SaveFile("b.png", []byte("b"), "md5")
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	names, _ := s.ListFiles()
	if len(names) != 0 {
		t.Fatalf("expected no files, got %v", names)
	}
	prog, _ := s.LoadProgram()
	if prog != nil {
		t.Fatalf("expected program cleared too")
	}
}

func TestDeviceStateValueRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if _, ok, err := s.GetDeviceStateValue("brightness"); err != nil || ok {
		t.Fatalf("expected no value set yet, ok=%v err=%v", ok, err)
	}
	if err := s.PutDeviceStateValue("brightness", "42"); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, ok, err := s.GetDeviceStateValue("brightness")
	if err != nil || !ok || value != "42" {
		t.Fatalf("expected 42, got %q ok=%v err=%v", value, ok, err)
	}
	if err := s.PutDeviceStateValue("brightness", "10"); err != nil {
		t.Fatalf("update: %v", err)
	}
	value, _, _ = s.GetDeviceStateValue("brightness")
	if value != "10" {
		t.Fatalf("expected updated value 10, got %q", value)
	}
}

func TestGetFilesReadsTheUploadIndex(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveFile("a.png", []byte("a"), "md5"); err != nil {
		t.Fatalf("save file: %v", err)
	}
	if err := s.SaveFile("b.png", []byte("b"), "md5"); err != nil {
		t.Fatalf("save file: %v", err)
	}
	names, err := s.GetFiles()
	if err != nil {
		t.Fatalf("get files: %v", err)
	}
	if len(names) != 2 || names[0] != "a.png" || names[1] != "b.png" {
		t.Fatalf("expected [a.png b.png], got %v", names)
	}

	if err := s.DeleteFile("a.png"); err != nil {
		t.Fatalf("delete file: %v", err)
	}
	names, err = s.GetFiles()
	if err != nil || len(names) != 1 || names[0] != "b.png" {
		t.Fatalf("expected [b.png] after delete, got %v err %v", names, err)
	}
}

func TestSaveAndRestoreDeviceState(t *testing.T) {
	s := newTestStore(t)
	dev := device.New("dev-1", "BoxPlayer")
	dev.SetBrightness(42)
	dev.SetScreenOn(false)
	dev.SetBrightnessSchedule([]device.BrightnessScheduleEntry{{Hour: 8, Minute: 0, Level: 80}})
	dev.SetScreenSchedule([]device.ScreenScheduleEntry{{OnTime: "08:00:00", OffTime: "20:00:00", Days: "Mon,Tue"}})

	if err := s.SaveDeviceState(dev); err != nil {
		t.Fatalf("save device state: %v", err)
	}

	restored := device.New("dev-1", "BoxPlayer")
	if err := s.RestoreDeviceState(restored); err != nil {
		t.Fatalf("restore device state: %v", err)
	}
	if restored.Brightness() != 42 {
		t.Fatalf("expected brightness 42, got %d", restored.Brightness())
	}
	if restored.ScreenOn() {
		t.Fatalf("expected screen off after restore")
	}
	bs := restored.BrightnessSchedule()
	if len(bs) != 1 || bs[0].Hour != 8 || bs[0].Level != 80 {
		t.Fatalf("unexpected brightness schedule: %+v", bs)
	}
	ss := restored.ScreenSchedule()
	if len(ss) != 1 || ss[0].OnTime != "08:00:00" || ss[0].Days != "Mon,Tue" {
		t.Fatalf("unexpected screen schedule: %+v", ss)
	}
}

func TestRestoreDeviceStateLeavesDefaultsWhenNothingSaved(t *testing.T) {
	s := newTestStore(t)
	dev := device.New("dev-1", "BoxPlayer")
	if err := s.RestoreDeviceState(dev); err != nil {
		t.Fatalf("restore device state: %v", err)
	}
	if dev.Brightness() != 100 || !dev.ScreenOn() {
		t.Fatalf("expected constructed defaults to survive an empty restore")
	}
}
