package protocol

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ledsign/boxplayer/internal/device"
	"github.com/ledsign/boxplayer/internal/player"
	"github.com/ledsign/boxplayer/internal/store"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return &Dispatcher{
		Device: device.New("HD1234", "test-device"),
		Store:  st,
		Queue:  player.NewQueue(),
		Info: DeviceInfo{
			CPU: "TestCPU", Model: "test-model", FPGAVersion: "1.0.0",
			ScreenWidth: 128, ScreenHeight: 64, DeviceID: "HD1234", SDKServerPort: 10001,
		},
	}
}

func TestDispatchQueryIFVersion(t *testing.T) {
	d := newTestDispatcher(t)
	xml := `<sdk guid="s"><in method="QueryIFVersion"><version/></in></sdk>`
	reply := string(d.Dispatch("s", xml))
	if !strings.Contains(reply, `method="QueryIFVersion"`) || !strings.Contains(reply, `value="0x1000000"`) {
		t.Fatalf("unexpected reply: %s", reply)
	}
}

func TestDispatchAddProgramPersistsAndQueues(t *testing.T) {
	d := newTestDispatcher(t)
	xml := `<sdk guid="s"><in method="AddProgram"><screen><program guid="p1"><area guid="a1"><rectangle x="0" y="0" width="128" height="64"/><resources><text guid="t1"><string>Hi</string></text></resources></area></program></screen></in></sdk>`
	reply := string(d.Dispatch("s", xml))
	if !strings.Contains(reply, `value="0"`) {
		t.Fatalf("expected success reply, got %s", reply)
	}
	persisted, err := d.Store.LoadProgram()
	if err != nil || persisted == nil {
		t.Fatalf("expected persisted program, err=%v", err)
	}
	select {
	case cmd := <-d.Queue:
		if cmd.Kind != player.CmdLoadScreen || cmd.Screen == nil {
			t.Fatalf("expected LoadScreen command, got %+v", cmd)
		}
	default:
		t.Fatalf("expected a queued LoadScreen command")
	}
}

func TestDispatchAddProgramMalformedXMLReturnsError(t *testing.T) {
	d := newTestDispatcher(t)
	xml := `<sdk guid="s"><in method="AddProgram">not xml</in></sdk>`
	reply := string(d.Dispatch("s", xml))
	if !strings.Contains(reply, `value="1"`) || !strings.Contains(reply, "<error") {
		t.Fatalf("expected error reply, got %s", reply)
	}
}

func TestDispatchSetLuminancePloyClamps(t *testing.T) {
	d := newTestDispatcher(t)
	xml := `<sdk guid="s"><in method="SetLuminancePloy"><luminance value="200"/></in></sdk>`
	d.Dispatch("s", xml)
	if got := d.Device.Brightness(); got != 100 {
		t.Fatalf("expected clamp to 100, got %d", got)
	}
}

func TestDispatchOpenCloseScreenTogglesState(t *testing.T) {
	d := newTestDispatcher(t)
	d.Dispatch("s", `<sdk guid="s"><in method="CloseScreen"></in></sdk>`)
	if d.Device.ScreenOn() {
		t.Fatalf("expected screen off after CloseScreen")
	}
	d.Dispatch("s", `<sdk guid="s"><in method="OpenScreen"></in></sdk>`)
	if !d.Device.ScreenOn() {
		t.Fatalf("expected screen on after OpenScreen")
	}
}

func TestDispatchPersistsDeviceStateAcrossRestore(t *testing.T) {
	d := newTestDispatcher(t)
	d.Dispatch("s", `<sdk guid="s"><in method="CloseScreen"></in></sdk>`)
	d.Dispatch("s", `<sdk guid="s"><in method="SetLuminancePloy"><luminance value="55"/></in></sdk>`)

	restored := device.New("HD1234", "test-device")
	if err := d.Store.RestoreDeviceState(restored); err != nil {
		t.Fatalf("restore device state: %v", err)
	}
	if restored.ScreenOn() {
		t.Fatalf("expected persisted screen-off state to survive restore")
	}
	if got := restored.Brightness(); got != 55 {
		t.Fatalf("expected persisted brightness 55, got %d", got)
	}
}

func TestDispatchUnknownMethodEchoesSuccess(t *testing.T) {
	d := newTestDispatcher(t)
	reply := string(d.Dispatch("s", `<sdk guid="s"><in method="SomeFutureMethod"></in></sdk>`))
	if !strings.Contains(reply, `method="SomeFutureMethod"`) || !strings.Contains(reply, `value="0"`) {
		t.Fatalf("expected echoed success reply, got %s", reply)
	}
}

func TestDispatchGetFilesReadsUploadIndexNotFilesystem(t *testing.T) {
	d := newTestDispatcher(t)
	if err := d.Store.SaveFile("logo.png", []byte("PNGDATA"), "deadbeef"); err != nil {
		t.Fatalf("save file: %v", err)
	}
	reply := string(d.Dispatch("s", `<sdk guid="s"><in method="GetFiles"></in></sdk>`))
	if !strings.Contains(reply, `name="logo.png"`) {
		t.Fatalf("expected logo.png in file list, got %s", reply)
	}

	extra := filepath.Join(d.Store.Dir(), "stray.png")
	if err := os.WriteFile(extra, []byte("untracked"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}
	reply = string(d.Dispatch("s", `<sdk guid="s"><in method="GetFiles"></in></sdk>`))
	if strings.Contains(reply, `name="stray.png"`) {
		t.Fatalf("expected untracked filesystem entry to be absent from the index-backed list, got %s", reply)
	}
}

func TestDispatchGetDeviceInfo(t *testing.T) {
	d := newTestDispatcher(t)
	reply := string(d.Dispatch("s", `<sdk guid="s"><in method="GetDeviceInfo"></in></sdk>`))
	if !strings.Contains(reply, `deviceID="HD1234"`) || !strings.Contains(reply, `screenWidth="128"`) {
		t.Fatalf("unexpected device info reply: %s", reply)
	}
}

func TestDispatchCommandIdempotenceAddThenDelete(t *testing.T) {
	d := newTestDispatcher(t)
	before := d.Device.ScreenOn()
	xml := `<sdk guid="s"><in method="AddProgram"><screen><program guid="p1"><area guid="a1"><rectangle x="0" y="0" width="1" height="1"/><resources></resources></area></program></screen></in></sdk>`
	d.Dispatch("s", xml)
	d.Dispatch("s", `<sdk guid="s"><in method="DeleteProgram"></in></sdk>`)
	if d.Device.ScreenOn() != before {
		t.Fatalf("expected screen-on state unaffected by add/delete cycle")
	}
	persisted, _ := d.Store.LoadProgram()
	if persisted != nil {
		t.Fatalf("expected no persisted program after delete, got %q", persisted)
	}
}
