package protocol

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/ledsign/boxplayer/internal/device"
	"github.com/ledsign/boxplayer/internal/metrics"
	"github.com/ledsign/boxplayer/internal/player"
	"github.com/ledsign/boxplayer/internal/program"
	"github.com/ledsign/boxplayer/internal/store"
)

// DeviceInfo describes the static identity this player reports to
// GetDeviceInfo and the discovery beacon.
type DeviceInfo struct {
	CPU           string
	Model         string
	FPGAVersion   string
	ScreenWidth   int
	ScreenHeight  int
	DeviceID      string
	SDKServerPort int
}

// TimeSetter forwards a SetTimeInfo request to the external system-time
// tool; it is an injected collaborator, not implemented here.
type TimeSetter interface {
	SetTime(value string) error
}

// Dispatcher routes SDK XML commands to their handlers, mutating shared
// device state and persisted storage, and emitting player commands.
type Dispatcher struct {
	Device  *device.State
	Store   *store.Store
	Queue   player.Queue
	Info    DeviceInfo
	TimeSet TimeSetter
}

// Dispatch handles one fully reassembled SDK command XML document and
// returns the reply XML to send back on the wire.
func (d *Dispatcher) Dispatch(sessionGUID string, xml string) []byte {
	method, _ := program.ExtractMethod(xml)

	switch normalizeMethod(method) {
	case "queryifversion", "getifversion":
		return replyOK(sessionGUID, method, `<version value="0x1000000"/>`)

	case "addprogram", "updateprogram":
		return d.handleAddOrUpdateProgram(sessionGUID, method, xml)

	case "deleteprogram":
		d.Store.Clear()
		d.Queue.TrySend(player.LoadScreen(&program.Screen{}))
		return replyOK(sessionGUID, method, "")

	case "openscreen":
		d.Device.SetScreenOn(true)
		d.Queue.TrySend(player.ScreenPower(true))
		d.persistDeviceState()
		return replyOK(sessionGUID, method, "")

	case "closescreen":
		d.Device.SetScreenOn(false)
		d.Queue.TrySend(player.ScreenPower(false))
		d.persistDeviceState()
		return replyOK(sessionGUID, method, "")

	case "getluminanceploy":
		body := fmt.Sprintf(`<luminance mode="manual" value="%d"/>`, d.Device.Brightness())
		return replyOK(sessionGUID, method, body)

	case "setluminanceploy":
		level := parseAttr(xml, "luminance", "value")
		n, err := strconv.Atoi(level)
		if err != nil {
			return replyErr(sessionGUID, method, "invalid luminance value")
		}
		if n > 100 {
			n = 100
		}
		if n < 0 {
			n = 0
		}
		d.Device.SetBrightness(uint8(n))
		d.Queue.TrySend(player.SetBrightness(uint8(n)))
		d.persistDeviceState()
		return replyOK(sessionGUID, method, "")

	case "getswitchtime":
		return replyOK(sessionGUID, method, d.encodeSwitchTime())

	case "setswitchtime":
		entries := parseSwitchTimeItems(xml)
		d.Device.SetScreenSchedule(entries)
		d.persistDeviceState()
		return replyOK(sessionGUID, method, "")

	case "gettimeinfo":
		body := fmt.Sprintf(`<time value="%s"/>`, time.Now().Format("2006-01-02 15:04:05"))
		return replyOK(sessionGUID, method, body)

	case "settimeinfo":
		value := parseAttr(xml, "time", "value")
		if d.TimeSet != nil && value != "" {
			if err := d.TimeSet.SetTime(value); err != nil {
				return replyErr(sessionGUID, method, err.Error())
			}
		}
		return replyOK(sessionGUID, method, "")

	case "getdeviceinfo":
		body := fmt.Sprintf(
			`<deviceInfo cpu="%s" model="%s" fpgaVersion="%s" screenWidth="%d" screenHeight="%d" deviceID="%s"/>`,
			escapeXML(d.Info.CPU), escapeXML(d.Info.Model), escapeXML(d.Info.FPGAVersion),
			d.Info.ScreenWidth, d.Info.ScreenHeight, escapeXML(d.Info.DeviceID),
		)
		return replyOK(sessionGUID, method, body)

	case "getallfontinfo":
		return replyOK(sessionGUID, method, `<font name="builtin" size="7x13" bold="false" italic="false"/>`)

	case "geteth0info":
		return replyOK(sessionGUID, method, `<eth0 dhcp="true" ip="0.0.0.0" mask="0.0.0.0" gateway="0.0.0.0"/>`)

	case "seteth0info":
		return replyOK(sessionGUID, method, "")

	case "getfiles":
		return replyOK(sessionGUID, method, d.encodeFileList())

	case "deletefiles":
		for _, name := range parseFileNames(xml) {
			d.Store.DeleteFile(name)
		}
		return replyOK(sessionGUID, method, "")

	case "getbootlogo", "setbootlogoname", "clearbootlogo":
		return replyOK(sessionGUID, method, "")

	case "getsdktcpserver", "setsdktcpserver":
		body := fmt.Sprintf(`<sdkTcpServer port="%d"/>`, d.Info.SDKServerPort)
		return replyOK(sessionGUID, method, body)

	case "getwifiinfo", "setwifiinfo":
		return replyOK(sessionGUID, method, `<wifi ssid="" connected="false"/>`)

	default:
		return replyOK(sessionGUID, method, "")
	}
}

func (d *Dispatcher) handleAddOrUpdateProgram(sessionGUID, method, xml string) []byte {
	screen, err := program.Parse(xml)
	if err != nil {
		return replyErr(sessionGUID, method, err.Error())
	}
	if err := d.Store.SaveProgram([]byte(xml)); err != nil {
		return replyErr(sessionGUID, method, err.Error())
	}
	d.Queue.TrySend(player.LoadScreen(screen))
	return replyOK(sessionGUID, method, "")
}

func (d *Dispatcher) encodeSwitchTime() string {
	entries := d.Device.ScreenSchedule()
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, `<item index="%d" onTime="%s" offTime="%s" days="%s"/>`, i, e.OnTime, e.OffTime, e.Days)
	}
	return b.String()
}

// persistDeviceState writes the current brightness, screen power, and
// schedules to the state database so they survive a restart. Failures are
// logged rather than surfaced, matching the reply envelope's own
// best-effort handling of side effects.
func (d *Dispatcher) persistDeviceState() {
	if err := d.Store.SaveDeviceState(d.Device); err != nil {
		log.Printf("protocol: failed to persist device state: %v", err)
	}
}

func (d *Dispatcher) encodeFileList() string {
	names, err := d.Store.GetFiles()
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, `<file name="%s"/>`, escapeXML(name))
	}
	return b.String()
}

// normalizeMethod lowercases method names for dispatch, matching the
// source's case-insensitive-on-the-first-character acceptance of both
// "AddProgram" and "addProgram" by simply folding the whole name.
func normalizeMethod(method string) string {
	return strings.ToLower(method)
}

// replyOK builds the standard success envelope, with an optional inner
// body appended after <result value="0"/>.
func replyOK(sessionGUID, method, body string) []byte {
	return []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="utf-8"?><sdk guid="%s"><out method="%s"><result value="0"/>%s</out></sdk>`,
		escapeXML(sessionGUID), escapeXML(method), body,
	))
}

// replyErr builds the standard failure envelope with an <error> child.
func replyErr(sessionGUID, method, message string) []byte {
	metrics.DispatcherErrors.WithLabelValues(normalizeMethod(method)).Inc()
	return []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="utf-8"?><sdk guid="%s"><out method="%s"><result value="1"/><error message="%s"/></out></sdk>`,
		escapeXML(sessionGUID), escapeXML(method), escapeXML(message),
	))
}

func escapeXML(s string) string {
	r := strings.NewReplacer(
		`&`, "&amp;",
		`<`, "&lt;",
		`>`, "&gt;",
		`"`, "&quot;",
		`'`, "&apos;",
	)
	return r.Replace(s)
}

// parseAttr finds an attribute value for a given element name, e.g.
// parseAttr(xml, "luminance", "value") on `<luminance value="50"/>`.
func parseAttr(xml, element, attr string) string {
	elemIdx := strings.Index(xml, "<"+element)
	if elemIdx < 0 {
		return ""
	}
	rest := xml[elemIdx:]
	marker := attr + `="`
	attrIdx := strings.Index(rest, marker)
	if attrIdx < 0 {
		return ""
	}
	rest = rest[attrIdx+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// parseSwitchTimeItems extracts every <item onTime=… offTime=… days=…/>
// from a SetSwitchTime command body.
func parseSwitchTimeItems(xml string) []device.ScreenScheduleEntry {
	var entries []device.ScreenScheduleEntry
	rest := xml
	for {
		idx := strings.Index(rest, "<item")
		if idx < 0 {
			break
		}
		end := strings.IndexByte(rest[idx:], '>')
		if end < 0 {
			break
		}
		tag := rest[idx : idx+end+1]
		entries = append(entries, device.ScreenScheduleEntry{
			OnTime:  parseAttr(tag, "item", "onTime"),
			OffTime: parseAttr(tag, "item", "offTime"),
			Days:    parseAttr(tag, "item", "days"),
		})
		rest = rest[idx+end+1:]
	}
	return entries
}

// parseFileNames extracts every <file name="…"/> from a DeleteFiles body.
func parseFileNames(xml string) []string {
	var names []string
	rest := xml
	for {
		idx := strings.Index(rest, "<file")
		if idx < 0 {
			break
		}
		end := strings.IndexByte(rest[idx:], '>')
		if end < 0 {
			break
		}
		tag := rest[idx : idx+end+1]
		if name := parseAttr(tag, "file", "name"); name != "" {
			names = append(names, name)
		}
		rest = rest[idx+end+1:]
	}
	return names
}
