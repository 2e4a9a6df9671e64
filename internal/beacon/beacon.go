// Package beacon implements the UDP discovery/announce dialect on port
// 9527 by which the device advertises itself to HDPlayer on the LAN.
package beacon

import (
	"fmt"
	"log"
	"net"
	"time"

	"github.com/ledsign/boxplayer/internal/device"
	"github.com/ledsign/boxplayer/internal/metrics"
)

// Port is the well-known discovery port.
const Port = 9527

// BroadcastInterval is how often unsolicited DeviceInfo/Ext1 packets are
// sent to the broadcast address absent any incoming traffic.
const BroadcastInterval = 3 * time.Second

// replyDelay separates the DeviceInfo and Ext1 unicast replies to a probe,
// matching observed client traffic.
const replyDelay = 50 * time.Millisecond

// Beacon answers discovery probes and periodically broadcasts device
// announcements.
type Beacon struct {
	conn       *net.UDPConn
	device     *device.State
	playerName string

	// Status is read for the Ext1 status packet; the beacon only ever reads
	// it, never mutates player state.
	Status StatusProvider
}

// StatusProvider supplies the live fields the Ext1 packet reports,
// decoupling the beacon from the player's internal types.
type StatusProvider interface {
	PlayStatus() (status uint8, programIndex, normalCount, intercutCount int)
}

// New binds the discovery UDP socket with broadcast enabled.
func New(dev *device.State, playerName string, status StatusProvider) (*Beacon, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: Port, IP: net.IPv4zero})
	if err != nil {
		return nil, fmt.Errorf("beacon: listen udp: %w", err)
	}
	return &Beacon{conn: conn, device: dev, playerName: playerName, Status: status}, nil
}

// Close releases the UDP socket.
func (b *Beacon) Close() error {
	return b.conn.Close()
}

// Run serves incoming probes and periodic broadcasts until stopCh closes.
func (b *Beacon) Run(stopCh <-chan struct{}) {
	log.Printf("beacon: listening on UDP %d", Port)

	go b.broadcastLoop(stopCh)

	buf := make([]byte, 2048)
	for {
		select {
		case <-stopCh:
			return
		default:
		}
		b.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, addr, err := b.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			log.Printf("beacon: read error: %v", err)
			continue
		}
		if n < 2 {
			continue
		}
		b.replyTo(addr)
	}
}

func (b *Beacon) replyTo(addr *net.UDPAddr) {
	deviceInfo, ext1 := b.buildPackets()
	if _, err := b.conn.WriteToUDP(deviceInfo, addr); err != nil {
		log.Printf("beacon: write DeviceInfo to %s: %v", addr, err)
		return
	}
	metrics.BeaconPacketsSent.Inc()
	time.Sleep(replyDelay)
	if _, err := b.conn.WriteToUDP(ext1, addr); err != nil {
		log.Printf("beacon: write Ext1 to %s: %v", addr, err)
		return
	}
	metrics.BeaconPacketsSent.Inc()
}

func (b *Beacon) broadcastLoop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()
	broadcastAddr := &net.UDPAddr{IP: net.IPv4bcast, Port: Port}
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			deviceInfo, ext1 := b.buildPackets()
			if _, err := b.conn.WriteToUDP(deviceInfo, broadcastAddr); err != nil {
				log.Printf("beacon: broadcast DeviceInfo: %v", err)
			} else {
				metrics.BeaconPacketsSent.Inc()
			}
			if _, err := b.conn.WriteToUDP(ext1, broadcastAddr); err != nil {
				log.Printf("beacon: broadcast Ext1: %v", err)
			} else {
				metrics.BeaconPacketsSent.Inc()
			}
		}
	}
}

// buildPackets constructs the DeviceInfo and Ext1 packets fresh each time
// so they reflect current brightness/screen state.
func (b *Beacon) buildPackets() (deviceInfo, ext1 []byte) {
	return b.buildDeviceInfo(), b.buildExt1()
}

func (b *Beacon) buildDeviceInfo() []byte {
	deviceIDField := fixedField(b.device.DeviceID(), 15)
	ip := localIPv4()

	screenOnOff := "0"
	if b.device.ScreenOn() {
		screenOnOff = "1"
	}
	xmlBody := fmt.Sprintf(
		`<DeviceInfo CPUType="BoxPlayer" ScreenOnOff="%s" ScreenR="%d" HardwareVersion="1.0"/>`,
		screenOnOff, b.device.Brightness(),
	)

	out := make([]byte, 0, 15+4+len(b.playerName)+1+len(xmlBody))
	out = append(out, deviceIDField...)
	out = append(out, ip...)
	out = append(out, []byte(b.playerName)...)
	out = append(out, 0x00)
	out = append(out, []byte(xmlBody)...)
	return out
}

func (b *Beacon) buildExt1() []byte {
	deviceIDField := fixedField(b.device.DeviceID(), 15)

	var status uint8
	var programIndex, normalCount, intercutCount int
	if b.Status != nil {
		status, programIndex, normalCount, intercutCount = b.Status.PlayStatus()
	}

	xmlBody := fmt.Sprintf(
		`<Ext1 PlayStatus="%d" ProgramIndex="%d" ProgramCount="%d,%d" DeviceLocker="0" WifiApPasswd=""/>`,
		status, programIndex, normalCount, intercutCount,
	)

	out := make([]byte, 0, 15+len(xmlBody))
	out = append(out, deviceIDField...)
	out = append(out, []byte(xmlBody)...)
	return out
}

// fixedField returns s truncated or NUL-padded to exactly n bytes.
func fixedField(s string, n int) []byte {
	out := make([]byte, n)
	copy(out, s)
	return out
}

// localIPv4 best-effort resolves the host's primary outbound IPv4
// address; it falls back to 0.0.0.0 when none can be determined.
func localIPv4() []byte {
	conn, err := net.Dial("udp4", "255.255.255.255:1")
	if err != nil {
		return make([]byte, 4)
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return make([]byte, 4)
	}
	ip4 := addr.IP.To4()
	if ip4 == nil {
		return make([]byte, 4)
	}
	return ip4
}
