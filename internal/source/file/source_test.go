package file

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/bpf"

	"firestige.xyz/trpt/internal/core"
	"firestige.xyz/trpt/pkg/plugin"
)

// ---------------------------------------------------------------------------
// Frame and file builders
// ---------------------------------------------------------------------------

var (
	srcMAC = net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	dstMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
)

func serialize(t testing.TB, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, ls...))
	return buf.Bytes()
}

func udp4Frame(t testing.TB, dstPort uint16, ihl uint8) []byte {
	ip := &layers.IPv4{
		Version: 4, IHL: ihl, TTL: 64, Protocol: layers.IPProtocolUDP,
		SrcIP: net.IPv4(10, 0, 0, 1).To4(), DstIP: net.IPv4(10, 0, 0, 2).To4(),
	}
	if ihl > 5 {
		ip.Options = []layers.IPv4Option{{OptionType: 1}, {OptionType: 1}, {OptionType: 1}, {OptionType: 1}}
	}
	return serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4},
		ip, &layers.UDP{SrcPort: 1, DstPort: layers.UDPPort(dstPort)}, gopacket.Payload("report"))
}

func udp6Frame(t testing.TB, dstPort uint16) []byte {
	return serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv6},
		&layers.IPv6{Version: 6, HopLimit: 1, NextHeader: layers.IPProtocolUDP,
			SrcIP: net.ParseIP("2001:db8::1"), DstIP: net.ParseIP("2001:db8::2")},
		&layers.UDP{SrcPort: 1, DstPort: layers.UDPPort(dstPort)}, gopacket.Payload("report"))
}

func tcp4Frame(t testing.TB, dstPort uint16) []byte {
	return serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4},
		&layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP,
			SrcIP: net.IPv4(10, 0, 0, 1).To4(), DstIP: net.IPv4(10, 0, 0, 2).To4()},
		&layers.TCP{SrcPort: 1, DstPort: layers.TCPPort(dstPort), Window: 1})
}

func writePcap(t *testing.T, frames ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     time.Unix(1624470281+int64(i), 0),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		require.NoError(t, w.WritePacket(ci, frame))
	}
	return path
}

func capture(t *testing.T, s *Source) []core.RawPacket {
	t.Helper()
	out := make(chan core.RawPacket, 64)
	require.NoError(t, s.Capture(context.Background(), out))
	close(out)
	var pkts []core.RawPacket
	for p := range out {
		pkts = append(pkts, p)
	}
	return pkts
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCapturePcap(t *testing.T) {
	frames := [][]byte{udp4Frame(t, 555, 5), udp6Frame(t, 555), tcp4Frame(t, 80)}
	s, err := New(Config{Path: writePcap(t, frames...)})
	require.NoError(t, err)

	pkts := capture(t, s)
	require.Len(t, pkts, 3)
	for i, p := range pkts {
		assert.Equal(t, frames[i], p.Data)
		assert.Equal(t, uint64(i+1), p.Index)
		assert.Equal(t, time.Unix(1624470281+int64(i), 0).UTC(), p.Timestamp.UTC())
		assert.Equal(t, uint32(len(frames[i])), p.CaptureLen)
		assert.Equal(t, s.cfg.Path, p.Source)
	}
	assert.Equal(t, plugin.CaptureStats{PacketsReceived: 3}, s.Stats())
}

func TestCapturePcapng(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.pcapng")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := pcapgo.NewNgWriter(f, layers.LinkTypeEthernet)
	require.NoError(t, err)
	frame := udp4Frame(t, 555, 5)
	ci := gopacket.CaptureInfo{Timestamp: time.Unix(1, 0), CaptureLength: len(frame), Length: len(frame)}
	require.NoError(t, w.WritePacket(ci, frame))
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())

	s, err := New(Config{Path: path})
	require.NoError(t, err)
	pkts := capture(t, s)
	require.Len(t, pkts, 1)
	assert.Equal(t, frame, pkts[0].Data)
}

func TestCaptureWithPortFilter(t *testing.T) {
	frames := [][]byte{
		udp4Frame(t, 555, 5),
		udp4Frame(t, 556, 5),
		udp4Frame(t, 32766, 6),
		udp6Frame(t, 32766),
		udp6Frame(t, 53),
		tcp4Frame(t, 555),
	}
	s, err := New(Config{Path: writePcap(t, frames...), Ports: []int{555, 32766}, BPF: true})
	require.NoError(t, err)

	pkts := capture(t, s)
	require.Len(t, pkts, 3)
	assert.Equal(t, []uint64{1, 3, 4}, []uint64{pkts[0].Index, pkts[1].Index, pkts[2].Index})
	assert.Equal(t, plugin.CaptureStats{PacketsReceived: 6, PacketsFiltered: 3}, s.Stats())
}

func TestCaptureCancelled(t *testing.T) {
	s, err := New(Config{Path: writePcap(t, udp4Frame(t, 555, 5), udp4Frame(t, 555, 5))})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan core.RawPacket)
	done := make(chan error, 1)
	go func() { done <- s.Capture(ctx, out) }()

	<-out
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("capture did not stop")
	}
}

func TestCaptureErrors(t *testing.T) {
	s, err := New(Config{Path: filepath.Join(t.TempDir(), "missing.pcap")})
	require.NoError(t, err)
	assert.Error(t, s.Capture(context.Background(), make(chan core.RawPacket, 1)))

	garbage := filepath.Join(t.TempDir(), "garbage.pcap")
	require.NoError(t, os.WriteFile(garbage, []byte("not a capture file"), 0o644))
	s, err = New(Config{Path: garbage})
	require.NoError(t, err)
	assert.Error(t, s.Capture(context.Background(), make(chan core.RawPacket, 1)))

	raw := filepath.Join(t.TempDir(), "raw.pcap")
	f, err := os.Create(raw)
	require.NoError(t, err)
	require.NoError(t, pcapgo.NewWriter(f).WriteFileHeader(65536, layers.LinkTypeRaw))
	require.NoError(t, f.Close())
	s, err = New(Config{Path: raw})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Capture(context.Background(), make(chan core.RawPacket, 1)), core.ErrUnsupportedProto)
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)

	_, err = New(Config{Path: "x.pcap", Ports: []int{70000}})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)

	s := &Source{}
	require.NoError(t, s.Init(map[string]any{"path": "x.pcap", "ports": []int{555}, "bpf": true}))
	assert.NotNil(t, s.vm)
	assert.Equal(t, defaultSnapLen, s.cfg.SnapLen)

	factory, err := plugin.GetCapturerFactory(Name)
	require.NoError(t, err)
	assert.Equal(t, Name, factory().Name())
}

func TestCompilePortFilter(t *testing.T) {
	_, err := compilePortFilter(nil, 100)
	assert.Error(t, err)
	_, err = compilePortFilter(make([]uint16, maxFilterPorts+1), 100)
	assert.Error(t, err)

	prog, err := compilePortFilter([]uint16{555}, 1500)
	require.NoError(t, err)
	vm, err := bpf.NewVM(prog)
	require.NoError(t, err)

	tagged := serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeDot1Q},
		&layers.Dot1Q{VLANIdentifier: 7, Type: layers.EthernetTypeARP},
		gopacket.Payload(make([]byte, 28)))

	cases := map[string]struct {
		frame []byte
		keep  bool
	}{
		"udp4 match":   {udp4Frame(t, 555, 5), true},
		"udp4 options": {udp4Frame(t, 555, 6), true},
		"udp4 miss":    {udp4Frame(t, 554, 5), false},
		"udp6 match":   {udp6Frame(t, 555), true},
		"tcp":          {tcp4Frame(t, 555), false},
		"vlan tagged":  {tagged, true},
		"runt":         {[]byte{0x01, 0x02}, false},
	}
	for name, tc := range cases {
		n, err := vm.Run(tc.frame)
		require.NoError(t, err, name)
		assert.Equal(t, tc.keep, n > 0, name)
	}
}
