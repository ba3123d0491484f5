package trpt

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReportHeader(t *testing.T) {
	r, err := Decode(udp4().Bytes())
	require.NoError(t, err)

	h := r.Header()
	assert.Equal(t, uint8(2), h.Version())
	assert.Equal(t, uint8(13), h.HardwareID())
	assert.Equal(t, uint32(1089), h.SequenceID())
	assert.Equal(t, uint32(234), h.NodeID())
	assert.Equal(t, uint8(0), h.ReportType())
	assert.Equal(t, uint8(4), h.InType())
	assert.Equal(t, uint8(10), h.ReportLength())
	assert.Equal(t, uint8(8), h.MetadataLength())
	assert.Equal(t, []uint8{0, 1, 0, 1}, []uint8{h.D(), h.Q(), h.F(), h.I()})
	assert.Equal(t, "0101010110101010", h.RepMdBits())
	assert.Equal(t, uint16(21587), h.DomainID())
	assert.Equal(t, "0101010110101010", h.DsMdBits())
	assert.Equal(t, "1010101001010101", h.DsMdStatus())
	assert.Equal(t, "00000000000000000000000000000000", h.VarOptMd())
}

func TestSequenceIDUsesAll22Bits(t *testing.T) {
	b := udp4().Bytes()
	b[1] = 0x40 | 0x3f
	b[2], b[3] = 0xff, 0xff

	r, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(1<<22-1), r.Header().SequenceID())
	assert.Equal(t, uint8(13), r.Header().HardwareID())
}

func TestDecodePacketReports(t *testing.T) {
	for name, f := range allPacketFixtures() {
		t.Run(name, func(t *testing.T) {
			r, err := Decode(f.Bytes())
			require.NoError(t, err)
			require.Equal(t, KindPacket, r.Kind())

			p, ok := r.Packet()
			require.True(t, ok)
			_, isDrop := r.Drop()
			assert.False(t, isDrop)

			assert.Equal(t, "00:00:00:00:05:01", p.Ethernet.DestinationMAC())
			assert.Equal(t, "00:00:00:00:01:01", p.Ethernet.SourceMAC())

			assert.Equal(t, uint8(f.IPVersion), p.IP.Version())
			assert.Equal(t, uint8(ProtocolUDP), p.IP.NextProto())
			if f.IPVersion == 4 {
				assert.Equal(t, uint16(2048), p.Ethernet.EtherType())
				assert.Equal(t, uint16(94), p.IP.Length())
				assert.Equal(t, "192.168.1.2", p.IP.Source().String())
				assert.Equal(t, "192.168.1.10", p.IP.Destination().String())
			} else {
				assert.Equal(t, uint16(34525), p.Ethernet.EtherType())
				assert.Equal(t, "::1:1:2", p.IP.Source().String())
				assert.Equal(t, "::1:1:1d", p.IP.Destination().String())
			}

			assert.Equal(t, uint16(0), p.UDP.SourcePort())
			assert.Equal(t, uint16(555), p.UDP.DestinationPort())
			assert.Equal(t, uint16(74), p.UDP.Length())

			assert.Equal(t, uint8(1), p.INT.Shim.Type())
			assert.Equal(t, uint8(2), p.INT.Shim.NextProtocolType())
			assert.Equal(t, uint8(8), p.INT.Shim.Length())
			assert.Equal(t, f.Proto, p.INT.Shim.NextProto())

			md := p.INT.Metadata
			assert.Equal(t, uint8(2), md.Version())
			assert.Equal(t, []uint8{0, 0, 0}, []uint8{md.D(), md.E(), md.M()})
			assert.Equal(t, uint8(1), md.PerHopLength())
			assert.Equal(t, uint8(9), md.RemainingHopCount())
			assert.Equal(t, "1000000000000000", md.Instructions())
			assert.Equal(t, uint16(21587), md.DomainID())
			assert.Equal(t, "1000000000000000", md.DsInstructions())
			assert.Equal(t, "0100000000000000", md.DsFlags())

			assert.Equal(t, "00:00:00:00:01:01", p.INT.Stack.OriginatingMAC())
			assert.Equal(t, []uint32{123, 234}, p.INT.Stack.Hops())

			assert.Equal(t, uint16(6680), p.Proto.SourcePort())
			assert.Equal(t, uint16(5792), p.Proto.DestinationPort())
			assert.Equal(t, []byte(samplePayload), r.Payload())
		})
	}
}

func TestDecodeDropReport(t *testing.T) {
	r, err := Decode(dropReportBytes(""))
	require.NoError(t, err)
	require.Equal(t, KindDrop, r.Kind())

	_, isPacket := r.Packet()
	assert.False(t, isPacket)
	d, ok := r.Drop()
	require.True(t, ok)

	assert.Equal(t, uint8(InTypeDrop), r.Header().InType())
	assert.Equal(t, uint32(123), r.Header().NodeID())
	assert.Equal(t, uint16(21587), r.Header().DomainID())
	assert.Equal(t, uint8(2), r.Header().Version())
	assert.Equal(t, uint8(9), r.Header().ReportLength())
	assert.Equal(t, uint8(7), r.Header().MetadataLength())

	assert.Equal(t, uint32(1624470281), d.Drop.Timestamp())
	assert.Equal(t, uint32(0), d.Drop.DropCount())
	assert.Equal(t, sampleDropKey, d.Drop.DropKey())
	assert.Empty(t, r.Payload())
}

func TestRoundTripIsByteExact(t *testing.T) {
	inputs := map[string][]byte{
		"drop":         dropReportBytes(""),
		"drop+payload": dropReportBytes("trailing"),
	}
	for name, f := range allPacketFixtures() {
		inputs[name] = f.Bytes()
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			r, err := Decode(in)
			require.NoError(t, err)
			assert.Equal(t, in, r.Bytes())

			again, err := Decode(r.Bytes())
			require.NoError(t, err)
			if diff := cmp.Diff(r.Fields(), again.Fields()); diff != "" {
				t.Errorf("fields changed across round trip (-first +second):\n%s", diff)
			}
		})
	}
}

func TestDecodeCopiesInput(t *testing.T) {
	in := udp4().Bytes()
	orig := bytes.Clone(in)

	r, err := Decode(in)
	require.NoError(t, err)
	require.NoError(t, r.SetDestinationPort(1))
	assert.Equal(t, orig, in)

	in[0] = 0xff
	assert.Equal(t, uint8(2), r.Header().Version())

	out := r.Bytes()
	out[0] = 0xff
	assert.Equal(t, uint8(2), r.Header().Version())
}

func TestMutateThenRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		fixture packetFixture
		src     string
		dst     string
		srcText string
		dstText string
	}{
		{name: "ipv4", fixture: udp4(), src: "10.10.1.2", dst: "10.10.1.10", srcText: "10.10.1.2", dstText: "10.10.1.10"},
		{name: "ipv6", fixture: allPacketFixtures()["tcp6"], src: "::1", dst: "::2", srcText: "0:0:0:0:0:0:0:1", dstText: "0:0:0:0:0:0:0:2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode(tt.fixture.Bytes())
			require.NoError(t, err)
			want := r.Fields()

			require.NoError(t, r.SetSourcePort(2345))
			require.NoError(t, r.SetDestinationPort(6789))
			require.NoError(t, r.SetSourceAddress(tt.src))
			require.NoError(t, r.SetDestinationAddress(tt.dst))
			require.NoError(t, r.SetOriginatingMAC("11:11:11:11:00:00"))
			assert.Len(t, r.Bytes(), len(tt.fixture.Bytes()))

			proto := want["protoHdr"].(map[string]any)
			proto["srcPort"], proto["dstPort"] = uint16(2345), uint16(6789)
			ip := want["ipHdr"].(map[string]any)
			ip["srcAddr"], ip["dstAddr"] = tt.srcText, tt.dstText
			stack := want["intHdr"].(map[string]any)["mdStackHdr"].(map[string]any)
			stack["origMac"] = "11:11:11:11:00:00"

			first, err := Decode(r.Bytes())
			require.NoError(t, err)
			if diff := cmp.Diff(want, first.Fields()); diff != "" {
				t.Errorf("unexpected fields after mutation (-want +got):\n%s", diff)
			}
			second, err := Decode(first.Bytes())
			require.NoError(t, err)
			assert.Equal(t, first.Bytes(), second.Bytes())
		})
	}
}

func TestSetDestinationPortExample(t *testing.T) {
	r, err := Decode(udp4().Bytes())
	require.NoError(t, err)
	before := r.Fields()

	require.NoError(t, r.SetDestinationPort(6789))
	after, err := Decode(r.Bytes())
	require.NoError(t, err)

	p, _ := after.Packet()
	assert.Equal(t, uint16(6789), p.Proto.DestinationPort())
	before["protoHdr"].(map[string]any)["dstPort"] = uint16(6789)
	assert.Empty(t, cmp.Diff(before, after.Fields()))
}

func TestAddressFamilyMismatch(t *testing.T) {
	tests := []struct {
		name    string
		fixture packetFixture
		addr    string
	}{
		{name: "ipv6 on ipv4 header", fixture: udp4(), addr: "::1"},
		{name: "ipv4 on ipv6 header", fixture: allPacketFixtures()["udp6"], addr: "10.10.1.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode(tt.fixture.Bytes())
			require.NoError(t, err)

			err = r.SetSourceAddress(tt.addr)
			assert.ErrorIs(t, err, ErrAddressFamilyMismatch)
			err = r.SetDestinationAddress(tt.addr)
			assert.ErrorIs(t, err, ErrAddressFamilyMismatch)
			assert.Equal(t, tt.fixture.Bytes(), r.Bytes())
		})
	}
}

func TestMalformedLiterals(t *testing.T) {
	r, err := Decode(udp4().Bytes())
	require.NoError(t, err)

	assert.ErrorIs(t, r.SetSourceAddress("10.10.1"), ErrMalformedAddressLiteral)
	assert.ErrorIs(t, r.SetDestinationAddress("fe80::1%eth0"), ErrMalformedAddressLiteral)
	assert.ErrorIs(t, r.SetOriginatingMAC("11:11:11:11:00"), ErrMalformedAddressLiteral)
	assert.ErrorIs(t, r.SetOriginatingMAC("00:00:5e:00:53:00:00:01"), ErrMalformedAddressLiteral)
	assert.Equal(t, udp4().Bytes(), r.Bytes())
}

func TestDropReportRejectsPacketMutators(t *testing.T) {
	r, err := Decode(dropReportBytes(""))
	require.NoError(t, err)

	mutators := map[string]func() error{
		"src port": func() error { return r.SetSourcePort(1) },
		"dst port": func() error { return r.SetDestinationPort(1) },
		"src addr": func() error { return r.SetSourceAddress("10.0.0.1") },
		"dst addr": func() error { return r.SetDestinationAddress("10.0.0.1") },
		"mac":      func() error { return r.SetOriginatingMAC("11:11:11:11:00:00") },
	}
	for name, mutate := range mutators {
		assert.ErrorIs(t, mutate(), ErrUnsupportedForDropReport, name)
	}
	assert.Equal(t, dropReportBytes(""), r.Bytes())
}

func TestDecodeTruncated(t *testing.T) {
	for name, f := range allPacketFixtures() {
		t.Run(name, func(t *testing.T) {
			full := f.Bytes()
			for n := 0; n < f.HeaderLen(); n++ {
				_, err := Decode(full[:n])
				require.ErrorIs(t, err, ErrTruncatedBuffer, "length %d", n)
			}
			_, err := Decode(full[:f.HeaderLen()])
			assert.NoError(t, err)
		})
	}

	t.Run("drop", func(t *testing.T) {
		full := dropReportBytes("")
		for n := 0; n < len(full); n++ {
			_, err := Decode(full[:n])
			require.ErrorIs(t, err, ErrTruncatedBuffer, "length %d", n)
		}
	})
}

func TestDecodeInconsistentLength(t *testing.T) {
	shimOffset := ReportHeaderLen + EthernetHeaderLen + IPv4HeaderLen + UDPIntHeaderLen

	tests := []struct {
		name   string
		mutate func(b []byte)
	}{
		{name: "shim length below fixed words", mutate: func(b []byte) { b[shimOffset+1] = stackWords - 1 }},
		{name: "unknown next protocol", mutate: func(b []byte) { b[shimOffset+3] = 1 }},
		{name: "ipv4 ethertype with ipv6 header", mutate: func(b []byte) {
			b[ReportHeaderLen+EthernetHeaderLen] = 0x60
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := udp4().Bytes()
			tt.mutate(b)
			_, err := Decode(b)
			assert.ErrorIs(t, err, ErrInconsistentLength)
		})
	}
}

func TestShimLengthBeyondBuffer(t *testing.T) {
	b := udp4().Bytes()
	shimOffset := ReportHeaderLen + EthernetHeaderLen + IPv4HeaderLen + UDPIntHeaderLen
	b[shimOffset+1] = 200

	_, err := Decode(b)
	assert.ErrorIs(t, err, ErrTruncatedBuffer)
}

func TestHopCounts(t *testing.T) {
	for _, hops := range [][]uint32{nil, {7}, {5, 4, 3, 2, 1}} {
		t.Run(fmt.Sprintf("%d hops", len(hops)), func(t *testing.T) {
			f := udp4()
			f.Hops = hops
			r, err := Decode(f.Bytes())
			require.NoError(t, err)

			p, _ := r.Packet()
			assert.Equal(t, len(hops), p.INT.Stack.HopCount())
			if len(hops) == 0 {
				assert.Empty(t, p.INT.Stack.Hops())
			} else {
				assert.Equal(t, hops, p.INT.Stack.Hops())
			}
			assert.Equal(t, "00:00:00:00:01:01", p.INT.Stack.OriginatingMAC())
			assert.Equal(t, uint16(5792), p.Proto.DestinationPort())
		})
	}
}

func TestLayout(t *testing.T) {
	r, err := Decode(udp4().Bytes())
	require.NoError(t, err)

	want := []Span{
		{Name: "telemRptHdr", Offset: 0, Length: 24},
		{Name: "intEthHdr", Offset: 24, Length: 14},
		{Name: "ipHdr", Offset: 38, Length: 20},
		{Name: "udpIntHdr", Offset: 58, Length: 8},
		{Name: "intHdr.shimHdr", Offset: 66, Length: 4},
		{Name: "intHdr.mdHdr", Offset: 70, Length: 12},
		{Name: "intHdr.mdStackHdr", Offset: 82, Length: 14},
		{Name: "protoHdr", Offset: 96, Length: 8},
		{Name: "payload", Offset: 104, Length: len(samplePayload)},
	}
	assert.Equal(t, want, r.Layout())

	d, err := Decode(dropReportBytes(""))
	require.NoError(t, err)
	assert.Equal(t, []Span{
		{Name: "telemRptHdr", Offset: 0, Length: 24},
		{Name: "dropHdr", Offset: 24, Length: 32},
	}, d.Layout())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "packet", KindPacket.String())
	assert.Equal(t, "drop", KindDrop.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestErrorsAreDistinct(t *testing.T) {
	all := []error{
		ErrTruncatedBuffer, ErrInconsistentLength, ErrAddressFamilyMismatch,
		ErrUnsupportedForDropReport, ErrMalformedAddressLiteral, ErrFieldNotFound,
	}
	for i, a := range all {
		for j, b := range all {
			assert.Equal(t, i == j, errors.Is(a, b), "%v vs %v", a, b)
		}
	}
}

func BenchmarkDecode(b *testing.B) {
	in := udp4().Bytes()
	b.ReportAllocs()
	b.SetBytes(int64(len(in)))
	for i := 0; i < b.N; i++ {
		if _, err := Decode(in); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCorrelationKey(b *testing.B) {
	r, err := Decode(udp4().Bytes())
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = r.CorrelationKey()
	}
}
