package file

import (
	"fmt"

	"golang.org/x/net/bpf"
)

const (
	etherTypeVLAN = 0x8100
	etherTypeQinQ = 0x88a8
	etherTypeIPv4 = 0x0800
	etherTypeIPv6 = 0x86dd
	protocolUDP   = 17

	// maxFilterPorts keeps every conditional jump within the 8-bit skip field.
	maxFilterPorts = 200
)

// compilePortFilter builds a classic BPF program that keeps untagged IPv4 and
// IPv6 UDP datagrams addressed to one of ports, plus every VLAN tagged frame,
// which the decoder handles. IPv4 fragments are rejected.
//
//	 0  ldh [12]
//	 1  jeq #0x8100      accept
//	 2  jeq #0x88a8      accept
//	 3  jeq #0x0800      v4
//	 4  jeq #0x86dd      v6, else reject
//	 5  v4: ldb [23]
//	 6  jeq #17          else reject
//	 7  ldh [20]
//	 8  jset #0x1fff     reject
//	 9  ldxb 4*([14]&0xf)
//	10  ldh [x+16]
//	11  ja ports
//	12  v6: ldb [20]
//	13  jeq #17          else reject
//	14  ldh [56]
//	15  ports: jeq #port accept, one per port
//	    reject: ret #0
//	    accept: ret #snaplen
func compilePortFilter(ports []uint16, snaplen uint32) ([]bpf.Instruction, error) {
	if len(ports) == 0 {
		return nil, fmt.Errorf("port filter needs at least one port")
	}
	if len(ports) > maxFilterPorts {
		return nil, fmt.Errorf("port filter supports at most %d ports, got %d", maxFilterPorts, len(ports))
	}

	const (
		v4     = 5
		v6     = 12
		ports0 = 15
	)
	reject := ports0 + len(ports)
	accept := reject + 1
	skip := func(from, to int) uint8 { return uint8(to - from - 1) }

	prog := []bpf.Instruction{
		bpf.LoadAbsolute{Off: 12, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeVLAN, SkipTrue: skip(1, accept)},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeQinQ, SkipTrue: skip(2, accept)},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv4, SkipTrue: skip(3, v4)},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv6, SkipTrue: skip(4, v6), SkipFalse: skip(4, reject)},

		bpf.LoadAbsolute{Off: 23, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: protocolUDP, SkipFalse: skip(6, reject)},
		bpf.LoadAbsolute{Off: 20, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpBitsSet, Val: 0x1fff, SkipTrue: skip(8, reject)},
		bpf.LoadMemShift{Off: 14},
		bpf.LoadIndirect{Off: 16, Size: 2},
		bpf.Jump{Skip: uint32(skip(11, ports0))},

		bpf.LoadAbsolute{Off: 20, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: protocolUDP, SkipFalse: skip(13, reject)},
		bpf.LoadAbsolute{Off: 56, Size: 2},
	}
	for i, port := range ports {
		at := ports0 + i
		prog = append(prog, bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(port), SkipTrue: skip(at, accept)})
	}
	prog = append(prog,
		bpf.RetConstant{Val: 0},
		bpf.RetConstant{Val: snaplen},
	)

	// Assemble validates jump targets and operand sizes.
	if _, err := bpf.Assemble(prog); err != nil {
		return nil, fmt.Errorf("assemble port filter: %w", err)
	}
	return prog, nil
}
