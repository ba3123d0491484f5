// Package file reads captured frames from pcap and pcapng files.
package file

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/net/bpf"

	"firestige.xyz/trpt/internal/core"
	"firestige.xyz/trpt/pkg/plugin"
)

// Name is the capturer name used in the plugin registry.
const Name = "file"

const (
	defaultSnapLen = 262144
	pcapngMagic    = 0x0a0d0d0a
)

func init() {
	plugin.RegisterCapturer(Name, func() plugin.Capturer { return &Source{} })
}

// Config configures a file source.
type Config struct {
	Path    string `mapstructure:"path"`
	Ports   []int  `mapstructure:"ports"`   // UDP destination ports kept by the filter
	BPF     bool   `mapstructure:"bpf"`     // Pre-filter frames with a classic BPF program
	SnapLen int    `mapstructure:"snaplen"` // Accept length returned by the filter
}

// Source is a plugin.Capturer over one capture file.
type Source struct {
	cfg Config
	vm  *bpf.VM

	received atomic.Uint64
	filtered atomic.Uint64
	dropped  atomic.Uint64
}

// New creates a source from cfg.
func New(cfg Config) (*Source, error) {
	s := &Source{}
	if err := s.configure(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Source) configure(cfg Config) error {
	if cfg.Path == "" {
		return fmt.Errorf("%w: file source requires a path", core.ErrConfigInvalid)
	}
	if cfg.SnapLen <= 0 {
		cfg.SnapLen = defaultSnapLen
	}
	ports := make([]uint16, 0, len(cfg.Ports))
	for _, p := range cfg.Ports {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("%w: port %d out of range", core.ErrConfigInvalid, p)
		}
		ports = append(ports, uint16(p))
	}

	s.cfg = cfg
	s.vm = nil
	if cfg.BPF && len(ports) > 0 {
		prog, err := compilePortFilter(ports, uint32(cfg.SnapLen))
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
		}
		vm, err := bpf.NewVM(prog)
		if err != nil {
			return fmt.Errorf("%w: load port filter: %v", core.ErrConfigInvalid, err)
		}
		s.vm = vm
		slog.Debug("capture filter loaded", "path", cfg.Path, "ports", cfg.Ports, "instructions", len(prog))
	}
	return nil
}

// Name implements plugin.Plugin.
func (s *Source) Name() string { return Name }

// Init implements plugin.Plugin.
func (s *Source) Init(cfg map[string]any) error {
	var c Config
	if err := mapstructure.Decode(cfg, &c); err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrPluginInitFailed, Name, err)
	}
	return s.configure(c)
}

// Start implements plugin.Plugin.
func (s *Source) Start(context.Context) error { return nil }

// Stop implements plugin.Plugin.
func (s *Source) Stop(context.Context) error { return nil }

// Stats implements plugin.Capturer.
func (s *Source) Stats() plugin.CaptureStats {
	return plugin.CaptureStats{
		PacketsReceived: s.received.Load(),
		PacketsFiltered: s.filtered.Load(),
		PacketsDropped:  s.dropped.Load(),
	}
}

// packetReader is satisfied by pcapgo.Reader and pcapgo.NgReader.
type packetReader interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

func openReader(r io.Reader) (packetReader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("read capture header: %w", err)
	}
	if binary.BigEndian.Uint32(magic) == pcapngMagic {
		return pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	}
	return pcapgo.NewReader(br)
}

// Capture implements plugin.Capturer. It returns nil at end of file and
// ctx.Err() when cancelled.
func (s *Source) Capture(ctx context.Context, output chan<- core.RawPacket) error {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("open capture file: %w", err)
	}
	defer f.Close()

	r, err := openReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", s.cfg.Path, err)
	}
	if lt := r.LinkType(); lt != layers.LinkTypeEthernet {
		return fmt.Errorf("%s: link type %s: %w", s.cfg.Path, lt, core.ErrUnsupportedProto)
	}

	var index uint64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, ci, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			slog.Debug("capture file exhausted", "path", s.cfg.Path, "frames", index)
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: frame %d: %w", s.cfg.Path, index+1, err)
		}
		index++
		s.received.Add(1)

		if s.vm != nil {
			if n, err := s.vm.Run(data); err != nil || n == 0 {
				s.filtered.Add(1)
				continue
			}
		}

		pkt := core.RawPacket{
			Data:       data,
			Timestamp:  ci.Timestamp,
			CaptureLen: uint32(ci.CaptureLength),
			OrigLen:    uint32(ci.Length),
			Source:     s.cfg.Path,
			Index:      index,
		}
		select {
		case output <- pkt:
		case <-ctx.Done():
			s.dropped.Add(1)
			return ctx.Err()
		}
	}
}
