package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"firestige.xyz/trpt/internal/config"
	"firestige.xyz/trpt/internal/core"
	"firestige.xyz/trpt/internal/flow"
	"firestige.xyz/trpt/internal/metrics"
	"firestige.xyz/trpt/internal/pipeline"
	"firestige.xyz/trpt/internal/source/file"
	"firestige.xyz/trpt/pkg/plugin"
	trptparser "firestige.xyz/trpt/plugins/parser/trpt"
	"firestige.xyz/trpt/plugins/processor/match"
	"firestige.xyz/trpt/plugins/reporter/console"
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode telemetry reports from hex or capture files",
	Long: `Decode telemetry reports and write one record per report to stdout.

With --hex a single report is decoded. With --file every capture file is
read concurrently; UDP datagrams to the collector ports are decoded as
reports, annotated with their flow's running report count, and written
as they are found.

Examples:
  trpt decode --hex 2d010441...
  trpt decode --file collector.pcapng --ports 5556 -o text
  trpt decode --file a.pcap --file b.pcap --field ipHdr.srcAddr --field intHdr.mdStackHdr.hops
  trpt decode --file collector.pcap --match trpt.kind=drop`,
	Run: func(cmd *cobra.Command, args []string) {
		c := decodeConfig(cmd, cfg)

		var err error
		switch {
		case decodeHexIn != "" && len(decodeFiles) > 0:
			exitWithError("--hex and --file are mutually exclusive", nil)
		case decodeHexIn != "":
			err = runDecodeHex(os.Stdout, decodeHexIn, c.Output)
		case len(decodeFiles) > 0:
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			_, err = runDecodeFiles(ctx, os.Stdout, c, decodeFiles)
		default:
			exitWithError("one of --hex or --file is required", nil)
		}
		if err != nil {
			exitWithError("decode failed", err)
		}
	},
}

var (
	decodeHexIn  string
	decodeFiles  []string
	decodeFormat string
	decodeFields []string
	decodePorts  []int
	decodeMatch  []string
)

func init() {
	decodeCmd.Flags().StringVar(&decodeHexIn, "hex", "", "single report as hex")
	decodeCmd.Flags().StringArrayVarP(&decodeFiles, "file", "f", nil, "pcap or pcapng capture file (repeatable)")
	decodeCmd.Flags().StringVarP(&decodeFormat, "output", "o", "", "output format: json, yaml or text")
	decodeCmd.Flags().StringArrayVar(&decodeFields, "field", nil, "dotted path to project into attributes (repeatable)")
	decodeCmd.Flags().IntSliceVar(&decodePorts, "ports", nil, "collector UDP ports (comma separated)")
	decodeCmd.Flags().StringArrayVar(&decodeMatch, "match", nil, "only write reports carrying label=value, e.g. trpt.kind=drop (repeatable)")
}

// decodeConfig applies the command-line overrides to a copy of base.
func decodeConfig(cmd *cobra.Command, base *config.Config) config.Config {
	c := *base
	if cmd.Flags().Changed("output") {
		c.Output.Format = decodeFormat
	}
	if cmd.Flags().Changed("field") {
		c.Output.Fields = decodeFields
	}
	if cmd.Flags().Changed("ports") {
		c.Collector.Ports = decodePorts
	}
	if cmd.Flags().Changed("match") {
		c.Output.Match = decodeMatch
	}
	return c
}

func newReporter(w io.Writer, out config.OutputConfig) (*console.ConsoleReporter, error) {
	return console.New(w, console.Config{Format: out.Format, Fields: out.Fields})
}

func runDecodeHex(w io.Writer, in string, out config.OutputConfig) error {
	r, err := decodeHex(in)
	if err != nil {
		return err
	}
	reporter, err := newReporter(w, out)
	if err != nil {
		return err
	}
	filter, err := newMatch(out)
	if err != nil {
		return err
	}
	pkt := &core.OutputPacket{
		Source:      "hex",
		Index:       1,
		Timestamp:   time.Now(),
		Labels:      trptparser.Labels(r),
		PayloadType: trptparser.Name,
		Payload:     r,
	}
	if !filter.Process(pkt) {
		return nil
	}
	if err := reporter.Report(context.Background(), pkt); err != nil {
		return err
	}
	return reporter.Flush(context.Background())
}

func newMatch(out config.OutputConfig) (*match.Processor, error) {
	labels, err := out.MatchLabels()
	if err != nil {
		return nil, err
	}
	return match.New(labels)
}

// runDecodeFiles runs one pipeline per file. The pipelines share the flow
// index and the reporter, so reports are correlated across files.
func runDecodeFiles(ctx context.Context, w io.Writer, c config.Config, files []string) (pipeline.Stats, error) {
	reporter, err := newReporter(w, c.Output)
	if err != nil {
		return pipeline.Stats{}, err
	}
	var processors []plugin.Processor
	if c.Flow.Enabled {
		processors = append(processors, flow.NewAnnotator(flow.New(c.Flow.TTL, c.Flow.CleanupInterval)))
	}
	if len(c.Output.Match) > 0 {
		filter, err := newMatch(c.Output)
		if err != nil {
			return pipeline.Stats{}, err
		}
		processors = append(processors, filter)
	}

	pipelines := make([]*pipeline.Pipeline, 0, len(files))
	for i, path := range files {
		src, err := file.New(file.Config{
			Path:    path,
			Ports:   c.Collector.Ports,
			BPF:     c.Collector.BPF,
			SnapLen: c.Collector.SnapLen,
		})
		if err != nil {
			return pipeline.Stats{}, err
		}
		parser := trptparser.NewParser()
		if err := parser.Configure(trptparser.Config{Ports: c.Collector.Ports, MinVersion: c.Collector.MinVersion}); err != nil {
			return pipeline.Stats{}, err
		}
		pipelines = append(pipelines, pipeline.NewBuilder().
			WithID(i).
			WithSource(path).
			WithCapturer(src).
			WithParsers(parser).
			WithProcessors(processors...).
			WithReporters(reporter).
			WithBufferSize(c.Pipeline.BufferSize).
			Build())
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pipelines {
		p := p
		g.Go(func() error { return p.Run(gctx) })
	}
	runErr := g.Wait()

	var total pipeline.Stats
	for _, p := range pipelines {
		total = total.Add(p.Stats())
	}
	slog.Info("decode finished",
		"files", len(files),
		"received", total.Received,
		"reported", total.Reported,
		"skipped", total.Skipped,
		"decode_errors", total.DecodeErrors,
		"parse_errors", total.ParseErrors)

	if c.Metrics.Enabled {
		if err := metrics.WriteTextfile(c.Metrics.Textfile); err != nil {
			return total, fmt.Errorf("write metrics: %w", err)
		}
	}
	return total, runErr
}
