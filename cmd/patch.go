package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Rewrite fields of a packet report",
	Long: `Rewrite the encapsulated ports, addresses or originating MAC of a packet
report and print the re-serialized report as hex. Only the flags given are
applied. Drop reports cannot be patched.

Examples:
  trpt patch --hex 2d010441... --dst-port 8080
  trpt patch --hex 2d010441... --src-addr 10.0.0.1 --orig-mac 00:11:22:33:44:55`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runPatch(os.Stdout, patchHex, patchFrom(cmd.Flags())); err != nil {
			exitWithError("failed to patch report", err)
		}
	},
}

var (
	patchHex     string
	patchSrcPort uint16
	patchDstPort uint16
	patchSrcAddr string
	patchDstAddr string
	patchOrigMAC string
)

func init() {
	patchCmd.Flags().StringVar(&patchHex, "hex", "", "report bytes as hex (required)")
	patchCmd.Flags().Uint16Var(&patchSrcPort, "src-port", 0, "new original source port")
	patchCmd.Flags().Uint16Var(&patchDstPort, "dst-port", 0, "new original destination port")
	patchCmd.Flags().StringVar(&patchSrcAddr, "src-addr", "", "new original source address")
	patchCmd.Flags().StringVar(&patchDstAddr, "dst-addr", "", "new original destination address")
	patchCmd.Flags().StringVar(&patchOrigMAC, "orig-mac", "", "new originating MAC address")
	patchCmd.MarkFlagRequired("hex")
}

// patchSet holds the mutations requested on the command line; nil fields are
// left alone.
type patchSet struct {
	SrcPort *uint16
	DstPort *uint16
	SrcAddr *string
	DstAddr *string
	OrigMAC *string
}

func patchFrom(fs *pflag.FlagSet) patchSet {
	var p patchSet
	if fs.Changed("src-port") {
		p.SrcPort = &patchSrcPort
	}
	if fs.Changed("dst-port") {
		p.DstPort = &patchDstPort
	}
	if fs.Changed("src-addr") {
		p.SrcAddr = &patchSrcAddr
	}
	if fs.Changed("dst-addr") {
		p.DstAddr = &patchDstAddr
	}
	if fs.Changed("orig-mac") {
		p.OrigMAC = &patchOrigMAC
	}
	return p
}

func runPatch(w io.Writer, in string, p patchSet) error {
	r, err := decodeHex(in)
	if err != nil {
		return err
	}
	if p.SrcPort != nil {
		if err := r.SetSourcePort(*p.SrcPort); err != nil {
			return fmt.Errorf("src-port: %w", err)
		}
	}
	if p.DstPort != nil {
		if err := r.SetDestinationPort(*p.DstPort); err != nil {
			return fmt.Errorf("dst-port: %w", err)
		}
	}
	if p.SrcAddr != nil {
		if err := r.SetSourceAddress(*p.SrcAddr); err != nil {
			return fmt.Errorf("src-addr: %w", err)
		}
	}
	if p.DstAddr != nil {
		if err := r.SetDestinationAddress(*p.DstAddr); err != nil {
			return fmt.Errorf("dst-addr: %w", err)
		}
	}
	if p.OrigMAC != nil {
		if err := r.SetOriginatingMAC(*p.OrigMAC); err != nil {
			return fmt.Errorf("orig-mac: %w", err)
		}
	}
	_, err = fmt.Fprintln(w, hex.EncodeToString(r.Bytes()))
	return err
}
