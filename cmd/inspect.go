package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/trpt/pkg/trpt"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the header chain of a report with byte offsets",
	Long: `Show where each header of a report starts and how long it is.

Examples:
  trpt inspect --hex 2d010441...
  trpt inspect --hex 2d010441... -o yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInspect(os.Stdout, inspectHex, inspectFormat); err != nil {
			exitWithError("failed to inspect report", err)
		}
	},
}

var (
	inspectHex    string
	inspectFormat string
)

func init() {
	inspectCmd.Flags().StringVar(&inspectHex, "hex", "", "report bytes as hex (required)")
	inspectCmd.Flags().StringVarP(&inspectFormat, "output", "o", "text", "output format: text, json or yaml")
	inspectCmd.MarkFlagRequired("hex")
}

// inspection is the json/yaml rendering of a report layout.
type inspection struct {
	Kind   string      `json:"kind" yaml:"kind"`
	Key    string      `json:"key" yaml:"key"`
	Length int         `json:"length" yaml:"length"`
	Layout []trpt.Span `json:"layout" yaml:"layout"`
}

func runInspect(w io.Writer, in, format string) error {
	r, err := decodeHex(in)
	if err != nil {
		return err
	}
	v := inspection{
		Kind:   r.Kind().String(),
		Key:    r.CorrelationKey(),
		Length: r.Len(),
		Layout: r.Layout(),
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		fmt.Fprintf(w, "%s report, %d bytes, key %s\n", v.Kind, v.Length, v.Key)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "OFFSET\tLENGTH\tHEADER")
		for _, s := range v.Layout {
			fmt.Fprintf(tw, "%d\t%d\t%s\n", s.Offset, s.Length, s.Name)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q (must be text, json or yaml)", format)
	}
}
