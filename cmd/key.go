package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Print the correlation key of a report",
	Long: `Print the key that correlates a report with the other reports of its flow.

Packet reports hash the originating MAC, the original destination port and
the original destination address. Drop reports carry the key verbatim.

Examples:
  trpt key --hex 2d010441...`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runKey(os.Stdout, keyHex); err != nil {
			exitWithError("failed to compute key", err)
		}
	},
}

var keyHex string

func init() {
	keyCmd.Flags().StringVar(&keyHex, "hex", "", "report bytes as hex (required)")
	keyCmd.MarkFlagRequired("hex")
}

func runKey(w io.Writer, in string) error {
	r, err := decodeHex(in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, r.CorrelationKey())
	return err
}
