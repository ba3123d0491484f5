package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/trpt/pkg/plugin"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the built-in pipeline plugins",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runPlugins(os.Stdout); err != nil {
			exitWithError("failed to list plugins", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
}

func runPlugins(w io.Writer) error {
	names := plugin.Names()
	kinds := make([]string, 0, len(names))
	for k := range names {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		if _, err := fmt.Fprintf(w, "%-10s %s\n", k, strings.Join(names[k], ", ")); err != nil {
			return err
		}
	}
	return nil
}
