package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		Long:  `Lists the cameras the transcoder can open. The ID column is what --device expects.`,
		Args:  cobra.NoArgs,
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, opts *Options) {
			devs, err := opts.Enumerator(nil).List(cmd.Context())
			if err != nil {
				fmt.Fprintln(os.Stderr, "Failed to list devices:", err)
				os.Exit(1)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				_ = enc.Encode(devs)
				return
			}
			if len(devs) == 0 {
				fmt.Fprintln(out, "No capture devices found")
				return
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL")
			for _, d := range devs {
				fmt.Fprintf(tw, "%s\t%s\n", d.ID, d.Label)
			}
			_ = tw.Flush()
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print devices as JSON")

	return cmd
}
