package cmd

import (
	"fmt"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/rtspcam/internal/supervisor"
)

// CreateRenderCmd creates the render command.
func CreateRenderCmd() *cobra.Command {
	var flags selectionFlags
	var configOnly bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the commands and URLs for a selection",
		Long: `Renders the media server configuration, both command lines, the RTSP URL and a GStreamer ` +
			`consumer pipeline for the saved selection with any flags applied. Nothing is started.`,
		Args: cobra.NoArgs,
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, opts *Options) {
			supCfg, err := opts.SupervisorConfig()
			if err != nil {
				fmt.Fprintln(os.Stderr, "Invalid configuration:", err)
				os.Exit(1)
			}
			store, err := opts.SettingsStore()
			if err != nil {
				fmt.Fprintln(os.Stderr, "Settings unavailable:", err)
				os.Exit(1)
			}
			sel, err := flags.apply(cmd.Flags(), savedSelection(store))
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			plan, err := supervisor.New(supCfg, nil).Render(sel)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			serverCfg, err := plan.ServerConfig.Marshal()
			if err != nil {
				fmt.Fprintln(os.Stderr, "Failed to render media server config:", err)
				os.Exit(1)
			}

			out := cmd.OutOrStdout()
			if configOnly {
				_, _ = out.Write(serverCfg)
				return
			}
			fmt.Fprintf(out, "Media server: %s\n", plan.Server)
			fmt.Fprintf(out, "Transcoder:   %s\n", plan.Transcoder)
			fmt.Fprintf(out, "Stream URL:   %s\n", plan.URL)
			fmt.Fprintf(out, "GStreamer:    %s\n", plan.Pipeline)
			fmt.Fprintf(out, "\n# %s\n%s", plan.ConfigPath, serverCfg)
		}),
	}

	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&configOnly, "config-only", false, "Print only the media server YAML")

	return cmd
}
