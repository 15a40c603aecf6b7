package cmd

import (
	"fmt"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/rtspcam/internal/supervisor"
)

// CreateValidateCmd creates the validate command.
func CreateValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check configuration and external tools",
		Long: `Checks that the configuration parses, that ffmpeg and MediaMTX can be found (next to the ` +
			`executable, in the working directory, then on PATH) and that ` +
			`the saved selection renders. Exits non-zero on the first problem.`,
		Args: cobra.NoArgs,
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, opts *Options) {
			out := cmd.OutOrStdout()
			fail := func(format string, args ...any) {
				fmt.Fprintf(os.Stderr, "FAIL  "+format+"\n", args...)
				os.Exit(1)
			}

			supCfg, err := opts.SupervisorConfig()
			if err != nil {
				fail("configuration: %v", err)
			}
			fmt.Fprintf(out, "ok    configuration (%s)\n", opts.Config)

			for _, bin := range []string{opts.TranscoderBinary, opts.MediaServerBinary} {
				path, err := supervisor.LocateBinary(bin)
				if err != nil {
					fail("%s: %v", bin, err)
				}
				fmt.Fprintf(out, "ok    %s\n", path)
			}

			store, err := opts.SettingsStore()
			if err != nil {
				fail("settings: %v", err)
			}
			settings, err := store.Load()
			if err != nil {
				fail("settings: %v", err)
			}
			if settings.Selection.DeviceID == "" {
				fmt.Fprintf(out, "skip  no saved selection in %s\n", store.Path())
				return
			}
			plan, err := supervisor.New(supCfg, nil).Render(settings.Selection)
			if err != nil {
				fail("saved selection: %v", err)
			}
			fmt.Fprintf(out, "ok    saved selection streams to %s\n", plan.URL)
		}),
	}
}
