package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	projectDir    string
	outputJSON    bool
	debugLog      bool
	transportFlag string
	forceFresh    bool
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mcpreg",
		Short:         "Keep MCP client registrations pointed at the JungleMCP server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&projectDir, "project", "", "Path to project directory")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Write debug entries to the log file")
	cmd.PersistentFlags().StringVar(&transportFlag, "transport", "", "Override the preferred transport (http or stdio)")
	cmd.PersistentFlags().BoolVar(&forceFresh, "force-fresh", false, "Register stdio launches with --no-cache --refresh")

	cmd.AddCommand(newClientsCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigureCmd())
	cmd.AddCommand(newUnregisterCmd())
	cmd.AddCommand(newInstructionsCmd())
	cmd.AddCommand(newProbeCmd())
	cmd.AddCommand(newUICmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
