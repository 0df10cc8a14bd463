package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mcpreg/internal/config"
	"mcpreg/internal/paths"
)

var configInitForce bool

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create project configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration in YAML",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default mcpreg.yaml to the project directory",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	cmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing configuration file")
	return cmd
}

// runConfigShow prints the config after .env, environment and flag
// overrides have been applied.
func runConfigShow(cmd *cobra.Command, _ []string) error {
	st, err := loadSettings()
	if err != nil {
		return err
	}

	data, err := st.cfg.Marshal()
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	if err := ensureProjectDir(pp); err != nil {
		return err
	}

	written, err := writeDefaultConfig(pp, configInitForce)
	if err != nil {
		return err
	}
	if !written {
		return fmt.Errorf("%s already exists (use --force to overwrite)", pp.ConfigFile)
	}
	if err := pp.EnsureMetaDirs(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", pp.ConfigFile)
	return nil
}

// writeDefaultConfig writes the default config unless a file exists and
// force is false. It reports whether a file was written.
func writeDefaultConfig(pp paths.ProjectPaths, force bool) (bool, error) {
	exists, err := paths.FileExists(pp.ConfigFile)
	if err != nil {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if exists && !force {
		return false, nil
	}

	data, err := config.Default().Marshal()
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(pp.ConfigFile, data, 0o644); err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return true, nil
}
