package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"mcpreg/internal/tui"
)

func newInstructionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "instructions <client>",
		Short: "Print manual setup instructions for a client",
		Args:  cobra.ExactArgs(1),
		RunE:  runInstructions,
	}
}

func runInstructions(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := s.set.Get(args[0])
	if err != nil {
		return err
	}
	snap, err := s.snapshot(commandContext(cmd))
	if err != nil {
		return err
	}

	d := c.Descriptor()
	manual := c.ManualInstructions(snap)
	steps := c.InstallSteps()

	if outputJSON {
		payload := struct {
			ID           string   `json:"id"`
			Name         string   `json:"name"`
			Instructions string   `json:"instructions"`
			Steps        []string `json:"steps"`
		}{d.ID, d.Name, manual, steps}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode instructions json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.HeaderStyle.Render(d.Name))
	fmt.Fprintln(out)
	fmt.Fprint(out, manual)
	if len(manual) > 0 && manual[len(manual)-1] != '\n' {
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Steps:")
	for i, step := range steps {
		fmt.Fprintf(out, "  %d. %s\n", i+1, step)
	}
	return nil
}
