package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mcpreg/internal/configurator"
	"mcpreg/internal/tui"
)

var configureDryRun bool

func newConfigureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure <client...|all>",
		Short: "Register the server with one or more clients",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runConfigure,
	}
	cmd.Flags().BoolVar(&configureDryRun, "dry-run", false, "Show the changes without applying them")
	return cmd
}

func newUnregisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unregister <client...|all>",
		Short: "Remove the server registration from one or more clients",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runUnregister,
	}
}

func runConfigure(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := commandContext(cmd)
	cs, err := s.set.Select(args)
	if err != nil {
		return err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return err
	}

	if configureDryRun {
		var errs []error
		previews := make([]previewJSON, 0, len(cs))
		for _, c := range cs {
			d := c.Descriptor()
			p, err := c.Preview(ctx, snap)
			row := previewJSON{ID: d.ID, Name: d.Name, Path: p.Path, Changed: p.Changed(), Commands: p.Commands}
			if err != nil {
				row.Error = err.Error()
				errs = append(errs, fmt.Errorf("%s: %w", d.ID, err))
			} else if p.Path != "" {
				row.Diff = lineDiff(string(p.Before), string(p.After))
			}
			previews = append(previews, row)
		}
		if err := writePreviews(cmd.OutOrStdout(), previews); err != nil {
			return err
		}
		return errors.Join(errs...)
	}

	outcomes := make([]configurator.Outcome, 0, len(cs))
	for _, c := range cs {
		d := c.Descriptor()
		out := configurator.Outcome{ID: d.ID, Name: d.Name}
		if err := s.configure(ctx, c); err != nil {
			out.Err = err
		}
		out.Status = c.Status(ctx, snap, false)
		outcomes = append(outcomes, out)
	}
	if err := writeActionResults(cmd, s.paths.Root, "configured", outcomes); err != nil {
		return err
	}
	return outcomeErrors(outcomes)
}

func runUnregister(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := commandContext(cmd)
	cs, err := s.set.Select(args)
	if err != nil {
		return err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return err
	}

	outcomes := make([]configurator.Outcome, 0, len(cs))
	for _, c := range cs {
		d := c.Descriptor()
		out := configurator.Outcome{ID: d.ID, Name: d.Name}
		if err := s.unregister(ctx, c); err != nil {
			out.Err = err
		}
		out.Status = c.Status(ctx, snap, false)
		outcomes = append(outcomes, out)
	}
	if err := writeActionResults(cmd, s.paths.Root, "unregistered", outcomes); err != nil {
		return err
	}
	return outcomeErrors(outcomes)
}

// writeActionResults prints one line per client after a mutation.
func writeActionResults(cmd *cobra.Command, root, verb string, outcomes []configurator.Outcome) error {
	if outputJSON {
		return writeOutcomes(cmd, root, outcomes)
	}
	out := cmd.OutOrStdout()
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(out, "%s: failed: %v\n", o.Name, o.Err)
			continue
		}
		fmt.Fprintf(out, "%s: %s (now %s)\n", o.Name, verb, tui.RenderState(o.Status.State))
	}
	return nil
}

type previewJSON struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Path     string   `json:"path,omitempty"`
	Changed  bool     `json:"changed"`
	Diff     string   `json:"diff,omitempty"`
	Commands []string `json:"commands,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func writePreviews(out io.Writer, previews []previewJSON) error {
	if outputJSON {
		data, err := json.MarshalIndent(previews, "", "  ")
		if err != nil {
			return fmt.Errorf("encode preview json: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	for i, p := range previews {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, tui.HeaderStyle.Render(p.Name))
		switch {
		case p.Error != "":
			fmt.Fprintf(out, "  error: %s\n", p.Error)
		case len(p.Commands) > 0:
			for _, line := range p.Commands {
				fmt.Fprintf(out, "  $ %s\n", line)
			}
		case !p.Changed:
			fmt.Fprintf(out, "  %s is already up to date\n", p.Path)
		default:
			fmt.Fprintf(out, "  --- %s\n", p.Path)
			fmt.Fprint(out, p.Diff)
		}
	}
	return nil
}
