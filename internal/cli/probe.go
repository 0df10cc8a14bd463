package cli

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mcpreg/internal/configurator"
	"mcpreg/internal/registration"
	"mcpreg/internal/tui"
)

var probeNoProgress bool

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check every client and rewrite mismatched registrations",
		Long: "Probe captures the preferences once, checks every client in the background and,\n" +
			"when auto_rewrite is enabled, re-registers clients that point at the wrong target.",
		Args: cobra.NoArgs,
		RunE: runProbe,
	}
	cmd.Flags().BoolVar(&probeNoProgress, "no-progress", false, "Disable the live progress display")
	return cmd
}

func newUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open an interactive board to inspect and configure clients",
		Args:  cobra.NoArgs,
		RunE:  runUI,
	}
}

func runProbe(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := commandContext(cmd)
	cs := s.set.All()

	var outcomes []configurator.Outcome
	switch tui.DetectMode(cmd.OutOrStdout(), probeNoProgress, outputJSON) {
	case tui.ModeTUI:
		results := make(chan []configurator.Outcome, 1)
		board := tui.NewBoard(ctx, "Probing client registrations", boardRows(cs), nil)
		_, err := tui.RunWithWork(cmd.OutOrStdout(), board, func(send func(tea.Msg)) {
			res, err := reconcileEach(ctx, s, cs,
				func(c configurator.Configurator) {
					send(tui.BusyMsg{ID: c.Descriptor().ID, Activity: "checking"})
				},
				func(o configurator.Outcome) {
					send(tui.StatusMsg{ID: o.ID, Status: o.Status, Rewritten: o.Rewritten})
				})
			if err != nil {
				send(tui.ErrorMsg{Err: err})
			}
			results <- res
		})
		if err != nil {
			return err
		}
		select {
		case outcomes = <-results:
		default:
			return errors.New("probe interrupted")
		}
		return outcomeErrors(outcomes)

	case tui.ModePlain:
		var sw *tui.StatusWriter
		if f, ok := cmd.ErrOrStderr().(*os.File); ok && tui.IsTerminal(f) {
			sw = tui.NewStatusWriter(f, len(cs))
		}
		outcomes, err = reconcileEach(ctx, s, cs, func(c configurator.Configurator) {
			if sw != nil {
				sw.Step(c.Descriptor().Name)
			}
		}, nil)
		if sw != nil {
			sw.Stop()
		}

	default:
		outcomes, err = reconcileEach(ctx, s, cs, nil, nil)
	}
	if err != nil {
		return err
	}

	if err := writeOutcomes(cmd, s.paths.Root, outcomes); err != nil {
		return err
	}
	return outcomeErrors(outcomes)
}

// reconcileEach runs Reconcile one client at a time so callers can report
// progress between clients.
func reconcileEach(
	ctx context.Context,
	s *session,
	cs []configurator.Configurator,
	before func(configurator.Configurator),
	after func(configurator.Outcome),
) ([]configurator.Outcome, error) {
	outcomes := make([]configurator.Outcome, 0, len(cs))
	for _, c := range cs {
		if before != nil {
			before(c)
		}
		res, err := configurator.Reconcile(ctx, s.loop, []configurator.Configurator{c}, s.log)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, res...)
		if after != nil {
			for _, o := range res {
				after(o)
			}
		}
	}
	return outcomes, nil
}

func boardRows(cs []configurator.Configurator) []tui.Row {
	rows := make([]tui.Row, 0, len(cs))
	for _, c := range cs {
		d := c.Descriptor()
		rows = append(rows, tui.Row{ID: d.ID, Name: d.Name, Kind: d.Kind.String()})
	}
	return rows
}

func runUI(cmd *cobra.Command, _ []string) error {
	if tui.DetectMode(cmd.OutOrStdout(), false, outputJSON) != tui.ModeTUI {
		return errors.New("ui needs an interactive terminal; use status or configure instead")
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := commandContext(cmd)
	board := tui.NewBoard(ctx, "mcpreg: "+s.paths.Root, boardRows(s.set.All()), boardActions{s: s})
	_, err = tui.RunInteractive(cmd.InOrStdin(), cmd.OutOrStdout(), board)
	return err
}

// boardActions evaluates off the loop and sends mutations to it.
type boardActions struct {
	s *session
}

func (a boardActions) Check(ctx context.Context, id string) registration.Status {
	c, err := a.s.set.Get(id)
	if err != nil {
		return registration.Failed(err)
	}
	snap, err := a.s.snapshot(ctx)
	if err != nil {
		return registration.Failed(err)
	}
	return c.Status(ctx, snap, false)
}

func (a boardActions) Configure(ctx context.Context, id string) error {
	c, err := a.s.set.Get(id)
	if err != nil {
		return err
	}
	return a.s.configure(ctx, c)
}

func (a boardActions) Unregister(ctx context.Context, id string) error {
	c, err := a.s.set.Get(id)
	if err != nil {
		return err
	}
	return a.s.unregister(ctx, c)
}

var _ tui.Actions = boardActions{}
