package cli

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mcpreg/internal/configurator"
	"mcpreg/internal/hostthread"
	"mcpreg/internal/registration"
)

var statusFix bool

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [client...]",
		Short: "Show the registration status of each client",
		Long: "Show whether each client's registration matches the expected connection target.\n" +
			"With --fix, mismatched registrations are rewritten; missing ones are left alone.",
		RunE: runStatus,
	}
	cmd.Flags().BoolVar(&statusFix, "fix", false, "Rewrite registrations that point at the wrong target")
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	var outcomes []configurator.Outcome
	if statusFix {
		outcomes, err = fixAll(ctx, s, cs)
		if err != nil {
			return err
		}
	} else {
		outcomes, err = checkAll(ctx, s, cs)
		if err != nil {
			return err
		}
	}

	if err := writeOutcomes(cmd, s.paths.Root, outcomes); err != nil {
		return err
	}
	return outcomeErrors(outcomes)
}

// fixAll checks every client off the loop, then re-evaluates the mismatched
// ones inside a loop callback with rewriting enabled.
func fixAll(ctx context.Context, s *session, cs []configurator.Configurator) ([]configurator.Outcome, error) {
	outcomes, err := checkAll(ctx, s, cs)
	if err != nil {
		return nil, err
	}
	for i, c := range cs {
		if outcomes[i].Status.State != registration.IncorrectPath {
			continue
		}
		var st registration.Status
		err := s.loop.Do(ctx, func(h *hostthread.Handle) error {
			st = configurator.StatusOnLoop(ctx, h, c, true)
			return nil
		})
		if err != nil {
			return nil, err
		}
		outcomes[i].Status = st
		if st.State == registration.Configured {
			outcomes[i].Rewritten = true
		} else {
			outcomes[i].Err = errors.New(st.Detail)
		}
		s.log.WithFields(logrus.Fields{
			"client": outcomes[i].ID,
			"state":  st.State,
		}).Info("fixed mismatched registration")
	}
	return outcomes, nil
}

// checkAll evaluates every configurator against one captured snapshot
// without rewriting anything.
func checkAll(ctx context.Context, s *session, cs []configurator.Configurator) ([]configurator.Outcome, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	outcomes := make([]configurator.Outcome, 0, len(cs))
	for _, c := range cs {
		d := c.Descriptor()
		outcomes = append(outcomes, configurator.Outcome{
			ID:     d.ID,
			Name:   d.Name,
			Status: c.Status(ctx, snap, false),
		})
	}
	return outcomes, nil
}
