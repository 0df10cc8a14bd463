package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mcpreg/internal/configurator"
	"mcpreg/internal/tui"
)

type outcomesJSON struct {
	Project string                 `json:"project"`
	Clients []configurator.Outcome `json:"clients"`
	Errors  []string               `json:"errors,omitempty"`
}

func writeOutcomes(cmd *cobra.Command, root string, outcomes []configurator.Outcome) error {
	if outputJSON {
		payload := outcomesJSON{Project: root, Clients: outcomes}
		if payload.Clients == nil {
			payload.Clients = []configurator.Outcome{}
		}
		for _, o := range outcomes {
			if o.Err != nil {
				payload.Errors = append(payload.Errors, fmt.Sprintf("%s: %v", o.ID, o.Err))
			}
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode status json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Project: %s\n", root)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "CLIENT\tNAME\tSTATUS\tDETAIL")
	for _, o := range outcomes {
		label := o.Status.State.Label()
		if o.Rewritten {
			label += " (rewritten)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.ID, o.Name, label, tui.NonEmptyOrDash(o.Status.Detail))
	}
	return w.Flush()
}

func outcomeErrors(outcomes []configurator.Outcome) error {
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.ID, o.Err))
		}
	}
	return errors.Join(errs...)
}
