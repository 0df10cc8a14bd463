package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"mcpreg/internal/config"
	"mcpreg/internal/paths"
	"mcpreg/internal/registration"
	"mcpreg/internal/tools"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, client tools and registrations",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"` // "ok", "warning", "error"
	Summary string   `json:"summary"`
	Details []string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	st, err := loadSettings()
	if err != nil {
		return writeDoctorResult(cmd, projectDir, []healthCheck{{Name: "Config", Status: "error", Summary: err.Error()}})
	}

	var checks []healthCheck
	checks = append(checks, checkConfig(st.paths, st.validations))
	checks = append(checks, checkTools(cmd, st))
	checks = append(checks, checkLogs(st))

	if config.HasErrors(st.validations) {
		return writeDoctorResult(cmd, st.paths.Root, checks)
	}

	s, err := openSession(cmd)
	if err != nil {
		checks = append(checks, healthCheck{Name: "Clients", Status: "error", Summary: err.Error()})
		return writeDoctorResult(cmd, st.paths.Root, checks)
	}
	defer s.Close()
	checks = append(checks, checkClients(cmd, s))

	return writeDoctorResult(cmd, st.paths.Root, checks)
}

func checkConfig(pp paths.ProjectPaths, validations []config.ValidationResult) healthCheck {
	source := "defaults (no mcpreg.yaml)"
	if ok, _ := paths.FileExists(pp.ConfigFile); ok {
		source = filepath.Base(pp.ConfigFile)
	}

	var warnings, errs int
	var details []string
	for _, v := range validations {
		switch v.Level {
		case "warning":
			warnings++
		case "error":
			errs++
		}
		details = append(details, v.Level+": "+v.Message)
	}

	switch {
	case errs > 0:
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s: %d errors, %d warnings", source, errs, warnings), Details: details}
	case warnings > 0:
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s: %d warnings", source, warnings), Details: details}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: source}
}

func checkTools(cmd *cobra.Command, st settings) healthCheck {
	overrides := map[string]string{}
	if d, ok := st.reg.Get("claude-code"); ok && d.ToolPath != "" {
		overrides["claude"] = d.ToolPath
	}
	if exe := st.cfg.Launch.Executable; exe != "" && exe != "uvx" {
		overrides["uvx"] = exe
	}

	statuses := tools.Detect(commandContext(cmd), tools.Options{
		Runner:       newRunner(),
		PathPrefixes: st.prefixes,
		Overrides:    overrides,
	})

	var found []string
	var details []string
	for _, s := range statuses {
		if s.Satisfied {
			found = append(found, strings.TrimSpace(s.Tool+" "+s.Version))
			continue
		}
		detail := s.Tool + ": " + s.Error
		if def, ok := tools.Lookup(s.Tool); ok && def.UsedFor != "" {
			detail += " (needed for " + def.UsedFor + ")"
		}
		details = append(details, detail)
		details = append(details, s.Notes...)
	}

	if len(found) == len(statuses) {
		return healthCheck{Name: "Tools", Status: "ok", Summary: strings.Join(found, ", ")}
	}
	return healthCheck{
		Name:    "Tools",
		Status:  "warning",
		Summary: fmt.Sprintf("%d of %d tools available", len(found), len(statuses)),
		Details: details,
	}
}

func checkLogs(st settings) healthCheck {
	if err := st.paths.EnsureMetaDirs(); err != nil {
		return healthCheck{Name: "Logs", Status: "warning", Summary: err.Error()}
	}
	return healthCheck{Name: "Logs", Status: "ok", Summary: st.paths.LogsDir}
}

func checkClients(cmd *cobra.Command, s *session) healthCheck {
	outcomes, err := checkAll(commandContext(cmd), s, s.set.All())
	if err != nil {
		return healthCheck{Name: "Clients", Status: "error", Summary: err.Error()}
	}

	counts := map[registration.State]int{}
	var details []string
	for _, o := range outcomes {
		counts[o.Status.State]++
		if o.Status.NeedsAttention() {
			details = append(details, fmt.Sprintf("%s: %s", o.Name, o.Status))
		}
	}

	summary := fmt.Sprintf("%d configured, %d need attention, %d not configured",
		counts[registration.Configured],
		counts[registration.IncorrectPath]+counts[registration.MissingConfig]+counts[registration.Error],
		counts[registration.NotConfigured])

	status := "ok"
	switch {
	case counts[registration.Error] > 0:
		status = "error"
	case counts[registration.IncorrectPath] > 0 || counts[registration.MissingConfig] > 0:
		status = "warning"
	}
	return healthCheck{Name: "Clients", Status: status, Summary: summary, Details: details}
}

func writeDoctorResult(cmd *cobra.Command, projectRoot string, checks []healthCheck) error {
	if outputJSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)
	faint := lipgloss.NewStyle().Faint(true).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("MCPREG HEALTH:")+" "+projectRoot)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-10s %s    %s\n", c.Name+":", statusStr, c.Summary)
		for _, d := range c.Details {
			fmt.Fprintf(out, "      %s\n", faint.Render(d))
		}
	}

	return nil
}
