package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mcpreg/internal/clients"
)

func newClientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "List the MCP clients mcpreg knows how to configure",
		Args:  cobra.NoArgs,
		RunE:  runClients,
	}
}

type clientJSONRow struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Transports []string `json:"transports"`
	Path       string   `json:"path,omitempty"`
	Tool       string   `json:"tool,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func runClients(cmd *cobra.Command, _ []string) error {
	st, err := loadSettings()
	if err != nil {
		return err
	}

	rows := make([]clientJSONRow, 0, len(st.reg.IDs()))
	for _, d := range st.reg.All() {
		rows = append(rows, describeClient(d, st.paths.Root))
	}

	if outputJSON {
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("encode clients json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tTRANSPORTS\tLOCATION")
	for _, row := range rows {
		location := row.Path
		switch {
		case row.Tool != "":
			location = "via " + row.Tool
		case row.Error != "":
			location = row.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", row.ID, row.Name, row.Kind, strings.Join(row.Transports, ","), location)
	}
	return w.Flush()
}

func describeClient(d clients.Descriptor, root string) clientJSONRow {
	row := clientJSONRow{ID: d.ID, Name: d.Name, Kind: d.Kind.String()}
	if d.SupportsHTTP {
		row.Transports = append(row.Transports, "http")
	}
	if d.SupportsStdio {
		row.Transports = append(row.Transports, "stdio")
	}
	if d.Kind == clients.CliManaged {
		row.Tool = d.Tool
		if d.ToolPath != "" {
			row.Tool = d.ToolPath
		}
		return row
	}
	path, err := d.ArtifactPath(root)
	if err != nil {
		row.Error = err.Error()
		return row
	}
	row.Path = path
	return row
}
