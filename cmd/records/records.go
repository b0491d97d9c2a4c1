// Package records implements commands for inspecting provenance records.
package records

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sshaikhIntervision/Brinkmann/cmd/common"
)

const (
	defaultLimit  = 50
	defaultOffset = 0
)

// Command returns the records command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect ingestion provenance records",
	}

	cmd.AddCommand(listCommand())

	return cmd
}

func listCommand() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingested file records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context(), limit, offset)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultLimit, "maximum records to list")
	cmd.Flags().IntVar(&offset, "offset", defaultOffset, "records to skip")

	return cmd
}

func runList(ctx context.Context, limit, offset int) error {
	deps, err := common.NewDeps(ctx, viper.GetViper())
	if err != nil {
		return err
	}
	defer deps.Close()

	records, err := deps.Records.List(ctx, limit, offset)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	total, err := deps.Records.Count(ctx)
	if err != nil {
		return fmt.Errorf("count records: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Filename", "Blob Name", "SharePoint URL"})
	for _, rec := range records {
		t.AppendRow(table.Row{rec.Filename, rec.BlobName, rec.SharePointURL})
	}

	t.Render()
	fmt.Printf("Showing %d of %d records\n", len(records), total)

	return nil
}
