// Package ingest implements the one-shot ingestion command.
package ingest

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sshaikhIntervision/Brinkmann/cmd/common"
	"github.com/sshaikhIntervision/Brinkmann/internal/domain"
)

// Command returns the ingest command.
func Command() *cobra.Command {
	var drivesOnly, pagesOnly bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run an ingestion pass and exit",
		Long:  `Crawls the configured SharePoint sites' drives and scrapes the pages site, then prints a run summary.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if drivesOnly && pagesOnly {
				return errors.New("--drives-only and --pages-only are mutually exclusive")
			}
			return run(cmd.Context(), drivesOnly, pagesOnly)
		},
	}

	cmd.Flags().BoolVar(&drivesOnly, "drives-only", false, "only crawl document drives")
	cmd.Flags().BoolVar(&pagesOnly, "pages-only", false, "only scrape site pages")

	return cmd
}

func run(ctx context.Context, drivesOnly, pagesOnly bool) error {
	deps, err := common.NewDeps(ctx, viper.GetViper())
	if err != nil {
		return err
	}
	defer deps.Close()

	var summary *domain.RunSummary
	switch {
	case drivesOnly:
		summary, err = deps.Orchestrator.RunDrives(ctx)
	case pagesOnly:
		summary, err = deps.Orchestrator.RunPages(ctx)
	default:
		summary, err = deps.Orchestrator.Run(ctx)
	}
	if err != nil {
		return err
	}

	renderSummary(summary)
	return nil
}

func renderSummary(summary *domain.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Run ID", "Sites", "Drives", "Files", "Pages", "Ingested", "Skipped", "Failed", "Duration"})
	t.AppendRow(table.Row{
		summary.RunID,
		summary.Sites,
		summary.Drives,
		summary.Files,
		summary.Pages,
		summary.Ingested,
		summary.Skipped,
		summary.Failed,
		summary.Duration.Round(time.Millisecond),
	})

	t.Render()
}
