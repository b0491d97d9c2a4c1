// Package ingest coordinates a full ingestion run across the configured
// SharePoint sites: drive crawling followed by page scraping.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sshaikhIntervision/Brinkmann/internal/auth"
	"github.com/sshaikhIntervision/Brinkmann/internal/config"
	"github.com/sshaikhIntervision/Brinkmann/internal/domain"
	"github.com/sshaikhIntervision/Brinkmann/internal/graph"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
)

// DriveLister enumerates the document drives of a site.
type DriveLister interface {
	ListDrives(ctx context.Context, siteID string) ([]graph.Drive, error)
}

// DriveCrawler ingests the file tree of one drive.
type DriveCrawler interface {
	Crawl(ctx context.Context, driveID, siteLabel string) []domain.ItemOutcome
}

// PageScraper ingests the page collection of one site.
type PageScraper interface {
	ScrapeSite(ctx context.Context, siteID string) (int, []domain.ItemOutcome, error)
}

// Orchestrator runs the ingestion pipeline end to end. A credential failure
// aborts the whole run; everything below that is a per-site or per-item
// problem and only degrades the summary.
type Orchestrator struct {
	tokens      auth.TokenProvider
	drives      DriveLister
	crawler     DriveCrawler
	scraper     PageScraper
	sites       map[string]string
	pagesSiteID string
	log         logger.Interface
}

// NewOrchestrator creates an orchestrator over the given collaborators.
func NewOrchestrator(
	tokens auth.TokenProvider,
	drives DriveLister,
	crawler DriveCrawler,
	scraper PageScraper,
	cfg config.IngestConfig,
	log logger.Interface,
) *Orchestrator {
	return &Orchestrator{
		tokens:      tokens,
		drives:      drives,
		crawler:     crawler,
		scraper:     scraper,
		sites:       cfg.Sites,
		pagesSiteID: cfg.PagesSiteID,
		log:         log,
	}
}

// Run performs a full ingestion: every configured site's drives, then the
// page collection. Page scraping problems do not undo the drive work; only
// a credential failure returns an error.
func (o *Orchestrator) Run(ctx context.Context) (*domain.RunSummary, error) {
	summary, err := o.begin(ctx)
	if err != nil {
		return nil, err
	}

	o.runDrives(ctx, summary)
	if err := o.runPages(ctx, summary); err != nil {
		o.log.Error("page scraping failed", "run_id", summary.RunID, "error", err)
	}

	o.finish(summary)
	return summary, nil
}

// RunDrives ingests only the configured sites' drives.
func (o *Orchestrator) RunDrives(ctx context.Context) (*domain.RunSummary, error) {
	summary, err := o.begin(ctx)
	if err != nil {
		return nil, err
	}
	o.runDrives(ctx, summary)
	o.finish(summary)
	return summary, nil
}

// RunPages ingests only the page collection of the configured pages site.
func (o *Orchestrator) RunPages(ctx context.Context) (*domain.RunSummary, error) {
	summary, err := o.begin(ctx)
	if err != nil {
		return nil, err
	}
	if err := o.runPages(ctx, summary); err != nil {
		return nil, err
	}
	o.finish(summary)
	return summary, nil
}

// begin validates the credential up front and opens a run summary. A token
// failure here means nothing downstream can succeed, so it aborts the run.
func (o *Orchestrator) begin(ctx context.Context) (*domain.RunSummary, error) {
	if _, err := o.tokens.Token(ctx); err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			return nil, fmt.Errorf("credential refresh: %w", err)
		}
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	summary := &domain.RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}
	o.log.Info("ingestion run started", "run_id", summary.RunID)
	return summary, nil
}

func (o *Orchestrator) finish(summary *domain.RunSummary) {
	summary.Duration = time.Since(summary.StartedAt)
	o.log.Info("ingestion run finished",
		"run_id", summary.RunID,
		"sites", summary.Sites,
		"drives", summary.Drives,
		"files", summary.Files,
		"pages", summary.Pages,
		"ingested", summary.Ingested,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration", summary.Duration)
}

// runDrives crawls every drive of every configured site. A site whose
// drives cannot be listed is logged and passed over; the run continues.
func (o *Orchestrator) runDrives(ctx context.Context, summary *domain.RunSummary) {
	for _, label := range o.siteLabels() {
		siteID := o.sites[label]
		drives, err := o.drives.ListDrives(ctx, siteID)
		if err != nil {
			o.log.Error("listing site drives failed", "site", label, "error", err)
			continue
		}

		summary.Sites++
		for _, d := range drives {
			o.log.Info("crawling drive", "site", label, "drive", d.Name)
			summary.Drives++
			outcomes := o.crawler.Crawl(ctx, d.ID, label)
			summary.Files += len(outcomes)
			for _, outcome := range outcomes {
				summary.Add(outcome)
			}
		}
	}
}

func (o *Orchestrator) runPages(ctx context.Context, summary *domain.RunSummary) error {
	if o.pagesSiteID == "" {
		o.log.Debug("no pages site configured, skipping page scraping")
		return nil
	}

	_, outcomes, err := o.scraper.ScrapeSite(ctx, o.pagesSiteID)
	if err != nil {
		return err
	}
	summary.Pages += len(outcomes)
	for _, outcome := range outcomes {
		summary.Add(outcome)
	}
	return nil
}

// siteLabels returns the configured site labels in stable order.
func (o *Orchestrator) siteLabels() []string {
	labels := make([]string, 0, len(o.sites))
	for label := range o.sites {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
