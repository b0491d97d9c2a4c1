// Package pages ingests SharePoint site pages: it lists a site's page
// collection, normalizes each page's structured layout to plain text, and
// stores the result.
package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/sshaikhIntervision/Brinkmann/internal/config"
	"github.com/sshaikhIntervision/Brinkmann/internal/domain"
	"github.com/sshaikhIntervision/Brinkmann/internal/graph"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
	"github.com/sshaikhIntervision/Brinkmann/internal/storage"
	"github.com/sshaikhIntervision/Brinkmann/internal/transform"
)

// textContentType is the content type for scraped page blobs.
const textContentType = "text/plain; charset=utf-8"

// GraphPages is the slice of the Graph client the scraper needs.
type GraphPages interface {
	ListSitePages(ctx context.Context, siteID, listTitle string) ([]graph.PageRecord, error)
	GetSitePage(ctx context.Context, siteID, pageID string) ([]byte, error)
}

// RecordUpserter persists provenance rows for scraped pages.
type RecordUpserter interface {
	Upsert(ctx context.Context, rec *domain.IngestRecord) error
}

// pageLayout mirrors the canvasLayout portion of a Graph site page.
type pageLayout struct {
	CanvasLayout struct {
		HorizontalSections []struct {
			Columns []struct {
				Webparts []struct {
					InnerHTML string `json:"innerHtml"`
					Data      struct {
						Properties struct {
							Persons []map[string]any `json:"persons"`
						} `json:"properties"`
					} `json:"data"`
				} `json:"webparts"`
			} `json:"columns"`
		} `json:"horizontalSections"`
	} `json:"canvasLayout"`
}

// Scraper ingests a site's pages sequentially. Transformation is CPU-light;
// the retrying HTTP client handles the I/O bottleneck, so no fan-out.
type Scraper struct {
	graph       GraphPages
	store       storage.ObjectStore
	records     RecordUpserter
	listTitle   string
	blobFolder  string
	excludeURLs map[string]struct{}
	log         logger.Interface
}

// NewScraper creates a page scraper.
func NewScraper(
	graphPages GraphPages,
	store storage.ObjectStore,
	records RecordUpserter,
	cfg config.IngestConfig,
	log logger.Interface,
) *Scraper {
	exclude := make(map[string]struct{}, len(cfg.ExcludeURLs))
	for _, u := range cfg.ExcludeURLs {
		exclude[u] = struct{}{}
	}
	return &Scraper{
		graph:       graphPages,
		store:       store,
		records:     records,
		listTitle:   cfg.PagesListTitle,
		blobFolder:  cfg.PagesBlobFolder,
		excludeURLs: exclude,
		log:         log,
	}
}

// ScrapeSite ingests every listed page of the site that is not in the
// exclude set. Returns the number of pages ingested together with the
// per-page outcomes. Only the initial listing failure is an error; all
// per-page failures downgrade to skipped or failed outcomes.
func (s *Scraper) ScrapeSite(ctx context.Context, siteID string) (int, []domain.ItemOutcome, error) {
	records, err := s.graph.ListSitePages(ctx, siteID, s.listTitle)
	if err != nil {
		return 0, nil, fmt.Errorf("list site pages: %w", err)
	}

	count := 0
	outcomes := make([]domain.ItemOutcome, 0, len(records))
	for _, rec := range records {
		outcome := s.scrapePage(ctx, siteID, rec)
		outcomes = append(outcomes, outcome)
		if outcome.Status == domain.StatusIngested {
			count++
		}
	}
	return count, outcomes, nil
}

// scrapePage fetches, normalizes, and stores a single page.
func (s *Scraper) scrapePage(ctx context.Context, siteID string, rec graph.PageRecord) domain.ItemOutcome {
	if _, excluded := s.excludeURLs[rec.WebURL]; excluded {
		s.log.Debug("skipping excluded page", "web_url", rec.WebURL)
		return domain.ItemOutcome{Name: rec.WebURL, Status: domain.StatusSkipped, Reason: "excluded URL"}
	}

	raw, err := s.graph.GetSitePage(ctx, siteID, rec.PageID())
	if err != nil {
		s.log.Warn("page fetch failed", "web_url", rec.WebURL, "error", err)
		return domain.ItemOutcome{Name: rec.WebURL, Status: domain.StatusSkipped, Reason: "fetch: " + err.Error()}
	}

	content, err := s.renderPage(raw)
	if err != nil {
		s.log.Warn("unparsable page payload", "web_url", rec.WebURL, "error", err)
		return domain.ItemOutcome{Name: rec.WebURL, Status: domain.StatusSkipped, Reason: "malformed payload"}
	}

	fileName := pageFileName(rec.WebURL)
	blobName := path.Join(s.blobFolder, fileName)

	if err := s.store.Put(ctx, blobName, []byte(content), textContentType); err != nil {
		s.log.Error("page upload failed", "blob_name", blobName, "error", err)
		return domain.ItemOutcome{Name: fileName, Status: domain.StatusFailed, Reason: "store: " + err.Error()}
	}

	ingestRec := &domain.IngestRecord{
		Filename:      fileName,
		BlobName:      blobName,
		SharePointURL: rec.WebURL,
	}
	if err := s.records.Upsert(ctx, ingestRec); err != nil {
		s.log.Error("page metadata upsert failed", "filename", fileName, "error", err)
		return domain.ItemOutcome{Name: fileName, Status: domain.StatusFailed, Reason: "metadata: " + err.Error()}
	}

	s.log.Info("scraped page", "blob_name", blobName, "web_url", rec.WebURL)
	return domain.ItemOutcome{Name: fileName, Status: domain.StatusIngested}
}

// renderPage repairs and decodes a page payload, then flattens its
// web-parts to plain text in document order.
func (s *Scraper) renderPage(raw []byte) (string, error) {
	var layout pageLayout
	if err := json.Unmarshal([]byte(RepairJSON(string(raw))), &layout); err != nil {
		return "", fmt.Errorf("decode page layout: %w", err)
	}

	var parts []string
	for _, section := range layout.CanvasLayout.HorizontalSections {
		for _, column := range section.Columns {
			for _, webpart := range column.Webparts {
				text, err := transform.Normalize(webpart.InnerHTML)
				if err != nil {
					s.log.Warn("web-part normalization failed", "error", err)
					continue
				}
				parts = append(parts, text)

				if persons := webpart.Data.Properties.Persons; len(persons) > 0 {
					rendered, marshalErr := json.Marshal(persons)
					if marshalErr == nil {
						parts = append(parts, string(rendered))
					}
				}
			}
		}
	}
	return strings.Join(parts, "\n"), nil
}

// pageFileName derives a blob file name from a page's web URL: the last
// path segment with URL-encoding artifacts removed and the .aspx extension
// replaced by .txt.
func pageFileName(webURL string) string {
	name := webURL
	if idx := strings.LastIndex(webURL, "/"); idx >= 0 {
		name = webURL[idx+1:]
	}
	name = strings.ReplaceAll(name, "%20", "")
	name = strings.ReplaceAll(name, "%26", "")
	if strings.HasSuffix(strings.ToLower(name), ".aspx") {
		name = name[:len(name)-len(".aspx")] + ".txt"
	}
	return name
}
