// Package drive recursively crawls SharePoint drives and ingests every
// non-excluded file.
package drive

import (
	"context"
	"errors"
	"path"
	"sync"

	"github.com/sshaikhIntervision/Brinkmann/internal/domain"
	"github.com/sshaikhIntervision/Brinkmann/internal/graph"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
	"github.com/sshaikhIntervision/Brinkmann/internal/storage"
)

// binaryContentType is the content type recorded for ingested files.
const binaryContentType = "application/octet-stream"

// GraphAPI is the slice of the Graph client the crawler needs.
type GraphAPI interface {
	ListChildren(ctx context.Context, driveID, folderPath string) ([]graph.Item, error)
	CreateShareLink(ctx context.Context, driveID, itemID string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// Excluder decides whether a discovered file is skipped.
type Excluder interface {
	ShouldSkip(fileName, containingPath string) bool
}

// RecordUpserter persists provenance rows for ingested items.
type RecordUpserter interface {
	Upsert(ctx context.Context, rec *domain.IngestRecord) error
}

// Crawler walks a drive's file tree depth-first and dispatches every
// surviving file to a fetch-and-store worker. Fan-out happens per folder
// listing; a shared semaphore bounds peak concurrency across the whole
// crawl. Per-item failures never abort sibling work.
type Crawler struct {
	graph   GraphAPI
	filter  Excluder
	store   storage.ObjectStore
	records RecordUpserter
	sem     chan struct{}
	log     logger.Interface
}

// NewCrawler creates a crawler with the given concurrency ceiling.
func NewCrawler(
	graphAPI GraphAPI,
	filter Excluder,
	store storage.ObjectStore,
	records RecordUpserter,
	maxConcurrency int,
	log logger.Interface,
) *Crawler {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Crawler{
		graph:   graphAPI,
		filter:  filter,
		store:   store,
		records: records,
		sem:     make(chan struct{}, maxConcurrency),
		log:     log,
	}
}

// Crawl ingests every non-excluded file under the drive's root. The site
// label becomes the first segment of ingested blob names. Returns the
// per-item outcomes of the whole subtree.
func (c *Crawler) Crawl(ctx context.Context, driveID, siteLabel string) []domain.ItemOutcome {
	col := &collector{}
	c.crawlFolder(ctx, driveID, siteLabel, "", col)
	return col.all()
}

// crawlFolder lists one folder, recurses into child folders, and waits for
// all file tasks dispatched at this level before returning. A listing
// failure abandons the subtree without failing the crawl.
func (c *Crawler) crawlFolder(ctx context.Context, driveID, siteLabel, folderPath string, col *collector) {
	items, err := c.graph.ListChildren(ctx, driveID, folderPath)
	if err != nil {
		c.log.Warn("abandoning subtree, listing failed",
			"drive_id", driveID,
			"folder", folderPath,
			"error", err,
		)
		return
	}

	var wg sync.WaitGroup
	for i := range items {
		item := items[i]

		if item.IsFolder() {
			childPath := item.Name
			if folderPath != "" {
				childPath = folderPath + "/" + item.Name
			}
			c.crawlFolder(ctx, driveID, siteLabel, childPath, col)
			continue
		}

		if c.filter.ShouldSkip(item.Name, folderPath) {
			c.log.Debug("excluded file", "name", item.Name, "folder", folderPath)
			col.add(domain.ItemOutcome{
				Name:   item.Name,
				Status: domain.StatusSkipped,
				Reason: "excluded by filter",
			})
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case c.sem <- struct{}{}:
			case <-ctx.Done():
				col.add(domain.ItemOutcome{
					Name:   item.Name,
					Status: domain.StatusSkipped,
					Reason: "run cancelled",
				})
				return
			}
			defer func() { <-c.sem }()
			col.add(c.fetchAndStore(ctx, driveID, siteLabel, folderPath, item))
		}()
	}
	wg.Wait()
}

// fetchAndStore downloads one file, uploads it to the object store, and
// records its provenance. All failures are folded into the returned
// outcome; nothing propagates to sibling tasks.
func (c *Crawler) fetchAndStore(
	ctx context.Context,
	driveID, siteLabel, folderPath string,
	item graph.Item,
) domain.ItemOutcome {
	blobName := path.Join(siteLabel, folderPath, item.Name)

	shareLink, err := c.graph.CreateShareLink(ctx, driveID, item.ID)
	if err != nil {
		c.log.Error("share link resolution failed", "name", item.Name, "error", err)
		return domain.ItemOutcome{Name: item.Name, Status: domain.StatusFailed, Reason: "share link: " + err.Error()}
	}

	body, err := c.graph.Download(ctx, item.DownloadURL)
	if err != nil {
		var transient *graph.TransientFetchError
		if errors.As(err, &transient) {
			c.log.Warn("dropping item, retries exhausted", "name", item.Name, "url", item.DownloadURL)
			return domain.ItemOutcome{Name: item.Name, Status: domain.StatusSkipped, Reason: "retries exhausted"}
		}
		c.log.Error("fetch failed", "name", item.Name, "error", err)
		return domain.ItemOutcome{Name: item.Name, Status: domain.StatusSkipped, Reason: "fetch: " + err.Error()}
	}

	if err := c.store.Put(ctx, blobName, body, binaryContentType); err != nil {
		c.log.Error("blob upload failed", "blob_name", blobName, "error", err)
		return domain.ItemOutcome{Name: item.Name, Status: domain.StatusFailed, Reason: "store: " + err.Error()}
	}

	rec := &domain.IngestRecord{
		Filename:      item.Name,
		BlobName:      blobName,
		SharePointURL: shareLink,
	}
	if err := c.records.Upsert(ctx, rec); err != nil {
		c.log.Error("metadata upsert failed", "filename", item.Name, "error", err)
		return domain.ItemOutcome{Name: item.Name, Status: domain.StatusFailed, Reason: "metadata: " + err.Error()}
	}

	c.log.Info("ingested file", "blob_name", blobName, "size", len(body))
	return domain.ItemOutcome{Name: item.Name, Status: domain.StatusIngested}
}

// collector accumulates item outcomes from concurrent workers.
type collector struct {
	mu       sync.Mutex
	outcomes []domain.ItemOutcome
}

func (c *collector) add(o domain.ItemOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

func (c *collector) all() []domain.ItemOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ItemOutcome(nil), c.outcomes...)
}
