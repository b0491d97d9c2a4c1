package drive_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshaikhIntervision/Brinkmann/internal/domain"
	"github.com/sshaikhIntervision/Brinkmann/internal/drive"
	"github.com/sshaikhIntervision/Brinkmann/internal/exclusion"
	"github.com/sshaikhIntervision/Brinkmann/internal/graph"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
)

// fakeGraph serves a fixed folder tree from memory.
type fakeGraph struct {
	mu          sync.Mutex
	tree        map[string][]graph.Item // folder path -> children
	content     map[string][]byte       // download URL -> bytes
	failFolders map[string]error        // folder path -> listing error
	downloads   int
}

func (f *fakeGraph) ListChildren(_ context.Context, _, folderPath string) ([]graph.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, failed := f.failFolders[folderPath]; failed {
		return nil, err
	}
	return f.tree[folderPath], nil
}

func (f *fakeGraph) CreateShareLink(_ context.Context, _, itemID string) (string, error) {
	return "https://contoso.sharepoint.com/view/" + itemID, nil
}

func (f *fakeGraph) Download(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	body, exists := f.content[url]
	if !exists {
		return nil, &graph.TransientFetchError{URL: url, StatusCode: 503, Attempts: 5}
	}
	return body, nil
}

// memStore records blob writes in memory.
type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (s *memStore) Put(_ context.Context, objectName string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[objectName] = append([]byte(nil), data...)
	return nil
}

// memRecords records upserts keyed by filename.
type memRecords struct {
	mu   sync.Mutex
	rows map[string]domain.IngestRecord
	err  error
}

func newMemRecords() *memRecords {
	return &memRecords{rows: make(map[string]domain.IngestRecord)}
}

func (r *memRecords) Upsert(_ context.Context, rec *domain.IngestRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rows[rec.Filename] = *rec
	return nil
}

func folder(id, name string) graph.Item {
	return graph.Item{ID: id, Name: name, Folder: []byte(`{"childCount":1}`)}
}

func file(id, name, downloadURL string) graph.Item {
	return graph.Item{ID: id, Name: name, DownloadURL: downloadURL}
}

func defaultFilter() *exclusion.Filter {
	return exclusion.NewFilter([]string{".mp4"}, []string{"confidential"})
}

func newCrawler(g *fakeGraph, store *memStore, records *memRecords) *drive.Crawler {
	return drive.NewCrawler(g, defaultFilter(), store, records, 4, logger.NewNoOp())
}

func TestCrawlIngestsAllowedSkipsExcluded(t *testing.T) {
	g := &fakeGraph{
		tree: map[string][]graph.Item{
			"": {folder("f1", "A")},
			"A": {
				file("i1", "a.pdf", "https://dl/a.pdf"),
				file("i2", "b.mp4", "https://dl/b.mp4"),
			},
		},
		content: map[string][]byte{"https://dl/a.pdf": []byte("pdf-bytes")},
	}
	store := newMemStore()
	records := newMemRecords()

	outcomes := newCrawler(g, store, records).Crawl(context.Background(), "d1", "operations")

	require.Len(t, outcomes, 2)

	require.Len(t, records.rows, 1)
	rec := records.rows["a.pdf"]
	assert.Equal(t, "operations/A/a.pdf", rec.BlobName)
	assert.Equal(t, "https://contoso.sharepoint.com/view/i1", rec.SharePointURL)

	require.Len(t, store.blobs, 1)
	assert.Equal(t, "pdf-bytes", string(store.blobs["operations/A/a.pdf"]))
	_, wrote := store.blobs["operations/A/b.mp4"]
	assert.False(t, wrote, "excluded file must produce zero blob writes")
}

func TestCrawlIdempotent(t *testing.T) {
	g := &fakeGraph{
		tree: map[string][]graph.Item{
			"":  {folder("f1", "A"), file("i3", "root.txt", "https://dl/root.txt")},
			"A": {file("i1", "a.pdf", "https://dl/a.pdf")},
		},
		content: map[string][]byte{
			"https://dl/a.pdf":    []byte("pdf-bytes"),
			"https://dl/root.txt": []byte("text"),
		},
	}
	store := newMemStore()
	records := newMemRecords()
	crawler := newCrawler(g, store, records)

	crawler.Crawl(context.Background(), "d1", "operations")
	firstRows := map[string]domain.IngestRecord{}
	for k, v := range records.rows {
		firstRows[k] = v
	}
	firstBlobs := map[string]string{}
	for k, v := range store.blobs {
		firstBlobs[k] = string(v)
	}

	crawler.Crawl(context.Background(), "d1", "operations")

	assert.Len(t, records.rows, len(firstRows), "re-running must not create new rows")
	for k, v := range firstRows {
		assert.Equal(t, v, records.rows[k])
	}
	for k, v := range firstBlobs {
		assert.Equal(t, v, string(store.blobs[k]))
	}
}

func TestCrawlListingFailureAbandonsSubtree(t *testing.T) {
	g := &fakeGraph{
		tree: map[string][]graph.Item{
			"": {folder("f1", "A"), file("i2", "root.txt", "https://dl/root.txt")},
		},
		content:     map[string][]byte{"https://dl/root.txt": []byte("text")},
		failFolders: map[string]error{"A": errors.New("boom")},
	}
	store := newMemStore()
	records := newMemRecords()

	outcomes := newCrawler(g, store, records).Crawl(context.Background(), "d1", "operations")

	// Subtree A is abandoned, the sibling file is still ingested.
	require.Len(t, outcomes, 1)
	assert.Equal(t, domain.StatusIngested, outcomes[0].Status)
	assert.Len(t, records.rows, 1)
}

func TestCrawlRetryExhaustionYieldsSkippedItem(t *testing.T) {
	g := &fakeGraph{
		tree: map[string][]graph.Item{
			"": {file("i1", "flaky.pdf", "https://dl/flaky.pdf")},
		},
		content: map[string][]byte{}, // download always fails transiently
	}
	store := newMemStore()
	records := newMemRecords()

	outcomes := newCrawler(g, store, records).Crawl(context.Background(), "d1", "operations")

	require.Len(t, outcomes, 1)
	assert.Equal(t, domain.StatusSkipped, outcomes[0].Status)
	assert.Equal(t, "retries exhausted", outcomes[0].Reason)
	assert.Empty(t, store.blobs)
	assert.Empty(t, records.rows)
}

func TestCrawlMetadataFailureIsPerItem(t *testing.T) {
	g := &fakeGraph{
		tree: map[string][]graph.Item{
			"": {
				file("i1", "a.pdf", "https://dl/a.pdf"),
				file("i2", "b.pdf", "https://dl/b.pdf"),
			},
		},
		content: map[string][]byte{
			"https://dl/a.pdf": []byte("a"),
			"https://dl/b.pdf": []byte("b"),
		},
	}
	store := newMemStore()
	records := newMemRecords()
	records.err = errors.New("db down")

	outcomes := newCrawler(g, store, records).Crawl(context.Background(), "d1", "operations")

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, domain.StatusFailed, o.Status)
	}
}

func TestCrawlKeywordFolderExcluded(t *testing.T) {
	g := &fakeGraph{
		tree: map[string][]graph.Item{
			"":             {folder("f1", "Confidential")},
			"Confidential": {file("i1", "report.pdf", "https://dl/report.pdf")},
		},
		content: map[string][]byte{"https://dl/report.pdf": []byte("secret")},
	}
	store := newMemStore()
	records := newMemRecords()

	outcomes := newCrawler(g, store, records).Crawl(context.Background(), "d1", "operations")

	require.Len(t, outcomes, 1)
	assert.Equal(t, domain.StatusSkipped, outcomes[0].Status)
	assert.Empty(t, store.blobs)
	assert.Zero(t, g.downloads)
}

// blockingGraph holds the first download open so cancellation behavior of
// queued workers can be observed.
type blockingGraph struct {
	mu         sync.Mutex
	started    chan struct{}
	release    chan struct{}
	startOnce  sync.Once
	shareLinks int
}

func (g *blockingGraph) ListChildren(_ context.Context, _, folderPath string) ([]graph.Item, error) {
	if folderPath != "" {
		return nil, nil
	}
	return []graph.Item{
		file("f1", "a.pdf", "https://dl/a.pdf"),
		file("f2", "b.pdf", "https://dl/b.pdf"),
		file("f3", "c.pdf", "https://dl/c.pdf"),
	}, nil
}

func (g *blockingGraph) CreateShareLink(_ context.Context, _, itemID string) (string, error) {
	g.mu.Lock()
	g.shareLinks++
	g.mu.Unlock()
	return "https://contoso.sharepoint.com/view/" + itemID, nil
}

func (g *blockingGraph) Download(_ context.Context, _ string) ([]byte, error) {
	g.startOnce.Do(func() { close(g.started) })
	<-g.release
	return []byte("content"), nil
}

func TestCrawlCancellationSkipsQueuedItems(t *testing.T) {
	g := &blockingGraph{started: make(chan struct{}), release: make(chan struct{})}
	store := newMemStore()
	records := newMemRecords()
	crawler := drive.NewCrawler(g, defaultFilter(), store, records, 1, logger.NewNoOp())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []domain.ItemOutcome, 1)
	go func() { done <- crawler.Crawl(ctx, "drive-1", "operations") }()

	// One worker is inside Download holding the semaphore; the rest are
	// waiting on it.
	<-g.started
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(g.release)

	outcomes := <-done
	require.Len(t, outcomes, 3)

	cancelled := 0
	for _, o := range outcomes {
		if o.Reason == "run cancelled" {
			cancelled++
			assert.Equal(t, domain.StatusSkipped, o.Status)
		}
	}
	assert.Equal(t, 2, cancelled, "queued workers must not start after cancellation")

	g.mu.Lock()
	assert.Equal(t, 1, g.shareLinks)
	g.mu.Unlock()
}
