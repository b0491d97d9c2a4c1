package graph_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshaikhIntervision/Brinkmann/internal/auth"
	"github.com/sshaikhIntervision/Brinkmann/internal/config"
	"github.com/sshaikhIntervision/Brinkmann/internal/graph"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
)

// staticTokens implements auth.TokenProvider with a fixed token.
type staticTokens struct{}

func (staticTokens) Token(context.Context) (string, error) {
	return "test-token", nil
}

func newClient(t *testing.T, server *httptest.Server) *graph.Client {
	t.Helper()
	return graph.NewClient(
		config.GraphConfig{BaseURL: server.URL},
		config.IngestConfig{MaxFetchAttempts: 5},
		staticTokens{},
		server.Client(),
		logger.NewNoOp(),
		graph.WithInitialBackoff(time.Millisecond),
	)
}

func TestListChildrenRootAndSubfolder(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"value":[
			{"id":"1","name":"Reports","folder":{"childCount":2}},
			{"id":"2","name":"a.pdf","@microsoft.graph.downloadUrl":"https://dl/a.pdf"}
		]}`))
	}))
	defer server.Close()

	client := newClient(t, server)

	items, err := client.ListChildren(context.Background(), "drive-1", "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].IsFolder())
	assert.False(t, items[1].IsFolder())
	assert.Equal(t, "https://dl/a.pdf", items[1].DownloadURL)

	_, err = client.ListChildren(context.Background(), "drive-1", "Reports/Q1 2024")
	require.NoError(t, err)

	require.Len(t, paths, 2)
	assert.Equal(t, "/drives/drive-1/root/children", paths[0])
	assert.Equal(t, "/drives/drive-1/root:/Reports/Q1 2024:/children", paths[1])
}

func TestListDrives(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sites/site-1/drives", r.URL.Path)
		_, _ = w.Write([]byte(`{"value":[{"id":"d1","name":"Documents"},{"id":"d2","name":"Assets"}]}`))
	}))
	defer server.Close()

	drives, err := newClient(t, server).ListDrives(context.Background(), "site-1")
	require.NoError(t, err)
	require.Len(t, drives, 2)
	assert.Equal(t, "d1", drives[0].ID)
}

func TestCreateShareLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/drives/d1/items/i1/createLink", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "view", req["type"])
		assert.Equal(t, "organization", req["scope"])

		_, _ = w.Write([]byte(`{"link":{"webUrl":"https://contoso.sharepoint.com/view/i1"}}`))
	}))
	defer server.Close()

	link, err := newClient(t, server).CreateShareLink(context.Background(), "d1", "i1")
	require.NoError(t, err)
	assert.Equal(t, "https://contoso.sharepoint.com/view/i1", link)
}

func TestDownloadRetriesThenSucceeds(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("file-bytes"))
	}))
	defer server.Close()

	body, err := newClient(t, server).Download(context.Background(), server.URL+"/file")
	require.NoError(t, err)
	assert.Equal(t, "file-bytes", string(body))
	assert.Equal(t, int64(3), attempts.Load())
}

func TestDownloadRetryExhaustion(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newClient(t, server).Download(context.Background(), server.URL+"/file")
	require.Error(t, err)

	var fetchErr *graph.TransientFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 5, fetchErr.Attempts)
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
	assert.Equal(t, int64(5), attempts.Load(), "a persistent 503 is attempted exactly 5 times")
}

func TestDownloadNonRetryableStatus(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newClient(t, server).Download(context.Background(), server.URL+"/file")
	require.Error(t, err)

	var fetchErr *graph.TransientFetchError
	assert.False(t, errors.As(err, &fetchErr), "404 must not be treated as transient")
	assert.Equal(t, int64(1), attempts.Load())
}

// failingTokens implements auth.TokenProvider with a permanent failure.
type failingTokens struct {
	calls atomic.Int32
}

func (f *failingTokens) Token(context.Context) (string, error) {
	f.calls.Add(1)
	return "", &auth.AuthError{Err: errors.New("invalid_client")}
}

func TestDownloadAbortsOnCredentialFailure(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tokens := &failingTokens{}
	client := graph.NewClient(
		config.GraphConfig{BaseURL: server.URL},
		config.IngestConfig{MaxFetchAttempts: 5},
		tokens,
		server.Client(),
		logger.NewNoOp(),
		graph.WithInitialBackoff(time.Millisecond),
	)

	_, err := client.Download(context.Background(), server.URL+"/file")
	require.Error(t, err)

	var authErr *auth.AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, int32(1), tokens.calls.Load(), "no retries after a credential failure")
	assert.Zero(t, requests.Load())

	var fetchErr *graph.TransientFetchError
	assert.False(t, errors.As(err, &fetchErr))
}

func TestItemFolderFacetNull(t *testing.T) {
	var item graph.Item
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","name":"a.pdf","folder":null}`), &item))
	assert.False(t, item.IsFolder())

	require.NoError(t, json.Unmarshal([]byte(`{"id":"2","name":"Docs","folder":{"childCount":0}}`), &item))
	assert.True(t, item.IsFolder())
}

func TestPageIDFromETag(t *testing.T) {
	rec := graph.PageRecord{ETag: `"99e2879f-03f5-4a95-9e2b-1234abcd,12"`}
	assert.Equal(t, "99e2879f-03f5-4a95-9e2b-1234abcd", rec.PageID())

	bare := graph.PageRecord{ETag: "deadbeef"}
	assert.Equal(t, "deadbeef", bare.PageID())
}

func TestListSitePages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sites/site-1/lists/Site%20Pages/items", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"value":[{"eTag":"\"p1,4\"","webUrl":"https://contoso/SitePages/Home.aspx"}]}`))
	}))
	defer server.Close()

	records, err := newClient(t, server).ListSitePages(context.Background(), "site-1", "Site Pages")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "p1", records[0].PageID())
}
