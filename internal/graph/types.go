package graph

import (
	"encoding/json"
	"strings"
)

// Drive is a document library root within a SharePoint site.
type Drive struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Item is a node in a drive's file tree. Folder presence marks folder
// nodes; files carry a short-lived direct download URL.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Folder      json.RawMessage `json:"folder,omitempty"`
	DownloadURL string          `json:"@microsoft.graph.downloadUrl,omitempty"`
}

// IsFolder reports whether the item is a folder node. An explicit JSON
// null facet is not a folder.
func (i *Item) IsFolder() bool {
	return len(i.Folder) > 0 && string(i.Folder) != "null"
}

// PageRecord is one entry of a site's page collection.
type PageRecord struct {
	ETag   string `json:"eTag"`
	WebURL string `json:"webUrl"`
}

// PageID derives the page identifier from the record's revision tag, which
// has the form `"{guid},{revision}"`.
func (p PageRecord) PageID() string {
	id := strings.Trim(p.ETag, `"`)
	if idx := strings.Index(id, ","); idx >= 0 {
		id = id[:idx]
	}
	return id
}

// listResponse is the Graph collection envelope.
type listResponse[T any] struct {
	Value []T `json:"value"`
}

// shareLinkResponse is the createLink response envelope.
type shareLinkResponse struct {
	Link struct {
		WebURL string `json:"webUrl"`
	} `json:"link"`
}
