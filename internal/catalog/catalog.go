// Package catalog implements the collection sources behind the search form:
// the remote HTTP API, a disk cache for its reference lists, and an offline
// catalog over a local collection file.
package catalog

import (
	"errors"

	"github.com/hyperjump/artcollector/internal/models"
	"github.com/hyperjump/artcollector/internal/search"
)

var (
	// ErrMissingAPIKey is returned when the remote client has no API key.
	ErrMissingAPIKey = errors.New("catalog: api key is required")
	// ErrUnexpectedStatus wraps non-200 responses from the remote API.
	ErrUnexpectedStatus = errors.New("catalog: unexpected status")
	// ErrNotLoaded is returned by the local catalog before a collection is loaded.
	ErrNotLoaded = errors.New("catalog: collection not loaded")
)

var (
	_ search.Catalog = (*HTTPClient)(nil)
	_ search.Catalog = (*CachedReferences)(nil)
	_ search.Catalog = (*LocalCatalog)(nil)
)

// PageInfo is the paging envelope returned by every list endpoint.
type PageInfo struct {
	TotalRecordsPerQuery int    `json:"totalrecordsperquery"`
	TotalRecords         int    `json:"totalrecords"`
	Pages                int    `json:"pages"`
	Page                 int    `json:"page"`
	Next                 string `json:"next,omitempty"`
	Prev                 string `json:"prev,omitempty"`
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Info    PageInfo `json:"info"`
	Records []T      `json:"records"`
}

// Collection is the on-disk format of a local collection. The reference lists
// are optional; when absent they are derived from the records.
type Collection struct {
	Centuries       []models.ReferenceItem `json:"centuries,omitempty"`
	Classifications []models.ReferenceItem `json:"classifications,omitempty"`
	Records         []models.ResultRecord  `json:"records"`
}
