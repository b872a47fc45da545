// Package ui holds the parent container of the search form and the HTML views
// rendered around it: the page, the results list and the loading indicator.
package ui

import (
	"slices"
	"sync"

	"github.com/hyperjump/artcollector/internal/models"
	"github.com/hyperjump/artcollector/internal/search"
)

// State is a point-in-time copy of the container's state.
type State struct {
	Loading bool                  `json:"loading"`
	Results []models.ResultRecord `json:"results"`
}

// Page owns the loading flag and the results collection and hands setters for
// both to the search orchestrator.
type Page struct {
	mu       sync.RWMutex
	loading  bool
	results  []models.ResultRecord
	onChange func(State)
}

// NewPage returns a container that is not loading and has no results.
func NewPage() *Page {
	return &Page{results: []models.ResultRecord{}}
}

// OnChange registers fn to be called after every state change.
func (p *Page) OnChange(fn func(State)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// SetIsLoading sets the loading flag.
func (p *Page) SetIsLoading(loading bool) {
	p.mu.Lock()
	p.loading = loading
	fn, st := p.onChange, p.snapshotLocked()
	p.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// SetSearchResults replaces the results collection.
func (p *Page) SetSearchResults(records []models.ResultRecord) {
	p.mu.Lock()
	p.results = records
	fn, st := p.onChange, p.snapshotLocked()
	p.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// Setters returns the handles passed to search.NewOrchestrator.
func (p *Page) Setters() search.Setters {
	return search.Setters{
		SetIsLoading:     p.SetIsLoading,
		SetSearchResults: p.SetSearchResults,
	}
}

// Snapshot returns a copy of the current state.
func (p *Page) Snapshot() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

func (p *Page) snapshotLocked() State {
	results := slices.Clone(p.results)
	if results == nil {
		results = []models.ResultRecord{}
	}
	return State{Loading: p.loading, Results: results}
}
