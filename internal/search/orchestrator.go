// Package search drives the collection search form: the controlled input
// state, the two reference lists loaded at mount, and the submit cycle that
// publishes the loading flag and the results through setters owned by the
// parent container.
package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hyperjump/artcollector/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Catalog is the remote collection the orchestrator queries.
// FetchQueryResults must treat models.AnyFilter as "unfiltered" on that dimension.
type Catalog interface {
	FetchAllCenturies(ctx context.Context) ([]models.ReferenceItem, error)
	FetchAllClassifications(ctx context.Context) ([]models.ReferenceItem, error)
	FetchQueryResults(ctx context.Context, input models.QueryInput) ([]models.ResultRecord, error)
}

// Setters are the parent's handles on the shared loading flag and results collection.
type Setters struct {
	SetIsLoading     func(loading bool)
	SetSearchResults func(records []models.ResultRecord)
}

// Orchestrator owns the search form state and runs search cycles.
// A submit that arrives while a cycle is in flight is ignored.
type Orchestrator struct {
	catalog Catalog
	setters Setters
	logger  *zap.Logger

	mountOnce sync.Once
	busy      atomic.Bool

	mu                 sync.RWMutex
	input              models.QueryInput
	centuryList        []models.ReferenceItem
	classificationList []models.ReferenceItem
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the logger used to report failed loads and searches.
func WithLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator creates an orchestrator with default input and empty reference lists.
// Both setters are required.
func NewOrchestrator(catalog Catalog, setters Setters, opts ...OrchestratorOption) *Orchestrator {
	if catalog == nil {
		panic("search: nil catalog")
	}
	if setters.SetIsLoading == nil || setters.SetSearchResults == nil {
		panic("search: SetIsLoading and SetSearchResults are required")
	}
	o := &Orchestrator{
		catalog: catalog,
		setters: setters,
		logger:  zap.NewNop(),
		input:   models.DefaultQueryInput(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Mount loads both reference lists concurrently and applies them together.
// If either fetch fails neither list is applied and the failure is logged.
// Only the first call does any work.
func (o *Orchestrator) Mount(ctx context.Context) {
	o.mountOnce.Do(func() {
		o.loadReferences(ctx)
	})
}

func (o *Orchestrator) loadReferences(ctx context.Context) {
	var centuries, classifications []models.ReferenceItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := o.catalog.FetchAllCenturies(gctx)
		if err != nil {
			return fmt.Errorf("fetch centuries: %w", err)
		}
		centuries = items
		return nil
	})
	g.Go(func() error {
		items, err := o.catalog.FetchAllClassifications(gctx)
		if err != nil {
			return fmt.Errorf("fetch classifications: %w", err)
		}
		classifications = items
		return nil
	})
	if err := g.Wait(); err != nil {
		o.logger.Error("reference lists not loaded", zap.Error(err))
		return
	}

	o.mu.Lock()
	o.centuryList = centuries
	o.classificationList = classifications
	o.mu.Unlock()

	o.logger.Debug("reference lists loaded",
		zap.Int("centuries", len(centuries)),
		zap.Int("classifications", len(classifications)),
	)
}

// SetQueryString updates the free-text field.
func (o *Orchestrator) SetQueryString(value string) {
	o.mu.Lock()
	o.input.QueryString = value
	o.mu.Unlock()
}

// SetCentury updates the century filter.
func (o *Orchestrator) SetCentury(value string) {
	o.mu.Lock()
	o.input.Century = value
	o.mu.Unlock()
}

// SetClassification updates the classification filter.
func (o *Orchestrator) SetClassification(value string) {
	o.mu.Lock()
	o.input.Classification = value
	o.mu.Unlock()
}

// Input returns the current form state.
func (o *Orchestrator) Input() models.QueryInput {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.input
}

// CenturyList returns a copy of the century reference list.
func (o *Orchestrator) CenturyList() []models.ReferenceItem {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]models.ReferenceItem(nil), o.centuryList...)
}

// ClassificationList returns a copy of the classification reference list.
func (o *Orchestrator) ClassificationList() []models.ReferenceItem {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]models.ReferenceItem(nil), o.classificationList...)
}

// Busy reports whether a search cycle is in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Submit runs one search cycle with the input as it is right now and reports
// whether the cycle ran. It returns false without touching the setters when
// another cycle is still in flight.
//
// The loading flag is raised before the catalog is called and lowered exactly
// once afterwards on every path. Results are published only on success.
// Failures, including panics from the catalog or the setters, are logged and
// never reach the caller.
func (o *Orchestrator) Submit(ctx context.Context) (accepted bool) {
	input := o.Input()
	if !o.busy.CompareAndSwap(false, true) {
		o.logger.Debug("submit ignored: search in flight", zap.String("query", input.QueryString))
		return false
	}
	accepted = true
	defer o.busy.Store(false)
	defer o.recoverCycle(input)

	o.setters.SetIsLoading(true)
	defer o.setters.SetIsLoading(false)

	results, err := o.catalog.FetchQueryResults(ctx, input)
	if err != nil {
		o.logger.Error("search failed", append(inputFields(input), zap.Error(err))...)
		return accepted
	}
	o.setters.SetSearchResults(results)
	o.logger.Debug("search completed", append(inputFields(input), zap.Int("results", len(results)))...)
	return accepted
}

func (o *Orchestrator) recoverCycle(input models.QueryInput) {
	if r := recover(); r != nil {
		o.logger.Error("search cycle panicked", append(inputFields(input), zap.Any("panic", r))...)
	}
}

func inputFields(input models.QueryInput) []zap.Field {
	return []zap.Field{
		zap.String("query", input.QueryString),
		zap.String("century", input.Century),
		zap.String("classification", input.Classification),
	}
}
