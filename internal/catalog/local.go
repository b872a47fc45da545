package catalog

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/artcollector/internal/models"
	"go.uber.org/zap"
)

// indexDoc is the searchable projection of a record.
type indexDoc struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Culture        string `json:"culture"`
	Dated          string `json:"dated"`
	ObjectNumber   string `json:"objectnumber"`
	Century        string `json:"century"`
	Classification string `json:"classification"`
}

// LocalCatalog answers the catalog operations from a collection file indexed
// with Bleve. Load may be called again to replace the collection in place.
type LocalCatalog struct {
	indexPath string
	pageSize  int
	logger    *zap.Logger
	openIndex func(path string) (bleve.Index, error)

	// loadMu serializes loads and owns the on-disk index directory.
	loadMu sync.Mutex

	mu              sync.RWMutex
	index           bleve.Index
	records         map[string]models.ResultRecord
	centuries       []models.ReferenceItem
	classifications []models.ReferenceItem
	loadedAt        time.Time
}

// LocalOption configures a LocalCatalog.
type LocalOption func(*LocalCatalog)

// WithLocalLogger sets the logger used for load reports.
func WithLocalLogger(l *zap.Logger) LocalOption {
	return func(c *LocalCatalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLocalPageSize caps the number of records a query returns.
func WithLocalPageSize(n int) LocalOption {
	return func(c *LocalCatalog) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewLocalCatalog creates an empty catalog. With an empty indexPath the index
// lives in memory; otherwise it is rebuilt at indexPath on every Load.
func NewLocalCatalog(indexPath string, opts ...LocalOption) *LocalCatalog {
	c := &LocalCatalog{
		indexPath: indexPath,
		pageSize:  defaultPageSize,
		logger:    zap.NewNop(),
		openIndex: bleve.Open,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	for _, f := range []string{"title", "description", "culture", "dated", "objectnumber"} {
		doc.AddFieldMappingsAt(f, text)
	}

	// Filters match the reference name exactly and stay out of _all.
	kw := bleve.NewKeywordFieldMapping()
	kw.IncludeInAll = false
	doc.AddFieldMappingsAt("century", kw)
	doc.AddFieldMappingsAt("classification", kw)

	im.DefaultMapping = doc
	return im
}

// ReadCollection parses a collection file.
func ReadCollection(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}
	var col Collection
	if err := json.Unmarshal(data, &col); err != nil {
		return nil, fmt.Errorf("parse collection %s: %w", path, err)
	}
	return &col, nil
}

// Load reads the collection at path and replaces the indexed records and
// reference lists. A file that cannot be read or indexed leaves the previous
// collection in place.
func (c *LocalCatalog) Load(ctx context.Context, path string) error {
	col, err := ReadCollection(path)
	if err != nil {
		return err
	}
	return c.LoadCollection(ctx, col)
}

// LoadCollection indexes col and swaps it in. Concurrent calls run one at a
// time; the last one to finish wins.
func (c *LocalCatalog) LoadCollection(ctx context.Context, col *Collection) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	start := time.Now()
	records := assignIDs(col.Records)

	idx, buildDir, err := c.buildIndex(ctx, records)
	if err != nil {
		return err
	}
	if buildDir != "" {
		defer os.RemoveAll(buildDir)
		if idx, err = c.promote(idx, buildDir); err != nil {
			return err
		}
	}

	byID := make(map[string]models.ResultRecord, len(records))
	for _, r := range records {
		byID[strconv.Itoa(r.ID)] = r
	}
	centuries := col.Centuries
	if len(centuries) == 0 {
		centuries = deriveReferences(records, func(r models.ResultRecord) string { return r.Century }, compareCenturies)
	}
	classifications := col.Classifications
	if len(classifications) == 0 {
		classifications = deriveReferences(records, func(r models.ResultRecord) string { return r.Classification }, strings.Compare)
	}

	c.mu.Lock()
	previous := c.index
	c.index = idx
	c.records = byID
	c.centuries = centuries
	c.classifications = classifications
	c.loadedAt = time.Now()
	c.mu.Unlock()

	// Readers finish under the read lock, so nothing still searches previous.
	if previous != nil {
		_ = previous.Close()
	}

	c.logger.Info("collection loaded",
		zap.Int("records", len(records)),
		zap.Int("centuries", len(centuries)),
		zap.Int("classifications", len(classifications)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// buildIndex indexes records into a new index. For an on-disk catalog the
// index is written under a fresh scratch directory next to indexPath, which is
// returned so the caller can promote and then remove it.
func (c *LocalCatalog) buildIndex(ctx context.Context, records []models.ResultRecord) (bleve.Index, string, error) {
	var (
		idx      bleve.Index
		buildDir string
		err      error
	)
	if c.indexPath == "" {
		idx, err = bleve.NewMemOnly(newIndexMapping())
	} else {
		buildDir, err = os.MkdirTemp(filepath.Dir(c.indexPath), filepath.Base(c.indexPath)+".build-")
		if err != nil {
			return nil, "", fmt.Errorf("failed to create index build directory: %w", err)
		}
		idx, err = bleve.New(filepath.Join(buildDir, "index"), newIndexMapping())
	}
	if err != nil {
		c.discardBuild(nil, buildDir)
		return nil, "", fmt.Errorf("failed to create Bleve index: %w", err)
	}

	batch := idx.NewBatch()
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			c.discardBuild(idx, buildDir)
			return nil, "", err
		}
		doc := indexDoc{
			Title:          r.Title,
			Description:    r.Description,
			Culture:        r.Culture,
			Dated:          r.Dated,
			ObjectNumber:   r.ObjectNumber,
			Century:        r.Century,
			Classification: r.Classification,
		}
		if err := batch.Index(strconv.Itoa(r.ID), doc); err != nil {
			c.discardBuild(idx, buildDir)
			return nil, "", fmt.Errorf("index record %d: %w", r.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		c.discardBuild(idx, buildDir)
		return nil, "", fmt.Errorf("failed to write Bleve batch: %w", err)
	}
	return idx, buildDir, nil
}

func (c *LocalCatalog) discardBuild(idx bleve.Index, buildDir string) {
	if idx != nil {
		_ = idx.Close()
	}
	if buildDir != "" {
		_ = os.RemoveAll(buildDir)
	}
}

// promote moves the index built under buildDir to indexPath and opens it.
// The current index is parked inside buildDir until the new one opens; on
// any failure it is moved back so the loaded collection keeps working.
func (c *LocalCatalog) promote(built bleve.Index, buildDir string) (bleve.Index, error) {
	if err := built.Close(); err != nil {
		return nil, fmt.Errorf("failed to close Bleve index: %w", err)
	}

	parked := filepath.Join(buildDir, "previous")
	moved := false
	if _, err := os.Lstat(c.indexPath); err == nil {
		if err := os.Rename(c.indexPath, parked); err != nil {
			return nil, fmt.Errorf("failed to move old index aside: %w", err)
		}
		moved = true
	}
	restore := func() {
		_ = os.RemoveAll(c.indexPath)
		if moved {
			if err := os.Rename(parked, c.indexPath); err != nil {
				c.logger.Warn("failed to restore previous index", zap.String("path", c.indexPath), zap.Error(err))
			}
		}
	}

	if err := os.Rename(filepath.Join(buildDir, "index"), c.indexPath); err != nil {
		restore()
		return nil, fmt.Errorf("failed to move index into place: %w", err)
	}
	idx, err := c.openIndex(c.indexPath)
	if err != nil {
		restore()
		return nil, fmt.Errorf("failed to open Bleve index: %w", err)
	}
	return idx, nil
}

// assignIDs gives records without an id one above the largest id in the file.
// Their raw payload is dropped so the assigned id is what gets encoded.
func assignIDs(in []models.ResultRecord) []models.ResultRecord {
	out := make([]models.ResultRecord, len(in))
	copy(out, in)
	next := 0
	for _, r := range out {
		next = max(next, r.ID)
	}
	for i := range out {
		if out[i].ID == 0 {
			next++
			out[i].ID = next
			out[i].Raw = nil
		}
	}
	return out
}

func deriveReferences(records []models.ResultRecord, field func(models.ResultRecord) string, compare func(a, b string) int) []models.ReferenceItem {
	seen := make(map[string]struct{})
	var names []string
	for _, r := range records {
		name := field(r)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	slices.SortFunc(names, compare)
	items := make([]models.ReferenceItem, len(names))
	for i, n := range names {
		items[i] = models.ReferenceItem{ID: i + 1, Name: n}
	}
	return items
}

// compareCenturies orders names by their leading number when both have one,
// so "2nd century" sorts before "10th century".
func compareCenturies(a, b string) int {
	na, oka := leadingNumber(a)
	nb, okb := leadingNumber(b)
	if oka && okb && na != nb {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(a, b)
}

func leadingNumber(s string) (int, bool) {
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(s)
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

// FetchAllCenturies returns the collection's century list.
func (c *LocalCatalog) FetchAllCenturies(context.Context) ([]models.ReferenceItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.index == nil {
		return nil, ErrNotLoaded
	}
	return slices.Clone(c.centuries), nil
}

// FetchAllClassifications returns the collection's classification list.
func (c *LocalCatalog) FetchAllClassifications(context.Context) ([]models.ReferenceItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.index == nil {
		return nil, ErrNotLoaded
	}
	return slices.Clone(c.classifications), nil
}

// FetchQueryResults matches every keyword against the text fields and each
// non-"any" filter exactly against its field.
func (c *LocalCatalog) FetchQueryResults(ctx context.Context, input models.QueryInput) ([]models.ResultRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.index == nil {
		return nil, ErrNotLoaded
	}

	req := bleve.NewSearchRequestOptions(buildQuery(input), c.pageSize, 0, false)
	req.SortBy([]string{"-_score", "_id"})
	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]models.ResultRecord, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if r, ok := c.records[hit.ID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func buildQuery(input models.QueryInput) blevequery.Query {
	var clauses []blevequery.Query
	if q := strings.TrimSpace(input.QueryString); q != "" {
		mq := bleve.NewMatchQuery(q)
		mq.SetOperator(blevequery.MatchQueryOperatorAnd)
		clauses = append(clauses, mq)
	}
	if models.IsFiltered(input.Century) {
		tq := bleve.NewTermQuery(input.Century)
		tq.SetField("century")
		clauses = append(clauses, tq)
	}
	if models.IsFiltered(input.Classification) {
		tq := bleve.NewTermQuery(input.Classification)
		tq.SetField("classification")
		clauses = append(clauses, tq)
	}
	if len(clauses) == 0 {
		return bleve.NewMatchAllQuery()
	}
	return bleve.NewConjunctionQuery(clauses...)
}

// Count returns the number of loaded records and when they were loaded.
func (c *LocalCatalog) Count() (int, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records), c.loadedAt
}

// Close releases the index. It waits for a load in progress.
func (c *LocalCatalog) Close() error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil {
		return nil
	}
	err := c.index.Close()
	c.index = nil
	return err
}
