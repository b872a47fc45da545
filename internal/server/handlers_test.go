package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/artcollector/internal/config"
	"github.com/hyperjump/artcollector/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	mu      sync.Mutex
	inputs  []models.QueryInput
	results []models.ResultRecord
	err     error
	// entered and release, when set, make FetchQueryResults block.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeCatalog) FetchAllCenturies(context.Context) ([]models.ReferenceItem, error) {
	return []models.ReferenceItem{{ID: 1, Name: "17th century"}, {ID: 2, Name: "18th century"}}, nil
}

func (f *fakeCatalog) FetchAllClassifications(context.Context) ([]models.ReferenceItem, error) {
	return []models.ReferenceItem{{ID: 10, Name: "Prints"}, {ID: 11, Name: "Sculpture"}, {ID: 12, Name: "Vessels"}}, nil
}

func (f *fakeCatalog) FetchQueryResults(ctx context.Context, in models.QueryInput) ([]models.ResultRecord, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	entered, release := f.entered, f.release
	f.mu.Unlock()
	if entered != nil {
		close(entered)
		<-release
	}
	return f.results, f.err
}

func (f *fakeCatalog) lastInput() models.QueryInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputs[len(f.inputs)-1]
}

func newTestServer(t *testing.T, cat *fakeCatalog) http.Handler {
	t.Helper()
	srv, err := NewServer(cat, &config.ServerConfig{MaxSessions: 8, SessionTTL: time.Minute}, nil)
	require.NoError(t, err)
	return srv.Handler()
}

// open loads the page and returns the session cookie.
func open(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func do(h http.Handler, r *http.Request, c *http.Cookie) *httptest.ResponseRecorder {
	if c != nil {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func postForm(values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestHandleIndex_RendersMountedForm(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{})
	w := do(h, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	assert.Contains(t, body, `<span class="classification-count">(3)</span>`)
	assert.Contains(t, body, `<span class="century-count">(2)</span>`)
	assert.Contains(t, body, `<option value="Sculpture">Sculpture</option>`)
	assert.NotContains(t, body, `<div id="loading-slot"><div`)
}

func TestHandleIndex_ReusesSession(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{})
	c := open(t, h)

	w := do(h, httptest.NewRequest(http.MethodGet, "/", nil), c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies(), "known session must not be replaced")
}

func TestHandleIndex_UnknownSessionGetsNewCookie(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{})
	w := do(h, httptest.NewRequest(http.MethodGet, "/", nil), &http.Cookie{Name: sessionCookie, Value: "stale"})
	require.Len(t, w.Result().Cookies(), 1)
	assert.NotEqual(t, "stale", w.Result().Cookies()[0].Value)
}

func TestHandleFields(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{})
	c := open(t, h)

	tests := []struct {
		body string
		want int
	}{
		{`{"field":"keywords","value":"vase"}`, http.StatusNoContent},
		{`{"field":"classification","value":"Sculpture"}`, http.StatusNoContent},
		{`{"field":"century","value":"any"}`, http.StatusNoContent},
		{`{"field":"colour","value":"blue"}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := do(h, httptest.NewRequest(http.MethodPost, "/api/v1/fields", strings.NewReader(tt.body)), c)
		assert.Equal(t, tt.want, w.Code, tt.body)
	}

	w := do(h, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil), c)
	var st stateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.Equal(t, models.QueryInput{Century: "any", Classification: "Sculpture", QueryString: "vase"}, st.Input)
	assert.False(t, st.Loading)
}

func TestHandleSearch_FormReturnsFragment(t *testing.T) {
	cat := &fakeCatalog{results: []models.ResultRecord{{ID: 1, Title: "Vase A"}, {ID: 2, Title: "Vase B"}}}
	h := newTestServer(t, cat)
	c := open(t, h)

	w := do(h, postForm(url.Values{"keywords": {"vase"}, "classification": {"Sculpture"}, "century": {"any"}}), c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-count="2"`)
	assert.Contains(t, w.Body.String(), "Vase B")
	assert.Equal(t, models.QueryInput{Century: "any", Classification: "Sculpture", QueryString: "vase"}, cat.lastInput())
}

func TestHandleSearch_JSONKeepsUnsentFields(t *testing.T) {
	cat := &fakeCatalog{results: []models.ResultRecord{{ID: 7}}}
	h := newTestServer(t, cat)
	c := open(t, h)

	do(h, httptest.NewRequest(http.MethodPost, "/api/v1/fields", strings.NewReader(`{"field":"century","value":"18th century"}`)), c)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"keywords":"bowl"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	w := do(h, r, c)
	require.Equal(t, http.StatusOK, w.Code)

	var st stateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.False(t, st.Loading)
	require.Len(t, st.Results, 1)
	assert.Equal(t, 7, st.Results[0].ID)
	assert.Equal(t, models.QueryInput{Century: "18th century", Classification: "any", QueryString: "bowl"}, cat.lastInput())
}

func TestHandleSearch_FailureKeepsResults(t *testing.T) {
	cat := &fakeCatalog{results: []models.ResultRecord{{ID: 1}}}
	h := newTestServer(t, cat)
	c := open(t, h)

	r := postForm(url.Values{"keywords": {"first"}})
	r.Header.Set("Accept", "application/json")
	require.Equal(t, http.StatusOK, do(h, r, c).Code)

	cat.mu.Lock()
	cat.err = errors.New("rate limited")
	cat.results = nil
	cat.mu.Unlock()

	r = postForm(url.Values{"keywords": {"second"}})
	r.Header.Set("Accept", "application/json")
	w := do(h, r, c)
	require.Equal(t, http.StatusOK, w.Code)

	var st stateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.False(t, st.Loading)
	require.Len(t, st.Results, 1)
	assert.Equal(t, 1, st.Results[0].ID)
}

func TestHandleSearch_ConflictWhileInFlight(t *testing.T) {
	cat := &fakeCatalog{
		results: []models.ResultRecord{{ID: 3}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	h := newTestServer(t, cat)
	c := open(t, h)

	done := make(chan int, 1)
	go func() {
		done <- do(h, postForm(url.Values{"keywords": {"slow"}}), c).Code
	}()
	<-cat.entered

	w := do(h, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil), c)
	var st stateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.True(t, st.Loading, "state reports loading while the query is in flight")

	w = do(h, postForm(url.Values{"keywords": {"again"}}), c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `<h2 class="message">Searching...</h2>`)

	r := postForm(url.Values{"keywords": {"again"}})
	r.Header.Set("Accept", "application/json")
	w = do(h, r, c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"search already in progress"}`, w.Body.String())

	close(cat.release)
	assert.Equal(t, http.StatusOK, <-done)
	cat.mu.Lock()
	assert.Len(t, cat.inputs, 1)
	cat.mu.Unlock()
}

func TestHandleReferences(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{})
	c := open(t, h)

	w := do(h, httptest.NewRequest(http.MethodGet, "/api/v1/references", nil), c)
	require.Equal(t, http.StatusOK, w.Code)
	var refs referencesResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&refs))
	assert.Equal(t, []string{"17th century", "18th century"}, models.Names(refs.Centuries))
	assert.Equal(t, []string{"Prints", "Sculpture", "Vessels"}, models.Names(refs.Classifications))
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{})
	w := do(h, httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestSessionStore_Evicts(t *testing.T) {
	st := newSessionStore(&fakeCatalog{}, 1, time.Minute, zap.NewNop())
	first := st.create(context.Background())
	second := st.create(context.Background())

	_, ok := st.lookup(first.id)
	assert.False(t, ok, "oldest session is evicted at capacity")
	got, ok := st.lookup(second.id)
	require.True(t, ok)
	assert.Same(t, second, got)
}
