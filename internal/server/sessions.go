package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/hyperjump/artcollector/internal/search"
	"github.com/hyperjump/artcollector/internal/ui"
	"go.uber.org/zap"
)

const sessionCookie = "artcollector_session"

// session is one browser's form: its container and orchestrator.
type session struct {
	id   string
	page *ui.Page
	orch *search.Orchestrator
}

type sessionStore struct {
	mu      sync.Mutex
	catalog search.Catalog
	cache   *expirable.LRU[string, *session]
	logger  *zap.Logger
}

func newSessionStore(catalog search.Catalog, size int, ttl time.Duration, logger *zap.Logger) *sessionStore {
	return &sessionStore{
		catalog: catalog,
		cache:   expirable.NewLRU[string, *session](max(size, 1), nil, ttl),
		logger:  logger,
	}
}

// lookup returns the live session for id and restarts its idle timer.
func (st *sessionStore) lookup(id string) (*session, bool) {
	if id == "" {
		return nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.cache.Get(id)
	if ok {
		st.cache.Add(id, sess)
	}
	return sess, ok
}

// create builds and mounts a new session.
func (st *sessionStore) create(ctx context.Context) *session {
	page := ui.NewPage()
	sess := &session{
		id:   uuid.NewString(),
		page: page,
		orch: search.NewOrchestrator(st.catalog, page.Setters(), search.WithLogger(st.logger)),
	}
	// Mount outlives the request that triggered it.
	sess.orch.Mount(context.WithoutCancel(ctx))

	st.mu.Lock()
	st.cache.Add(sess.id, sess)
	st.mu.Unlock()
	st.logger.Debug("session created", zap.String("session", sess.id))
	return sess
}

func (st *sessionStore) len() int {
	return st.cache.Len()
}

// session returns the caller's session, creating one and setting the cookie
// when the request carries none or an expired one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions.lookup(c.Value); ok {
			return sess
		}
	}
	sess := s.sessions.create(r.Context())
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}
