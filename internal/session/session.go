package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blevesearch/bleve"
	"github.com/google/uuid"

	"github.com/smart-trendz/trendz/models"
)

var (
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session not found")
	// ErrOutOfTurn is returned when an append breaks user/assistant alternation.
	ErrOutOfTurn = errors.New("message out of turn")
)

// Store keeps chat sessions in memory. Sessions expire after the ttl and are
// dropped lazily on access.
type Store struct {
	sessions map[string]*Session
	ttl      time.Duration
	mu       sync.RWMutex
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{sessions: make(map[string]*Session), ttl: ttl}
}

// Ensure returns the session with the given id, refreshing its expiry, or
// creates a new one when id is empty or unknown.
func (st *Store) Ensure(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if id != "" {
		if sess, ok := st.sessions[id]; ok && !sess.expired() {
			sess.expire(st.ttl)
			return sess, nil
		}
	}

	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create session index: %w", err)
	}
	sess := &Session{
		id:        uuid.NewString(),
		expiresAt: time.Now().Add(st.ttl),
		index:     index,
		docs:      make(map[string]models.ArticleRecord),
	}
	st.sessions[sess.id] = sess
	return sess, nil
}

// Get returns an existing, unexpired session. The expiry check happens under
// the store lock because Ensure rewrites expiresAt under it.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	if !ok || sess.expired() {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Close discards the session and its history. Closing an unknown id is a
// no-op so clients can retry safely.
func (st *Store) Close(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if sess, ok := st.sessions[id]; ok {
		_ = sess.index.Close()
		delete(st.sessions, id)
	}
}

// Session is one chat conversation: its turn history plus a BM25 index over
// the snapshot articles it was grounded on.
type Session struct {
	id        string
	expiresAt time.Time
	index     bleve.Index
	docs      map[string]models.ArticleRecord
	turns     []models.Turn
	mu        sync.RWMutex
}

func (s *Session) ID() string { return s.id }

func (s *Session) expired() bool { return time.Now().After(s.expiresAt) }

func (s *Session) expire(ttl time.Duration) { s.expiresAt = time.Now().Add(ttl) }

// AppendUser records a user turn. The previous turn, if any, must be an
// assistant turn.
func (s *Session) AppendUser(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.turns); n > 0 && s.turns[n-1].Role == models.RoleUser {
		return ErrOutOfTurn
	}
	s.turns = append(s.turns, models.Turn{Role: models.RoleUser, Content: content})
	return nil
}

// AppendAssistant records an assistant turn. The previous turn must be a
// user turn.
func (s *Session) AppendAssistant(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.turns); n == 0 || s.turns[n-1].Role != models.RoleUser {
		return ErrOutOfTurn
	}
	s.turns = append(s.turns, models.Turn{Role: models.RoleAssistant, Content: content})
	return nil
}

// DropLastUser removes a trailing user turn, restoring alternation after a
// failed generation.
func (s *Session) DropLastUser() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.turns); n > 0 && s.turns[n-1].Role == models.RoleUser {
		s.turns = s.turns[:n-1]
	}
}

// Turns returns a copy of the conversation history.
func (s *Session) Turns() []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

type indexedArticle struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// IndexArticles adds snapshot articles to the session's grounding corpus.
// Re-indexing the same URL overwrites the previous document.
func (s *Session) IndexArticles(articles []models.ArticleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range articles {
		docID := a.URL
		if docID == "" {
			docID = a.SourceID + ":" + a.Title
		}
		s.docs[docID] = a
		if err := s.index.Index(docID, indexedArticle{Title: a.Title, Excerpt: a.Excerpt}); err != nil {
			return fmt.Errorf("index article: %w", err)
		}
	}
	return nil
}

// Ground returns up to k articles relevant to the query by BM25 match.
func (s *Session) Ground(query string, k int) ([]models.ArticleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequestOptions(q, k, 0, false)
	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search session index: %w", err)
	}

	var out []models.ArticleRecord
	for _, hit := range res.Hits {
		if a, ok := s.docs[hit.ID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}
