package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/search"
)

// Engine is an in-memory search.Engine used when no Elasticsearch cluster is
// configured. Matching is a case-insensitive substring test on title,
// description and tags.
type Engine struct {
	mu   sync.RWMutex
	docs map[string]search.Document
}

func New() *Engine {
	return &Engine{docs: make(map[string]search.Document)}
}

func (e *Engine) Index(_ context.Context, doc *search.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs[doc.ID] = *doc
	return nil
}

func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.docs, id)
	return nil
}

func (e *Engine) BulkIndex(_ context.Context, docs []search.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range docs {
		e.docs[docs[i].ID] = docs[i]
	}
	return nil
}

// Search ranks title matches above description or tag matches, then newest
// first.
func (e *Engine) Search(_ context.Context, q search.Query) (*search.Result, error) {
	start := time.Now()
	text := strings.ToLower(strings.TrimSpace(q.Text))

	e.mu.RLock()
	type hit struct {
		doc   search.Document
		score int
	}
	hits := make([]hit, 0)
	for _, d := range e.docs {
		if s := score(d, text); s > 0 {
			hits = append(hits, hit{doc: d, score: s})
		}
	}
	e.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if !hits[i].doc.CreatedAt.Equal(hits[j].doc.CreatedAt) {
			return hits[i].doc.CreatedAt.After(hits[j].doc.CreatedAt)
		}
		return hits[i].doc.ID < hits[j].doc.ID
	})

	total := len(hits)
	offset := min(q.Page.Offset, total)
	end := min(offset+q.Page.Limit, total)

	docs := make([]search.Document, 0, end-offset)
	for _, h := range hits[offset:end] {
		docs = append(docs, h.doc)
	}
	return &search.Result{
		Documents: docs,
		Total:     total,
		TookMs:    time.Since(start).Milliseconds(),
	}, nil
}

func score(d search.Document, text string) int {
	if text == "" {
		return 1
	}
	s := 0
	if strings.Contains(strings.ToLower(d.Title), text) {
		s += 3
	}
	if strings.Contains(strings.ToLower(d.Description), text) {
		s++
	}
	for _, tag := range d.Tags {
		if strings.EqualFold(tag, text) {
			s++
			break
		}
	}
	return s
}

// Len reports the number of indexed documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}
