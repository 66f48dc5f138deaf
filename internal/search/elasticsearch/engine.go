package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/search"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/database"
)

// Config configures the Elasticsearch engine.
type Config struct {
	URL   string
	Index string
	// Transport overrides the HTTP transport; nil uses the client default.
	Transport http.RoundTripper
}

// Engine is a search.Engine backed by Elasticsearch.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

type searchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source search.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID    string `json:"_id"`
			Error struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// New creates the client. It does not contact the cluster; call EnsureIndex
// during startup.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	index := cfg.Index
	if index == "" {
		index = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	return &Engine{client: client, indexName: index, logger: logger}, nil
}

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the product index with its mapping if it is missing.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: check index: %w", err)
	}
	closeBody(res)

	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping())),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: create index: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return responseError("create index", res)
	}
	e.logger.Info("elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

func (e *Engine) Index(ctx context.Context, doc *search.Document) (err error) {
	ctx, end := database.TraceOp(ctx, "elasticsearch", "IndexProduct", "PUT /"+e.indexName+"/_doc")
	defer func() { end(err) }()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal document: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(doc.ID),
		e.client.Index.WithRefresh("wait_for"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return responseError("index", res)
	}
	return nil
}

// Delete removes a document. A missing document is not an error.
func (e *Engine) Delete(ctx context.Context, id string) (err error) {
	ctx, end := database.TraceOp(ctx, "elasticsearch", "DeleteProduct", "DELETE /"+e.indexName+"/_doc")
	defer func() { end(err) }()

	res, err := e.client.Delete(e.indexName, id, e.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer closeBody(res)

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res)
	}
	return nil
}

func (e *Engine) Search(ctx context.Context, q search.Query) (result *search.Result, err error) {
	ctx, end := database.TraceOp(ctx, "elasticsearch", "SearchProducts", "POST /"+e.indexName+"/_search")
	defer func() { end(err) }()

	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(body)),
		e.client.Search.WithTrackTotalHits(true),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return nil, responseError("search", res)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	docs := make([]search.Document, 0, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return &search.Result{
		Documents: docs,
		Total:     sr.Hits.Total.Value,
		TookMs:    int64(sr.Took),
	}, nil
}

// BulkIndex writes docs with the NDJSON bulk API and reports per-item failures.
func (e *Engine) BulkIndex(ctx context.Context, docs []search.Document) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range docs {
		action := map[string]any{"index": map[string]any{"_index": e.indexName, "_id": docs[i].ID}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode action: %w", err)
		}
		if err := enc.Encode(docs[i]); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		&buf,
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh("wait_for"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return responseError("bulk", res)
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}
	if br.Errors {
		var msgs []string
		for _, item := range br.Items {
			if item.Index.Error.Type != "" {
				msgs = append(msgs, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk: partial failure: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// buildQuery produces the query DSL for q. Text matches are fuzzy and weight
// the title highest; an empty text matches every product, newest first.
func buildQuery(q search.Query) map[string]any {
	out := map[string]any{
		"from":             q.Page.Offset,
		"size":             q.Page.Limit,
		"track_total_hits": true,
	}

	text := strings.TrimSpace(q.Text)
	if text == "" {
		out["query"] = map[string]any{"match_all": map[string]any{}}
		out["sort"] = []any{
			map[string]any{"created_at": "desc"},
			map[string]any{"id": "asc"},
		}
		return out
	}

	out["query"] = map[string]any{
		"multi_match": map[string]any{
			"query":         text,
			"fields":        []string{"title^3", "title.autocomplete^2", "description", "tags"},
			"type":          "best_fields",
			"fuzziness":     "AUTO",
			"prefix_length": 1,
		},
	}
	out["sort"] = []any{
		map[string]any{"_score": "desc"},
		map[string]any{"id": "asc"},
	}
	return out
}

func responseError(op string, res *esapi.Response) error {
	var er errorResponse
	if err := json.NewDecoder(res.Body).Decode(&er); err == nil && er.Error.Type != "" {
		return fmt.Errorf("elasticsearch %s: %s: %s", op, er.Error.Type, er.Error.Reason)
	}
	return fmt.Errorf("elasticsearch %s: unexpected status %s", op, res.Status())
}

func closeBody(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
}
