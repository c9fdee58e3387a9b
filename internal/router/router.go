// Package router dispatches bridge requests to the search engine and the
// placement path, and formats their responses.
//
// Requests and responses are JSON objects of the form
//
//	{"type": "search", "data": "fire"}
//	{"type": "select", "data": "Fire_A"}
//
// An optional "id" is echoed on the response so a bridge can correlate
// concurrent searches.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/objsearch/internal/catalog"
	"github.com/dshills/objsearch/internal/logging"
	"github.com/dshills/objsearch/internal/placement"
)

// Request kinds.
const (
	KindSearch = "search"
	KindSelect = "select"
)

// Response kinds.
const (
	KindSearchResult = "search_result"
	KindSelectResult = "select_result"
	KindError        = "error"
)

// Searcher ranks catalog candidates for a query.
type Searcher interface {
	Search(query string) []catalog.Candidate
}

// Inserter places an effect on the host timeline.
type Inserter interface {
	Insert(ctx context.Context, effectID string) placement.Outcome
}

// Options configures a Router.
type Options struct {
	Searcher Searcher
	Inserter Inserter
	Logger   *logging.Logger
	Metrics  *Metrics
	// Concurrency bounds concurrent searches in Serve. Defaults to 4.
	Concurrency int
}

// Router dispatches requests. It is safe for concurrent use, though
// selects should be submitted in arrival order (Serve does this).
type Router struct {
	searcher    Searcher
	inserter    Inserter
	schema      *jsonschema.Schema
	logger      *logging.Logger
	metrics     *Metrics
	concurrency int
}

// New creates a router.
func New(opts Options) (*Router, error) {
	if opts.Searcher == nil {
		return nil, fmt.Errorf("router: searcher is required")
	}
	if opts.Inserter == nil {
		return nil, fmt.Errorf("router: inserter is required")
	}
	schema, err := compileRequestSchema()
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	return &Router{
		searcher:    opts.Searcher,
		inserter:    opts.Inserter,
		schema:      schema,
		logger:      opts.Logger.WithComponent("router"),
		metrics:     opts.Metrics,
		concurrency: opts.Concurrency,
	}, nil
}

// Metrics returns the router's metrics.
func (r *Router) Metrics() *Metrics {
	return r.metrics
}

// Handle processes one raw request and returns the response, or nil for
// malformed requests (which are logged and counted).
func (r *Router) Handle(ctx context.Context, raw []byte) []byte {
	resp, err := r.Dispatch(ctx, raw)
	if err != nil {
		return nil
	}
	return resp
}

// Dispatch is Handle with the malformed-message error exposed.
func (r *Router) Dispatch(ctx context.Context, raw []byte) ([]byte, error) {
	log := r.logger.WithField("request_id", uuid.NewString())

	req, err := r.decode(raw)
	if err != nil {
		r.metrics.RecordMalformed()
		log.Warn("dropping message: %v", err)
		return nil, err
	}

	var resp []byte
	switch req.kind {
	case KindSearch:
		resp = r.search(req.data)
	case KindSelect:
		resp = r.selectEffect(ctx, log, req.data)
	}
	if req.id.Exists() {
		resp, _ = sjson.SetRawBytes(resp, "id", []byte(req.id.Raw))
	}
	return resp, nil
}

type request struct {
	kind string
	data string
	id   gjson.Result
}

func (r *Router) decode(raw []byte) (request, error) {
	if !gjson.ValidBytes(raw) {
		return request{}, fmt.Errorf("%w: invalid JSON", ErrMalformedMessage)
	}
	doc := gjson.ParseBytes(raw)
	if err := r.schema.Validate(doc.Value()); err != nil {
		return request{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return request{
		kind: doc.Get("type").String(),
		data: doc.Get("data").String(),
		id:   doc.Get("id"),
	}, nil
}

func (r *Router) search(query string) []byte {
	start := time.Now()
	cands := r.searcher.Search(query)
	r.metrics.RecordSearch(time.Since(start))
	if cands == nil {
		cands = []catalog.Candidate{}
	}

	resp := []byte(`{"type":"search_result","data":{}}`)
	resp, _ = sjson.SetBytes(resp, "data.candidates", cands)
	return resp
}

func (r *Router) selectEffect(ctx context.Context, log *logging.Logger, id string) []byte {
	log = log.WithField("effect", id)
	out := r.inserter.Insert(ctx, id)

	if out.OK() {
		r.metrics.RecordPlaced()
		log.Info("placed on layer %d after %d attempt(s)", out.Layer, out.Attempts)
		resp := []byte(`{"type":"select_result","data":{}}`)
		resp, _ = sjson.SetBytes(resp, "data.identifier", id)
		resp, _ = sjson.SetBytes(resp, "data.layer", out.Layer)
		resp, _ = sjson.SetBytes(resp, "data.attempts", out.Attempts)
		return resp
	}

	r.metrics.RecordFailed(out.AttemptsExhausted)
	err := out.Error()
	log.Error("%v", err)

	resp := []byte(`{"type":"error","data":{"kind":"insertion_failed"}}`)
	resp, _ = sjson.SetBytes(resp, "data.identifier", id)
	resp, _ = sjson.SetBytes(resp, "data.attempts", out.Attempts)
	resp, _ = sjson.SetBytes(resp, "data.attempts_exhausted", out.AttemptsExhausted)
	resp, _ = sjson.SetBytes(resp, "data.message", err.Error())
	return resp
}
