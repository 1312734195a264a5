// Package riaktest provides an in-memory stand-in for the slice of a Riak
// node's HTTP interface that the client uses: /ping, bucket properties,
// objects, and the Solr update/select endpoints.
//
// It is a test double. Search evaluates the boolean field:value subset of
// the query syntax over exact tokens and does no scoring.
package riaktest

import (
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/riak/internal/logger"
)

const (
	searchHookMod = "riak_search_kv_hook"
	searchHookFun = "precommit"
)

type object struct {
	data        []byte
	contentType string
	vclock      string
}

type bucket struct {
	props   map[string]any
	objects map[string]object
}

// Node is an in-memory Riak node. It is safe for concurrent use.
type Node struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	// index name -> doc id -> field -> values
	indexes map[string]map[string]map[string][]string
	vclock  atomic.Int64

	failMu sync.Mutex
	fails  []injectedFailure

	logger     *zap.Logger
	username   string
	password   string
	middleware []func(http.Handler) http.Handler
	router     chi.Router
}

type injectedFailure struct {
	status int
	body   string
}

// Option configures a Node.
type Option func(*Node)

// WithLogger logs every handled operation at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(n *Node) { n.logger = l }
}

// WithBasicAuth requires the given credentials on every route but /ping.
func WithBasicAuth(username, password string) Option {
	return func(n *Node) {
		n.username = username
		n.password = password
	}
}

// WithMiddleware wraps the router, outermost first.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(n *Node) { n.middleware = append(n.middleware, mw...) }
}

// NewNode creates an empty node.
func NewNode(opts ...Option) *Node {
	n := &Node{
		buckets: map[string]*bucket{},
		indexes: map[string]map[string]map[string][]string{},
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(n)
	}
	n.router = n.routes()
	return n
}

func (n *Node) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(n.middleware...)
	r.Use(n.injectFailures)
	r.Use(BasicAuthMiddleware(n.username, n.password))

	r.Get("/ping", n.handlePing)
	r.Route("/riak/{bucket}", func(r chi.Router) {
		r.Get("/", n.handleGetProps)
		r.Put("/", n.handleSetProps)
		r.Get("/{key}", n.handleFetch)
		r.Put("/{key}", n.handleStore)
		r.Post("/{key}", n.handleStore)
		r.Delete("/{key}", n.handleDelete)
	})
	r.Route("/solr/{index}", func(r chi.Router) {
		r.Post("/update", n.handleUpdate)
		r.Get("/select", n.handleSelect)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (n *Node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.router.ServeHTTP(w, r)
}

// FailNext makes the next request fail with status and body, before any
// routing or authentication. Calls queue up.
func (n *Node) FailNext(status int, body string) {
	n.failMu.Lock()
	defer n.failMu.Unlock()
	n.fails = append(n.fails, injectedFailure{status: status, body: body})
}

func (n *Node) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.failMu.Lock()
		var f *injectedFailure
		if len(n.fails) > 0 {
			f = &n.fails[0]
			n.fails = n.fails[1:]
		}
		n.failMu.Unlock()
		if f != nil {
			writeText(w, f.status, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IndexSize returns the number of documents in the named index.
func (n *Node) IndexSize(index string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.indexes[index])
}

// Indexed reports whether a document with id is in the named index.
func (n *Node) Indexed(index, id string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.indexes[index][id]
	return ok
}

// Stats is a point-in-time count of what the node holds.
type Stats struct {
	Buckets   int
	Objects   int
	Indexes   int
	Documents int
}

// Stats counts buckets, objects, indexes and indexed documents.
func (n *Node) Stats() Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	s := Stats{Buckets: len(n.buckets), Indexes: len(n.indexes)}
	for _, b := range n.buckets {
		s.Objects += len(b.objects)
	}
	for _, idx := range n.indexes {
		s.Documents += len(idx)
	}
	return s
}

// Reset drops all buckets, objects and indexes.
func (n *Node) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.buckets = map[string]*bucket{}
	n.indexes = map[string]map[string]map[string][]string{}
}

// Server is a Node listening on a local httptest server.
type Server struct {
	*httptest.Server
	Node *Node
}

// NewServer starts a node on a loopback port. Close it when done.
func NewServer(opts ...Option) *Server {
	node := NewNode(opts...)
	return &Server{Server: httptest.NewServer(node), Node: node}
}

// bucketLocked returns the named bucket, creating it with default props.
// Caller holds n.mu for writing.
func (n *Node) bucketLocked(name string) *bucket {
	b, ok := n.buckets[name]
	if !ok {
		b = &bucket{props: defaultProps(name), objects: map[string]object{}}
		n.buckets[name] = b
	}
	return b
}

func defaultProps(name string) map[string]any {
	return map[string]any{
		"name":            name,
		"n_val":           3,
		"allow_mult":      false,
		"last_write_wins": false,
		"precommit":       []any{},
		"postcommit":      []any{},
		"r":               "quorum",
		"w":               "quorum",
		"dw":              "quorum",
		"rw":              "quorum",
	}
}

func hasSearchHook(props map[string]any) bool {
	hooks, _ := props["precommit"].([]any)
	return slices.ContainsFunc(hooks, func(h any) bool {
		m, ok := h.(map[string]any)
		return ok && m["mod"] == searchHookMod && m["fun"] == searchHookFun
	})
}

// log returns the request-scoped logger when one was installed upstream.
func (n *Node) log(r *http.Request) *zap.Logger {
	return logger.FromContextOr(r.Context(), n.logger)
}

func (n *Node) nextVclock() string {
	return "vc" + strconv.FormatInt(n.vclock.Add(1), 10)
}

func cloneProps(p map[string]any) map[string]any {
	return maps.Clone(p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
