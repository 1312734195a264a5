package riak

import (
	"fmt"

	"github.com/kailas-cloud/riak/internal/transport"
)

// Params are query parameters forwarded verbatim to the node.
// Empty values are treated as absent and never reach the request path.
type Params = transport.Params

// Document is a search document: field name to value.
// Every document sent for indexing must carry a non-empty "id".
type Document map[string]any

// ID returns the document's id field as a string, or "" when absent.
func (d Document) ID() string {
	v, ok := d["id"]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// SearchResult is the outcome of a search. Zero matches is a valid result
// with an empty Docs slice.
type SearchResult struct {
	NumFound int
	MaxScore float64
	Docs     []Document
}

// Len returns the number of returned documents.
func (r *SearchResult) Len() int { return len(r.Docs) }

// DeleteRequest selects documents to remove from an index. A document
// matching any id or any query is removed.
type DeleteRequest struct {
	IDs     []string
	Queries []string
}

// Empty reports whether the request selects nothing.
func (r DeleteRequest) Empty() bool { return len(r.IDs) == 0 && len(r.Queries) == 0 }

// Props are bucket properties as returned by the node.
type Props map[string]any

// Hook references an Erlang commit hook.
type Hook struct {
	Mod string `json:"mod"`
	Fun string `json:"fun"`
}

// SearchHook is the precommit hook that forwards bucket writes into the
// search index.
var SearchHook = Hook{Mod: "riak_search_kv_hook", Fun: "precommit"}
