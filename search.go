package riak

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/kailas-cloud/riak/internal/transport"
)

// Solr talks to the node's Solr-compatible search endpoint.
type Solr struct {
	client *Client
}

// Add indexes docs under index. Every document must carry a non-empty
// "id"; otherwise ErrInvalidDocument is returned and nothing is sent.
func (s *Solr) Add(ctx context.Context, index string, docs ...Document) (err error) {
	start := time.Now()
	defer func() { s.client.obs.observe(opSolrAdd, index, start, err) }()

	if index == "" {
		return ErrEmptyName
	}
	if len(docs) == 0 {
		return fmt.Errorf("add to %q: no documents: %w", index, ErrInvalidDocument)
	}
	for i, d := range docs {
		if d.ID() == "" {
			return fmt.Errorf("add to %q: document %d has no id: %w", index, i, ErrInvalidDocument)
		}
	}

	body, err := encodeAdd(docs)
	if err != nil {
		return fmt.Errorf("add to %q: %w", index, err)
	}
	if err := s.update(ctx, index, body); err != nil {
		return fmt.Errorf("add to %q: %w", index, err)
	}
	return nil
}

// Delete removes every document matching any id or any query in req.
// An empty request is a no-op.
func (s *Solr) Delete(ctx context.Context, index string, req DeleteRequest) (err error) {
	start := time.Now()
	defer func() { s.client.obs.observe(opSolrDelete, index, start, err) }()

	if index == "" {
		return ErrEmptyName
	}
	if req.Empty() {
		return nil
	}

	body, err := encodeDelete(req)
	if err != nil {
		return fmt.Errorf("delete from %q: %w", index, err)
	}
	if err := s.update(ctx, index, body); err != nil {
		return fmt.Errorf("delete from %q: %w", index, err)
	}
	return nil
}

func (s *Solr) update(ctx context.Context, index string, body []byte) error {
	tr := s.client.tr
	_, err := tr.Do(ctx, transport.Request{
		Op:          transport.OpSolrUpdate,
		Method:      http.MethodPost,
		Path:        tr.BuildSolrPath(index, "update", nil),
		Body:        body,
		ContentType: "text/xml",
	})
	return err //nolint:wrapcheck // callers add index context
}

// Search runs query against index. params are forwarded verbatim; "wt"
// defaults to json, and wt=xml switches to the XML response decoder.
// Params with empty values are left out of the request.
func (s *Solr) Search(ctx context.Context, index, query string, params Params) (res *SearchResult, err error) {
	start := time.Now()
	defer func() { s.client.obs.observe(opSolrSearch, index, start, err) }()

	if index == "" {
		return nil, ErrEmptyName
	}

	p := make(Params, len(params)+2)
	maps.Copy(p, params)
	p["q"] = query
	if p["wt"] == "" {
		p["wt"] = "json"
	}

	tr := s.client.tr
	resp, err := tr.Do(ctx, transport.Request{
		Op:     transport.OpSolrSelect,
		Method: http.MethodGet,
		Path:   tr.BuildSolrPath(index, "select", p),
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", index, err)
	}

	if strings.EqualFold(p["wt"], "xml") {
		res, err = decodeSelectXML(resp.Body)
	} else {
		res, err = decodeSelectJSON(resp.Body)
	}
	if err != nil {
		return nil, fmt.Errorf("search %q: decode response: %w", index, err)
	}
	return res, nil
}
