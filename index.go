package riak

import (
	"context"
	"fmt"
)

// TypedIndex is a struct-typed view of a search index.
// The field mapping is read from T's `riak` struct tags at construction time.
type TypedIndex[T any] struct {
	name   string
	client *Client
	meta   *schemaMeta
}

// TypedResult is a search result decoded into T.
type TypedResult[T any] struct {
	NumFound int
	MaxScore float64
	Items    []T
}

// NewIndex creates a typed handle for the named index.
// T must be a struct with a string field tagged `riak:"id"`.
func NewIndex[T any](client *Client, name string) (*TypedIndex[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("new index %q: %w", name, err)
	}
	return &TypedIndex[T]{name: name, client: client, meta: meta}, nil
}

// Name returns the index name.
func (idx *TypedIndex[T]) Name() string { return idx.name }

// Add indexes items.
func (idx *TypedIndex[T]) Add(ctx context.Context, items ...T) error {
	docs := make([]Document, len(items))
	for i, item := range items {
		docs[i] = idx.meta.toDocument(item)
	}
	return idx.client.Solr().Add(ctx, idx.name, docs...)
}

// Delete removes items by id.
func (idx *TypedIndex[T]) Delete(ctx context.Context, ids ...string) error {
	return idx.client.Solr().Delete(ctx, idx.name, DeleteRequest{IDs: ids})
}

// DeleteWhere removes items matching any of the queries.
func (idx *TypedIndex[T]) DeleteWhere(ctx context.Context, queries ...Q) error {
	qs := make([]string, 0, len(queries))
	for _, q := range queries {
		if q != "" {
			qs = append(qs, q.String())
		}
	}
	return idx.client.Solr().Delete(ctx, idx.name, DeleteRequest{Queries: qs})
}

// Search runs q and decodes the matches into T.
func (idx *TypedIndex[T]) Search(ctx context.Context, q Q, params Params) (TypedResult[T], error) {
	res, err := idx.client.Solr().Search(ctx, idx.name, q.String(), params)
	if err != nil {
		return TypedResult[T]{}, err
	}
	out := TypedResult[T]{
		NumFound: res.NumFound,
		MaxScore: res.MaxScore,
		Items:    make([]T, 0, len(res.Docs)),
	}
	for i, d := range res.Docs {
		v, err := idx.meta.fromDocument(d)
		if err != nil {
			return TypedResult[T]{}, fmt.Errorf("search %q: doc %d: %w", idx.name, i, err)
		}
		item, ok := v.(T)
		if !ok {
			return TypedResult[T]{}, fmt.Errorf("search %q: doc %d: type assertion failed", idx.name, i)
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}
