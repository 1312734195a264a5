package riak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kailas-cloud/riak/internal/transport"
)

const precommitProp = "precommit"

// Bucket is a handle for a named collection of objects.
type Bucket struct {
	name   string
	client *Client
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

type propsEnvelope struct {
	Props Props `json:"props"`
}

// Properties fetches the bucket's properties.
func (b *Bucket) Properties(ctx context.Context) (props Props, err error) {
	start := time.Now()
	defer func() { b.client.obs.observe(opGetProps, b.name, start, err) }()

	return b.properties(ctx)
}

func (b *Bucket) properties(ctx context.Context) (Props, error) {
	if b.name == "" {
		return nil, ErrEmptyName
	}
	resp, err := b.client.tr.Do(ctx, transport.Request{
		Op:     transport.OpGetProps,
		Method: http.MethodGet,
		Path:   b.client.tr.BuildRestPath(b.name, "", Params{"props": "true", "keys": "false"}),
		Accept: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("get bucket props %q: %w", b.name, err)
	}

	var env propsEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, fmt.Errorf("decode bucket props %q: %w", b.name, err)
	}
	if env.Props == nil {
		env.Props = Props{}
	}
	return env.Props, nil
}

// SetProperties writes the given properties. Properties not named in props
// keep their current values.
func (b *Bucket) SetProperties(ctx context.Context, props Props) (err error) {
	start := time.Now()
	defer func() { b.client.obs.observe(opSetProps, b.name, start, err) }()

	return b.setProperties(ctx, props)
}

func (b *Bucket) setProperties(ctx context.Context, props Props) error {
	if b.name == "" {
		return ErrEmptyName
	}
	body, err := json.Marshal(propsEnvelope{Props: props})
	if err != nil {
		return fmt.Errorf("encode bucket props %q: %w", b.name, err)
	}
	_, err = b.client.tr.Do(ctx, transport.Request{
		Op:          transport.OpSetProps,
		Method:      http.MethodPut,
		Path:        b.client.tr.BuildRestPath(b.name, "", nil),
		Body:        body,
		ContentType: "application/json",
		Expect:      []int{http.StatusOK, http.StatusNoContent},
	})
	if err != nil {
		return fmt.Errorf("set bucket props %q: %w", b.name, err)
	}
	return nil
}

// SearchEnabled reports whether the search hook is installed on the bucket.
//
// The answer reflects what the node returns right now. On a cluster the
// props may lag a recent EnableSearch or DisableSearch; use AwaitSearch
// to wait for convergence.
func (b *Bucket) SearchEnabled(ctx context.Context) (enabled bool, err error) {
	start := time.Now()
	defer func() { b.client.obs.observe(opSearchEnabled, b.name, start, err) }()

	props, err := b.properties(ctx)
	if err != nil {
		return false, err
	}
	return hasSearchHook(props[precommitProp]), nil
}

// EnableSearch installs the search precommit hook. Calling it on a bucket
// that already has the hook sends no write.
func (b *Bucket) EnableSearch(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { b.client.obs.observe(opEnableSearch, b.name, start, err) }()

	props, err := b.properties(ctx)
	if err != nil {
		return fmt.Errorf("enable search: %w", err)
	}
	hooks := hookList(props[precommitProp])
	if hasSearchHook(hooks) {
		return nil
	}
	hooks = append(hooks, map[string]any{"mod": SearchHook.Mod, "fun": SearchHook.Fun})
	if err := b.setProperties(ctx, Props{precommitProp: hooks}); err != nil {
		return fmt.Errorf("enable search: %w", err)
	}
	return nil
}

// DisableSearch removes the search precommit hook, leaving other hooks in
// place.
func (b *Bucket) DisableSearch(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { b.client.obs.observe(opDisableSearch, b.name, start, err) }()

	props, err := b.properties(ctx)
	if err != nil {
		return fmt.Errorf("disable search: %w", err)
	}
	hooks := hookList(props[precommitProp])
	kept := make([]any, 0, len(hooks))
	for _, h := range hooks {
		if !isSearchHook(h) {
			kept = append(kept, h)
		}
	}
	if len(kept) == len(hooks) {
		return nil
	}
	if err := b.setProperties(ctx, Props{precommitProp: kept}); err != nil {
		return fmt.Errorf("disable search: %w", err)
	}
	return nil
}

// AwaitSearch polls SearchEnabled with exponential backoff until it
// reports want. Running out of ctx or of the poll budget yields an error
// wrapping ErrSearchState.
// Rejected requests stop the poll immediately.
func (b *Bucket) AwaitSearch(ctx context.Context, want bool) (err error) {
	start := time.Now()
	defer func() { b.client.obs.observe(opAwaitSearch, b.name, start, err) }()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 50 * time.Millisecond
	exp.MaxInterval = 2 * time.Second
	exp.MaxElapsedTime = 30 * time.Second

	err = backoff.Retry(func() error {
		props, err := b.properties(ctx)
		if err != nil {
			if errors.Is(err, ErrRejected) || errors.Is(err, ErrEmptyName) {
				return backoff.Permanent(err)
			}
			return err
		}
		if hasSearchHook(props[precommitProp]) != want {
			return ErrSearchState
		}
		return nil
	}, backoff.WithContext(exp, ctx))
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return fmt.Errorf("await search=%t on %q: %w: %w", want, b.name, ErrSearchState, err)
	}
	if err != nil {
		return fmt.Errorf("await search=%t on %q: %w", want, b.name, err)
	}
	return nil
}

// New creates an in-memory object under key. Nothing is sent until Store.
func (b *Bucket) New(key string, data any) *Object {
	return &Object{
		bucket:      b,
		key:         key,
		Data:        data,
		ContentType: "application/json",
	}
}

// Get fetches the object stored under key. Returns ErrNotFound when absent.
func (b *Bucket) Get(ctx context.Context, key string) (*Object, error) {
	o := &Object{bucket: b, key: key}
	if err := o.Reload(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// Search runs query against this bucket's search index.
func (b *Bucket) Search(ctx context.Context, query string, params Params) (*SearchResult, error) {
	return b.client.Solr().Search(ctx, b.name, query, params)
}

// hookList normalizes a precommit property into a slice of hook entries.
func hookList(v any) []any {
	switch hooks := v.(type) {
	case []any:
		return hooks
	case map[string]any:
		return []any{hooks}
	default:
		return nil
	}
}

func hasSearchHook(v any) bool {
	for _, h := range hookList(v) {
		if isSearchHook(h) {
			return true
		}
	}
	return false
}

func isSearchHook(h any) bool {
	m, ok := h.(map[string]any)
	if !ok {
		return false
	}
	return m["mod"] == SearchHook.Mod && m["fun"] == SearchHook.Fun
}
