// Package riak is a client for a Riak node's HTTP interface and its
// Solr-compatible search endpoint.
//
// All calls are synchronous and take a context. A Client owns one HTTP
// connection pool; share it serially.
package riak

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/riak/internal/transport"
	"github.com/kailas-cloud/riak/internal/version"
)

// Client is the entry point for talking to a node.
type Client struct {
	tr       *transport.Transport
	obs      *observer
	clientID string
}

// New creates a Client. No request is sent; use Ping to check the node.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		url:       DefaultURL,
		userAgent: version.UserAgent(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.clientID == "" {
		cfg.clientID = "go_" + uuid.NewString()
	}

	tr, err := transport.New(transport.Config{
		BaseURL:    cfg.url,
		Prefix:     cfg.prefix,
		SolrPrefix: cfg.solrPrefix,
		Timeout:    cfg.timeout,
		Username:   cfg.username,
		Password:   cfg.password,
		ClientID:   cfg.clientID,
		UserAgent:  cfg.userAgent,
		HTTPClient: cfg.httpClient,
		Logger:     cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("riak: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{tr: tr, obs: obs, clientID: cfg.clientID}, nil
}

// ClientID returns the id sent in X-Riak-ClientId.
func (c *Client) ClientID() string { return c.clientID }

// Ping checks that the node answers on /ping.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe(opPing, "", start, err) }()

	_, err = c.tr.Do(ctx, transport.Request{
		Op:     transport.OpPing,
		Method: http.MethodGet,
		Path:   "/ping",
	})
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// BuildRestPath returns the key/value path for bucket, optional key and
// params. Params with empty values are omitted; a non-empty params map
// always adds "?", so {"r": ""} yields "/riak/foo/bar?".
func (c *Client) BuildRestPath(bucket, key string, params Params) string {
	return c.tr.BuildRestPath(bucket, key, params)
}

// BuildSolrPath returns the search path for index and op ("select", "update").
func (c *Client) BuildSolrPath(index, op string, params Params) string {
	return c.tr.BuildSolrPath(index, op, params)
}

// Bucket returns a handle for the named bucket. No request is sent.
func (c *Client) Bucket(name string) *Bucket {
	return &Bucket{name: name, client: c}
}

// Solr returns the search client.
func (c *Client) Solr() *Solr {
	return &Solr{client: c}
}
