// Package transport issues requests against a Riak node's HTTP interface.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Default path prefixes used by Riak's HTTP interface.
const (
	DefaultPrefix     = "riak"
	DefaultSolrPrefix = "solr"
	DefaultTimeout    = 30 * time.Second
)

// Config holds transport settings.
type Config struct {
	BaseURL    string
	Prefix     string
	SolrPrefix string
	Timeout    time.Duration
	Username   string
	Password   string
	ClientID   string
	UserAgent  string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Transport builds request paths and executes requests. It holds one
// underlying HTTP client and is meant to be owned by a single Client.
type Transport struct {
	client     *resty.Client
	prefix     string
	solrPrefix string
}

// Request describes a single call to the node.
type Request struct {
	Op          string
	Method      string
	Path        string
	Body        []byte
	ContentType string
	Accept      string
	Header      map[string]string
	// Expect lists the statuses treated as success. Defaults to 200.
	Expect []int
}

// Response is a completed, successful call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// New creates a Transport for the node at cfg.BaseURL.
func New(cfg Config) (*Transport, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("transport: base url required")
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("transport: base url %q must use http or https", cfg.BaseURL)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.SolrPrefix == "" {
		cfg.SolrPrefix = DefaultSolrPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	var c *resty.Client
	if cfg.HTTPClient != nil {
		c = resty.NewWithClient(cfg.HTTPClient)
	} else {
		c = resty.New()
	}
	c.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetDisableWarn(true)
	if cfg.Username != "" {
		c.SetBasicAuth(cfg.Username, cfg.Password)
	}
	if cfg.ClientID != "" {
		c.SetHeader("X-Riak-ClientId", cfg.ClientID)
	}
	if cfg.UserAgent != "" {
		c.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Logger != nil {
		c.SetLogger(cfg.Logger.Sugar())
	}

	return &Transport{
		client:     c,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		solrPrefix: strings.Trim(cfg.SolrPrefix, "/"),
	}, nil
}

// Do executes req. Network failures wrap ErrTransport; statuses outside
// req.Expect wrap ErrNotFound, ErrRejected or ErrServer. Nothing is retried.
func (t *Transport) Do(ctx context.Context, req Request) (*Response, error) {
	r := t.client.R().SetContext(ctx)
	if req.ContentType != "" {
		r.SetHeader("Content-Type", req.ContentType)
	}
	if req.Accept != "" {
		r.SetHeader("Accept", req.Accept)
	}
	for k, v := range req.Header {
		r.SetHeader(k, v)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		return nil, &Error{
			Op:     req.Op,
			Method: req.Method,
			Path:   req.Path,
			Err:    fmt.Errorf("%w: %w", ErrTransport, err),
		}
	}

	expect := req.Expect
	if len(expect) == 0 {
		expect = []int{http.StatusOK}
	}
	if !slices.Contains(expect, resp.StatusCode()) {
		return nil, &Error{
			Op:         req.Op,
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode(),
			Body:       truncate(resp.Body()),
			Err:        classify(resp.StatusCode()),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}
