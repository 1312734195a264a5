package riak

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultURL is the address of a local node's HTTP listener.
const DefaultURL = "http://127.0.0.1:8098"

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	url        string
	prefix     string
	solrPrefix string
	timeout    time.Duration

	username string
	password string

	clientID   string
	userAgent  string
	httpClient *http.Client

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithURL sets the node's base URL. Defaults to DefaultURL.
func WithURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.url = url
	})
}

// WithPrefix sets the key/value path prefix. Defaults to "riak".
func WithPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.prefix = prefix
	})
}

// WithSolrPrefix sets the search path prefix. Defaults to "solr".
func WithSolrPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.solrPrefix = prefix
	})
}

// WithTimeout bounds every request. Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithBasicAuth sends credentials on every request.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithClientID sets the X-Riak-ClientId header.
// A random id is generated when unset.
func WithClientID(id string) Option {
	return optionFunc(func(c *clientConfig) {
		c.clientID = id
	})
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *clientConfig) {
		c.userAgent = ua
	})
}

// WithHTTPClient injects the underlying *http.Client (TLS, proxies, tracing).
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithLogger enables structured logging of client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
