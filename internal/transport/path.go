package transport

import (
	"net/url"
	"strings"
)

// Params are query parameters for a request. An empty value means the
// parameter is absent and it never reaches the request path.
type Params map[string]string

// Encode renders the non-empty params sorted by key.
func (p Params) Encode() string {
	v := make(url.Values, len(p))
	for k, val := range p {
		if val == "" {
			continue
		}
		v.Set(k, val)
	}
	return v.Encode()
}

// BuildRestPath builds /<prefix>/<bucket>[/<key>][?<params>].
//
// A non-empty params map always yields a "?" even when every value is
// empty, so {"r": ""} produces "/riak/foo/bar?".
func (t *Transport) BuildRestPath(bucket, key string, params Params) string {
	segs := []string{t.prefix, bucket}
	if key != "" {
		segs = append(segs, key)
	}
	return buildPath(segs, params)
}

// BuildSolrPath builds /<solr prefix>/<index>/<op>[?<params>].
func (t *Transport) BuildSolrPath(index, op string, params Params) string {
	return buildPath([]string{t.solrPrefix, index, op}, params)
}

func buildPath(segs []string, params Params) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	if len(params) > 0 {
		b.WriteByte('?')
		b.WriteString(params.Encode())
	}
	return b.String()
}
