package riak

import (
	"context"
	"strconv"
	"strings"
)

// Q is a query in Solr's boolean syntax.
type Q string

// String returns the query text.
func (q Q) String() string { return string(q) }

// Term matches field:value. Values with whitespace are quoted; query
// syntax characters are escaped.
func Term(field, value string) Q {
	return Q(field + ":" + quoteValue(value))
}

// Raw wraps a pre-built query string.
func Raw(query string) Q { return Q(query) }

// And matches documents matching every q.
func And(qs ...Q) Q { return join("AND", qs) }

// Or matches documents matching any q.
func Or(qs ...Q) Q { return join("OR", qs) }

// Not excludes documents matching q.
func Not(q Q) Q {
	if q == "" {
		return ""
	}
	return "(NOT " + q + ")"
}

func join(op string, qs []Q) Q {
	parts := make([]string, 0, len(qs))
	for _, q := range qs {
		if q != "" {
			parts = append(parts, string(q))
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return Q(parts[0])
	default:
		return Q("(" + strings.Join(parts, " "+op+" ") + ")")
	}
}

const specialChars = `+-&|!(){}[]^"~*?:\/`

func quoteValue(v string) string {
	if strings.ContainsAny(v, " \t\n") {
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
		return `"` + r.Replace(v) + `"`
	}
	var b strings.Builder
	for _, r := range v {
		if strings.ContainsRune(specialChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// QueryBuilder is a fluent builder for search requests against one index.
type QueryBuilder struct {
	solr   *Solr
	index  string
	query  Q
	params Params
}

// Query starts a search request against index.
func (s *Solr) Query(index string) *QueryBuilder {
	return &QueryBuilder{solr: s, index: index, params: Params{}}
}

// Where sets the query, replacing any previous one.
func (b *QueryBuilder) Where(q Q) *QueryBuilder {
	b.query = q
	return b
}

// Rows limits the number of returned documents.
func (b *QueryBuilder) Rows(n int) *QueryBuilder {
	b.params["rows"] = strconv.Itoa(n)
	return b
}

// Start skips the first n matches.
func (b *QueryBuilder) Start(n int) *QueryBuilder {
	b.params["start"] = strconv.Itoa(n)
	return b
}

// Sort orders results by field.
func (b *QueryBuilder) Sort(field string) *QueryBuilder {
	b.params["sort"] = field
	return b
}

// Fields restricts the returned fields.
func (b *QueryBuilder) Fields(names ...string) *QueryBuilder {
	b.params["fl"] = strings.Join(names, ",")
	return b
}

// DefaultField sets the field used for unqualified terms.
func (b *QueryBuilder) DefaultField(name string) *QueryBuilder {
	b.params["df"] = name
	return b
}

// Format selects the response format ("json" or "xml").
func (b *QueryBuilder) Format(wt string) *QueryBuilder {
	b.params["wt"] = wt
	return b
}

// Param sets an arbitrary parameter. An empty value removes it from the
// request.
func (b *QueryBuilder) Param(key, value string) *QueryBuilder {
	b.params[key] = value
	return b
}

// Params returns a copy of the accumulated parameters.
func (b *QueryBuilder) Params() Params {
	out := make(Params, len(b.params))
	for k, v := range b.params {
		out[k] = v
	}
	return out
}

// String returns the query text.
func (b *QueryBuilder) String() string { return b.query.String() }

// Do executes the search.
func (b *QueryBuilder) Do(ctx context.Context) (*SearchResult, error) {
	return b.solr.Search(ctx, b.index, b.query.String(), b.params)
}
