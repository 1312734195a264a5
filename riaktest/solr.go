package riaktest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const defaultRows = 10

type updateAdd struct {
	Docs []struct {
		Fields []struct {
			Name  string `xml:"name,attr"`
			Value string `xml:",chardata"`
		} `xml:"field"`
	} `xml:"doc"`
}

type updateDelete struct {
	IDs     []string `xml:"id"`
	Queries []string `xml:"query"`
}

func (n *Node) handleUpdate(w http.ResponseWriter, r *http.Request) {
	index := pathParam(r, "index")

	dec := xml.NewDecoder(r.Body)
	start, err := firstElement(dec)
	if err != nil {
		writeText(w, http.StatusBadRequest, "malformed update: "+err.Error())
		return
	}

	switch start.Name.Local {
	case "add":
		var add updateAdd
		if err := dec.DecodeElement(&add, &start); err != nil {
			writeText(w, http.StatusBadRequest, "malformed add: "+err.Error())
			return
		}
		if err := n.applyAdd(index, &add); err != nil {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}
		n.log(r).Debug("documents added", zap.String("index", index), zap.Int("count", len(add.Docs)))
	case "delete":
		var del updateDelete
		if err := dec.DecodeElement(&del, &start); err != nil {
			writeText(w, http.StatusBadRequest, "malformed delete: "+err.Error())
			return
		}
		removed, err := n.applyDelete(index, &del)
		if err != nil {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}
		n.log(r).Debug("documents deleted", zap.String("index", index), zap.Int("count", removed))
	default:
		writeText(w, http.StatusBadRequest, "unsupported update command <"+start.Name.Local+">")
		return
	}
	writeText(w, http.StatusOK, "")
}

func firstElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, errors.New("empty body")
			}
			return xml.StartElement{}, err //nolint:wrapcheck // reported verbatim
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func (n *Node) applyAdd(index string, add *updateAdd) error {
	docs := make(map[string]map[string][]string, len(add.Docs))
	for i, d := range add.Docs {
		fields := map[string][]string{}
		for _, f := range d.Fields {
			fields[f.Name] = append(fields[f.Name], f.Value)
		}
		ids := fields["id"]
		if len(ids) != 1 || ids[0] == "" {
			return fmt.Errorf("document %d: exactly one non-empty id field required", i)
		}
		delete(fields, "id")
		docs[ids[0]] = fields
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for id, fields := range docs {
		n.indexLocked(index, id, fields)
	}
	return nil
}

func (n *Node) applyDelete(index string, del *updateDelete) (int, error) {
	matchers := make([]matcher, 0, len(del.Queries))
	for _, q := range del.Queries {
		m, err := parseQuery(q)
		if err != nil {
			return 0, fmt.Errorf("delete query %q: %w", q, err)
		}
		matchers = append(matchers, m)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	idx := n.indexes[index]
	removed := 0
	for id, fields := range idx {
		hit := slices.Contains(del.IDs, id) || slices.ContainsFunc(matchers, func(m matcher) bool {
			return m(withID(id, fields))
		})
		if hit {
			delete(idx, id)
			removed++
		}
	}
	return removed, nil
}

func withID(id string, fields map[string][]string) map[string][]string {
	doc := make(map[string][]string, len(fields)+1)
	for k, v := range fields {
		doc[k] = v
	}
	doc["id"] = []string{id}
	return doc
}

type hit struct {
	id     string
	fields map[string][]string
}

func (n *Node) handleSelect(w http.ResponseWriter, r *http.Request) {
	index := pathParam(r, "index")
	q := r.URL.Query()

	query := q.Get("q")
	if query == "" {
		writeText(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	m, err := parseQuery(query)
	if err != nil {
		writeText(w, http.StatusBadRequest, "query parse error: "+err.Error())
		return
	}
	start, err := intParam(q.Get("start"), 0)
	if err != nil {
		writeText(w, http.StatusBadRequest, "start: "+err.Error())
		return
	}
	rows, err := intParam(q.Get("rows"), defaultRows)
	if err != nil {
		writeText(w, http.StatusBadRequest, "rows: "+err.Error())
		return
	}

	n.mu.RLock()
	var hits []hit
	for id, fields := range n.indexes[index] {
		doc := withID(id, fields)
		if m(doc) {
			hits = append(hits, hit{id: id, fields: fields})
		}
	}
	n.mu.RUnlock()

	sortHits(hits, q.Get("sort"))
	total := len(hits)
	hits = page(hits, start, rows)
	if fl := q.Get("fl"); fl != "" {
		hits = project(hits, strings.Split(fl, ","))
	}

	n.log(r).Debug("search", zap.String("index", index), zap.String("q", query), zap.Int("found", total))

	switch strings.ToLower(q.Get("wt")) {
	case "", "xml":
		writeSelectXML(w, index, total, start, hits)
	case "json":
		writeSelectJSON(w, index, query, total, start, hits)
	default:
		writeText(w, http.StatusBadRequest, "unsupported wt "+strconv.Quote(q.Get("wt")))
	}
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err //nolint:wrapcheck // reported verbatim
	}
	if v < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return v, nil
}

// sortHits orders by id, or by the first value of field ("field asc|desc").
func sortHits(hits []hit, order string) {
	field, dir, _ := strings.Cut(strings.TrimSpace(order), " ")
	desc := strings.EqualFold(strings.TrimSpace(dir), "desc")
	key := func(h hit) string {
		if field == "" || field == "id" {
			return h.id
		}
		if vs := h.fields[field]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}
	slices.SortStableFunc(hits, func(a, b hit) int {
		c := strings.Compare(key(a), key(b))
		if c == 0 {
			c = strings.Compare(a.id, b.id)
		}
		if desc {
			return -c
		}
		return c
	})
}

func page(hits []hit, start, rows int) []hit {
	if start >= len(hits) {
		return nil
	}
	end := min(start+rows, len(hits))
	return hits[start:end]
}

func project(hits []hit, names []string) []hit {
	out := make([]hit, len(hits))
	for i, h := range hits {
		fields := map[string][]string{}
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "*" {
				fields = h.fields
				break
			}
			if vs, ok := h.fields[name]; ok {
				fields[name] = vs
			}
		}
		out[i] = hit{id: h.id, fields: fields}
	}
	return out
}

func writeSelectJSON(w http.ResponseWriter, index, query string, total, start int, hits []hit) {
	docs := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		fields := make(map[string]any, len(h.fields))
		for k, vs := range h.fields {
			if len(vs) == 1 {
				fields[k] = vs[0]
			} else {
				fields[k] = vs
			}
		}
		docs = append(docs, map[string]any{
			"id":     h.id,
			"index":  index,
			"fields": fields,
			"props":  map[string]any{},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"responseHeader": map[string]any{
			"status": 0,
			"QTime":  0,
			"params": map[string]any{"q": query, "wt": "json"},
		},
		"response": map[string]any{
			"numFound": total,
			"start":    start,
			"maxScore": maxScore(total),
			"docs":     docs,
		},
	})
}

type xmlSelect struct {
	XMLName xml.Name  `xml:"response"`
	Header  xmlHeader `xml:"lst"`
	Result  xmlResult `xml:"result"`
}

type xmlHeader struct {
	Name string     `xml:"name,attr"`
	Ints []xmlValue `xml:"int"`
}

type xmlValue struct {
	Name  string `xml:"name,attr,omitempty"`
	Value string `xml:",chardata"`
}

type xmlResult struct {
	Name     string   `xml:"name,attr"`
	NumFound int      `xml:"numFound,attr"`
	Start    int      `xml:"start,attr"`
	MaxScore string   `xml:"maxScore,attr"`
	Docs     []xmlDoc `xml:"doc"`
}

type xmlDoc struct {
	Strs []xmlValue `xml:"str"`
	Arrs []xmlArr   `xml:"arr"`
}

type xmlArr struct {
	Name string     `xml:"name,attr"`
	Strs []xmlValue `xml:"str"`
}

func writeSelectXML(w http.ResponseWriter, _ string, total, start int, hits []hit) {
	res := xmlSelect{
		Header: xmlHeader{Name: "responseHeader", Ints: []xmlValue{
			{Name: "status", Value: "0"},
			{Name: "QTime", Value: "0"},
		}},
		Result: xmlResult{
			Name:     "response",
			NumFound: total,
			Start:    start,
			MaxScore: maxScore(total),
		},
	}
	for _, h := range hits {
		doc := xmlDoc{Strs: []xmlValue{{Name: "id", Value: h.id}}}
		names := make([]string, 0, len(h.fields))
		for k := range h.fields {
			names = append(names, k)
		}
		slices.Sort(names)
		for _, k := range names {
			vs := h.fields[k]
			if len(vs) == 1 {
				doc.Strs = append(doc.Strs, xmlValue{Name: k, Value: vs[0]})
				continue
			}
			arr := xmlArr{Name: k}
			for _, v := range vs {
				arr.Strs = append(arr.Strs, xmlValue{Value: v})
			}
			doc.Arrs = append(doc.Arrs, arr)
		}
		res.Result.Docs = append(res.Result.Docs, doc)
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, xml.Header)
	_ = xml.NewEncoder(w).Encode(res)
}

// maxScore mirrors Riak Search, which reports the score as a string.
func maxScore(total int) string {
	if total == 0 {
		return "0.0"
	}
	return "1.00000"
}
