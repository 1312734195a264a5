package riak

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Update bodies use Solr's XML update format.

type xmlAdd struct {
	XMLName xml.Name    `xml:"add"`
	Docs    []xmlAddDoc `xml:"doc"`
}

type xmlAddDoc struct {
	Fields []xmlAddField `xml:"field"`
}

type xmlAddField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlDelete struct {
	XMLName xml.Name `xml:"delete"`
	IDs     []string `xml:"id"`
	Queries []string `xml:"query"`
}

func encodeAdd(docs []Document) ([]byte, error) {
	add := xmlAdd{Docs: make([]xmlAddDoc, 0, len(docs))}
	for _, d := range docs {
		fields, err := docFields(d)
		if err != nil {
			return nil, err
		}
		add.Docs = append(add.Docs, xmlAddDoc{Fields: fields})
	}
	b, err := xml.Marshal(add)
	if err != nil {
		return nil, fmt.Errorf("encode add: %w", err)
	}
	return b, nil
}

func encodeDelete(req DeleteRequest) ([]byte, error) {
	b, err := xml.Marshal(xmlDelete{IDs: req.IDs, Queries: req.Queries})
	if err != nil {
		return nil, fmt.Errorf("encode delete: %w", err)
	}
	return b, nil
}

// docFields renders id first, then the remaining fields sorted by name.
// Slices become repeated fields; nil values are skipped.
func docFields(d Document) ([]xmlAddField, error) {
	names := make([]string, 0, len(d))
	for k := range d {
		if k != "id" {
			names = append(names, k)
		}
	}
	slices.Sort(names)

	fields := []xmlAddField{{Name: "id", Value: d.ID()}}
	for _, name := range names {
		switch v := d[name].(type) {
		case nil:
		case []any:
			for _, item := range v {
				s, err := fieldValue(item)
				if err != nil {
					return nil, fmt.Errorf("field %q: %w", name, err)
				}
				fields = append(fields, xmlAddField{Name: name, Value: s})
			}
		case []string:
			for _, item := range v {
				fields = append(fields, xmlAddField{Name: name, Value: item})
			}
		default:
			s, err := fieldValue(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			fields = append(fields, xmlAddField{Name: name, Value: s})
		}
	}
	return fields, nil
}

func fieldValue(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case json.Number:
		return t.String(), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("unsupported value %T: %w", v, err)
		}
		return string(b), nil
	}
}

// flexFloat accepts a JSON number or a numeric string; Riak Search sends
// maxScore as a string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse score %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

type selectJSON struct {
	Response struct {
		NumFound int              `json:"numFound"`
		MaxScore flexFloat        `json:"maxScore"`
		Docs     []map[string]any `json:"docs"`
	} `json:"response"`
}

// decodeSelectJSON accepts both Riak Search docs ({"id", "fields": {...}})
// and flat Solr docs.
func decodeSelectJSON(b []byte) (*SearchResult, error) {
	var raw selectJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	res := &SearchResult{
		NumFound: raw.Response.NumFound,
		MaxScore: float64(raw.Response.MaxScore),
		Docs:     make([]Document, 0, len(raw.Response.Docs)),
	}
	for _, d := range raw.Response.Docs {
		fields, ok := d["fields"].(map[string]any)
		if !ok {
			res.Docs = append(res.Docs, Document(d))
			continue
		}
		doc := make(Document, len(fields)+1)
		for k, v := range fields {
			doc[k] = v
		}
		doc["id"] = d["id"]
		res.Docs = append(res.Docs, doc)
	}
	return res, nil
}

type selectXML struct {
	Result struct {
		NumFound int       `xml:"numFound,attr"`
		MaxScore string    `xml:"maxScore,attr"`
		Docs     []xmlNode `xml:"doc"`
	} `xml:"result"`
}

// xmlNode is a typed Solr value element: <str name="k">v</str>, <int>,
// <arr> of nested values, and so on.
type xmlNode struct {
	XMLName xml.Name
	Name    string    `xml:"name,attr"`
	Value   string    `xml:",chardata"`
	Items   []xmlNode `xml:",any"`
}

func decodeSelectXML(b []byte) (*SearchResult, error) {
	var raw selectXML
	if err := xml.Unmarshal(b, &raw); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	res := &SearchResult{
		NumFound: raw.Result.NumFound,
		Docs:     make([]Document, 0, len(raw.Result.Docs)),
	}
	if raw.Result.MaxScore != "" {
		score, err := strconv.ParseFloat(raw.Result.MaxScore, 64)
		if err != nil {
			return nil, fmt.Errorf("parse maxScore %q: %w", raw.Result.MaxScore, err)
		}
		res.MaxScore = score
	}
	for _, d := range raw.Result.Docs {
		doc := make(Document, len(d.Items))
		for _, f := range d.Items {
			if f.Name == "" {
				continue
			}
			doc[f.Name] = xmlValue(f)
		}
		res.Docs = append(res.Docs, doc)
	}
	return res, nil
}

func xmlValue(n xmlNode) any {
	v := strings.TrimSpace(n.Value)
	switch n.XMLName.Local {
	case "arr":
		out := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			out = append(out, xmlValue(item))
		}
		return out
	case "int", "long":
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	case "float", "double":
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case "bool":
		if bv, err := strconv.ParseBool(v); err == nil {
			return bv
		}
	}
	return v
}
