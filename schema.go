package riak

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const tagKey = "riak"

// schemaMeta holds parsed struct tag metadata, cached per TypedIndex.
type schemaMeta struct {
	typ    reflect.Type
	idIdx  int
	fields []fieldMapping
}

type fieldMapping struct {
	structIdx int
	name      string
}

// parseSchema reflects on T and extracts riak struct tags.
//
//	type User struct {
//		Login string `riak:"id"`
//		Name  string `riak:"username"`
//		Age   int    `riak:"age"`
//	}
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("riak: type parameter must be a struct")
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("riak: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, idIdx: -1}
	seen := map[string]string{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		if !supportedKind(f.Type) {
			return nil, fmt.Errorf("riak: field %s has unsupported type %s", f.Name, f.Type)
		}
		if prev, dup := seen[tag]; dup {
			return nil, fmt.Errorf("riak: fields %s and %s both map to %q", prev, f.Name, tag)
		}
		seen[tag] = f.Name
		if tag == "id" {
			if f.Type.Kind() != reflect.String {
				return nil, fmt.Errorf("riak: id field %s must be a string", f.Name)
			}
			meta.idIdx = i
			continue
		}
		meta.fields = append(meta.fields, fieldMapping{structIdx: i, name: tag})
	}

	if meta.idIdx == -1 {
		return nil, fmt.Errorf("riak: no field with `riak:\"id\"` tag in %s", t)
	}
	return meta, nil
}

func supportedKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.String
	default:
		return false
	}
}

// toDocument converts a typed struct to a Document.
func (m *schemaMeta) toDocument(item any) Document {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	doc := make(Document, len(m.fields)+1)
	doc["id"] = v.Field(m.idIdx).String()
	for _, f := range m.fields {
		fv := v.Field(f.structIdx)
		if fv.Kind() == reflect.Slice {
			ss := fv.Convert(reflect.TypeOf([]string(nil))).Interface().([]string)
			doc[f.name] = append([]string(nil), ss...)
			continue
		}
		doc[f.name] = fv.Interface()
	}
	return doc
}

// fromDocument converts a Document back to the struct type. Search results
// carry field values as strings, so scalars are parsed by kind.
func (m *schemaMeta) fromDocument(doc Document) (any, error) {
	v := reflect.New(m.typ).Elem()
	v.Field(m.idIdx).SetString(doc.ID())
	for _, f := range m.fields {
		raw, ok := doc[f.name]
		if !ok || raw == nil {
			continue
		}
		if err := setField(v.Field(f.structIdx), raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.name, err)
		}
	}
	return v.Interface(), nil
}

func setField(v reflect.Value, raw any) error {
	if v.Kind() == reflect.Slice {
		var items []string
		switch r := raw.(type) {
		case []any:
			for _, it := range r {
				items = append(items, fmt.Sprint(it))
			}
		case []string:
			items = append(items, r...)
		default:
			items = strings.Fields(fmt.Sprint(r))
		}
		v.Set(reflect.ValueOf(items).Convert(v.Type()))
		return nil
	}

	s := fmt.Sprint(raw)
	if f, ok := raw.(float64); ok {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err //nolint:wrapcheck // wrapped by caller
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err //nolint:wrapcheck // wrapped by caller
		}
		v.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err //nolint:wrapcheck // wrapped by caller
		}
		v.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err //nolint:wrapcheck // wrapped by caller
		}
		v.SetFloat(f)
	}
	return nil
}
