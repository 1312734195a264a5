package riaktest

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func (n *Node) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

func (n *Node) handleGetProps(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "bucket")

	n.mu.Lock()
	props := cloneProps(n.bucketLocked(name).props)
	n.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"props": props})
}

func (n *Node) handleSetProps(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "bucket")

	var body struct {
		Props map[string]any `json:"props"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Props == nil {
		writeText(w, http.StatusBadRequest, "JSON object must contain a \"props\" field")
		return
	}
	if pc, ok := body.Props["precommit"]; ok {
		if _, isList := pc.([]any); !isList {
			writeText(w, http.StatusBadRequest, "precommit must be a list of hooks")
			return
		}
	}

	n.mu.Lock()
	b := n.bucketLocked(name)
	for k, v := range body.Props {
		if k == "name" {
			continue
		}
		b.props[k] = v
	}
	enabled := hasSearchHook(b.props)
	n.mu.Unlock()

	n.log(r).Debug("bucket props set", zap.String("bucket", name), zap.Bool("search", enabled))
	w.WriteHeader(http.StatusNoContent)
}

func (n *Node) handleFetch(w http.ResponseWriter, r *http.Request) {
	name, key := pathParam(r, "bucket"), pathParam(r, "key")

	n.mu.RLock()
	var (
		obj object
		ok  bool
	)
	if b, exists := n.buckets[name]; exists {
		obj, ok = b.objects[key]
	}
	n.mu.RUnlock()

	if !ok {
		writeText(w, http.StatusNotFound, "not found\n")
		return
	}
	w.Header().Set("Content-Type", obj.contentType)
	w.Header().Set("X-Riak-Vclock", obj.vclock)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.data)
}

func (n *Node) handleStore(w http.ResponseWriter, r *http.Request) {
	name, key := pathParam(r, "bucket"), pathParam(r, "key")

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeText(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		writeText(w, http.StatusBadRequest, "Missing Content-Type request header")
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	b := n.bucketLocked(name)
	if hasSearchHook(b.props) {
		fields, err := objectFields(data, ct)
		if err != nil {
			n.log(r).Debug("precommit rejected object", zap.String("bucket", name), zap.String("key", key), zap.Error(err))
			writeText(w, http.StatusForbidden, "precommit hook failed: "+err.Error())
			return
		}
		n.indexLocked(name, key, fields)
	}

	vc := n.nextVclock()
	b.objects[key] = object{data: data, contentType: ct, vclock: vc}
	n.log(r).Debug("object stored", zap.String("bucket", name), zap.String("key", key))

	w.Header().Set("X-Riak-Vclock", vc)
	if r.URL.Query().Get("returnbody") == "true" {
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (n *Node) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, key := pathParam(r, "bucket"), pathParam(r, "key")

	n.mu.Lock()
	defer n.mu.Unlock()

	b, ok := n.buckets[name]
	if !ok {
		writeText(w, http.StatusNotFound, "not found\n")
		return
	}
	if _, ok := b.objects[key]; !ok {
		writeText(w, http.StatusNotFound, "not found\n")
		return
	}
	delete(b.objects, key)
	if hasSearchHook(b.props) {
		delete(n.indexes[name], key)
	}
	w.WriteHeader(http.StatusNoContent)
}

// objectFields extracts indexable fields from a stored JSON object.
// Nested objects are flattened with "_" separators.
func objectFields(data []byte, contentType string) (map[string][]string, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, err //nolint:wrapcheck // reported to the caller verbatim
	}
	fields := map[string][]string{}
	if mt != "application/json" {
		fields[defaultField] = []string{string(data)}
		return fields, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err //nolint:wrapcheck // reported to the caller verbatim
	}
	obj, ok := v.(map[string]any)
	if !ok {
		fields[defaultField] = []string{string(data)}
		return fields, nil
	}
	flatten("", obj, fields)
	return fields, nil
}

func flatten(prefix string, obj map[string]any, out map[string][]string) {
	for k, v := range obj {
		name := k
		if prefix != "" {
			name = prefix + "_" + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(name, t, out)
		case []any:
			for _, item := range t {
				out[name] = append(out[name], scalar(item))
			}
		default:
			out[name] = append(out[name], scalar(t))
		}
	}
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return strings.Trim(string(b), `"`)
	}
}

// indexLocked replaces a document in an index. Caller holds n.mu.
func (n *Node) indexLocked(index, id string, fields map[string][]string) {
	idx, ok := n.indexes[index]
	if !ok {
		idx = map[string]map[string][]string{}
		n.indexes[index] = idx
	}
	idx[id] = fields
}
