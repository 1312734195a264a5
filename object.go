package riak

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/kailas-cloud/riak/internal/transport"
)

const vclockHeader = "X-Riak-Vclock"

// Object is a value stored under a bucket and key.
//
// Data is JSON-encoded on Store when ContentType is application/json;
// otherwise it must be a []byte or string and is sent as is.
type Object struct {
	bucket *Bucket
	key    string
	vclock string
	exists bool

	Data        any
	ContentType string

	// W and DW override the node's write quorums when non-zero.
	W  int
	DW int
}

// Key returns the object's key.
func (o *Object) Key() string { return o.key }

// Bucket returns the owning bucket.
func (o *Object) Bucket() *Bucket { return o.bucket }

// Vclock returns the last vector clock seen for this object.
func (o *Object) Vclock() string { return o.vclock }

// Exists reports whether the object was fetched or stored successfully.
func (o *Object) Exists() bool { return o.exists }

// Store writes the object. Search-enabled buckets index it as a side effect.
func (o *Object) Store(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { o.bucket.client.obs.observe(opStore, o.target(), start, err) }()

	if o.key == "" {
		return ErrMissingKey
	}
	body, ct, err := o.encode()
	if err != nil {
		return fmt.Errorf("store %s: %w", o.target(), err)
	}

	header := map[string]string{}
	if o.vclock != "" {
		header[vclockHeader] = o.vclock
	}
	tr := o.bucket.client.tr
	resp, err := tr.Do(ctx, transport.Request{
		Op:          transport.OpStoreObject,
		Method:      http.MethodPut,
		Path:        tr.BuildRestPath(o.bucket.name, o.key, o.writeParams()),
		Body:        body,
		ContentType: ct,
		Header:      header,
		Expect:      []int{http.StatusOK, http.StatusNoContent},
	})
	if err != nil {
		return fmt.Errorf("store %s: %w", o.target(), err)
	}
	if vc := resp.Header.Get(vclockHeader); vc != "" {
		o.vclock = vc
	}
	o.exists = true
	return nil
}

// Reload replaces Data, ContentType and vclock with the stored value.
// Returns ErrNotFound when the key is absent.
func (o *Object) Reload(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { o.bucket.client.obs.observe(opFetch, o.target(), start, err) }()

	if o.key == "" {
		return ErrMissingKey
	}
	tr := o.bucket.client.tr
	resp, err := tr.Do(ctx, transport.Request{
		Op:     transport.OpFetchObject,
		Method: http.MethodGet,
		Path:   tr.BuildRestPath(o.bucket.name, o.key, nil),
	})
	if err != nil {
		o.exists = false
		return fmt.Errorf("fetch %s: %w", o.target(), err)
	}

	o.ContentType = resp.Header.Get("Content-Type")
	o.vclock = resp.Header.Get(vclockHeader)
	if isJSON(o.ContentType) {
		var data any
		if err := json.Unmarshal(resp.Body, &data); err != nil {
			return fmt.Errorf("decode %s: %w", o.target(), err)
		}
		o.Data = data
	} else {
		o.Data = resp.Body
	}
	o.exists = true
	return nil
}

// Delete removes the object. Deleting a missing object is not an error.
func (o *Object) Delete(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { o.bucket.client.obs.observe(opDelete, o.target(), start, err) }()

	if o.key == "" {
		return ErrMissingKey
	}
	tr := o.bucket.client.tr
	_, err = tr.Do(ctx, transport.Request{
		Op:     transport.OpDeleteObject,
		Method: http.MethodDelete,
		Path:   tr.BuildRestPath(o.bucket.name, o.key, nil),
		Expect: []int{http.StatusOK, http.StatusNoContent, http.StatusNotFound},
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", o.target(), err)
	}
	o.exists = false
	o.vclock = ""
	return nil
}

func (o *Object) encode() ([]byte, string, error) {
	ct := o.ContentType
	if ct == "" {
		ct = "application/json"
	}
	if isJSON(ct) {
		b, err := json.Marshal(o.Data)
		if err != nil {
			return nil, "", fmt.Errorf("encode json: %w", err)
		}
		return b, ct, nil
	}
	switch d := o.Data.(type) {
	case []byte:
		return d, ct, nil
	case string:
		return []byte(d), ct, nil
	default:
		return nil, "", fmt.Errorf("content type %q needs []byte or string data, got %T", ct, o.Data)
	}
}

// writeParams always names w and dw; zero values are dropped by the path
// builder.
func (o *Object) writeParams() Params {
	p := Params{"w": "", "dw": ""}
	if o.W > 0 {
		p["w"] = strconv.Itoa(o.W)
	}
	if o.DW > 0 {
		p["dw"] = strconv.Itoa(o.DW)
	}
	return p
}

func (o *Object) target() string {
	return o.bucket.name + "/" + o.key
}

func isJSON(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	return err == nil && mt == "application/json"
}
