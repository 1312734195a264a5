package riak

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestObject_StoreAndGet(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()
	b := c.Bucket("users")

	obj := b.New("tony", map[string]any{"username": "tony", "age": 42})
	if obj.Exists() {
		t.Error("new object reports Exists")
	}
	if err := obj.Store(ctx); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !obj.Exists() || obj.Vclock() == "" {
		t.Errorf("after store: exists=%v vclock=%q", obj.Exists(), obj.Vclock())
	}

	got, err := b.Get(ctx, "tony")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, ok := got.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want map", got.Data)
	}
	if data["username"] != "tony" || data["age"] != float64(42) {
		t.Errorf("data = %v", data)
	}
	if got.Vclock() != obj.Vclock() {
		t.Errorf("vclock = %q, want %q", got.Vclock(), obj.Vclock())
	}
	if got.Key() != "tony" || got.Bucket().Name() != "users" {
		t.Errorf("identity = %s/%s", got.Bucket().Name(), got.Key())
	}
}

func TestObject_StoreRequiresKey(t *testing.T) {
	c, _, log := newTestClient(t)
	err := c.Bucket("users").New("", "x").Store(context.Background())
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("err = %v, want ErrMissingKey", err)
	}
	if log.count() != 0 {
		t.Error("request sent for keyless object")
	}
}

func TestObject_StorePath(t *testing.T) {
	c, _, log := newTestClient(t)
	ctx := context.Background()
	obj := c.Bucket("users").New("tony", map[string]any{})

	if err := obj.Store(ctx); err != nil {
		t.Fatalf("Store: %v", err)
	}
	r := log.last()
	if r.Method != http.MethodPut || r.URL.Path != "/riak/users/tony" {
		t.Errorf("request = %s %s", r.Method, r.URL.Path)
	}
	if r.URL.RawQuery != "" {
		t.Errorf("query = %q, want none", r.URL.RawQuery)
	}
	if r.Header.Get("X-Riak-Vclock") != "" {
		t.Error("first store sent a vclock")
	}

	obj.W, obj.DW = 2, 1
	if err := obj.Store(ctx); err != nil {
		t.Fatalf("Store: %v", err)
	}
	r = log.last()
	if r.URL.RawQuery != "dw=1&w=2" {
		t.Errorf("query = %q, want dw=1&w=2", r.URL.RawQuery)
	}
	if r.Header.Get("X-Riak-Vclock") == "" {
		t.Error("update did not send the vclock")
	}
}

func TestObject_RawContent(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()
	b := c.Bucket("blobs")

	obj := b.New("greeting", "hello world")
	obj.ContentType = "text/plain"
	if err := obj.Store(ctx); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := b.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if raw, ok := got.Data.([]byte); !ok || string(raw) != "hello world" {
		t.Errorf("data = %v", got.Data)
	}
	if got.ContentType != "text/plain" {
		t.Errorf("content type = %q", got.ContentType)
	}

	bad := b.New("n", 42)
	bad.ContentType = "text/plain"
	if err := bad.Store(ctx); err == nil {
		t.Error("expected error storing int as text/plain")
	}
}

func TestObject_GetMissing(t *testing.T) {
	c, _, _ := newTestClient(t)
	_, err := c.Bucket("users").Get(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Errorf("StatusCode = %d", StatusCode(err))
	}
}

func TestObject_Delete(t *testing.T) {
	c, srv, _ := newTestClient(t)
	ctx := context.Background()
	b := c.Bucket("users")
	if err := b.EnableSearch(ctx); err != nil {
		t.Fatalf("EnableSearch: %v", err)
	}

	obj := b.New("tony", map[string]any{"username": "tony"})
	if err := obj.Store(ctx); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !srv.Node.Indexed("users", "tony") {
		t.Fatal("object not indexed")
	}

	if err := obj.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if obj.Exists() {
		t.Error("deleted object reports Exists")
	}
	if srv.Node.Indexed("users", "tony") {
		t.Error("index entry survived delete")
	}
	if _, err := b.Get(ctx, "tony"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}

	// Deleting again is fine.
	if err := obj.Delete(ctx); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestObject_StoreRejected(t *testing.T) {
	c, srv, _ := newTestClient(t)
	srv.Node.FailNext(http.StatusForbidden, "precommit hook failed")

	obj := c.Bucket("strict").New("k", map[string]any{"a": 1})
	err := obj.Store(context.Background())
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if obj.Exists() {
		t.Error("rejected object reports Exists")
	}
}

func TestObject_StoreNonObjectJSONIntoSearchBucket(t *testing.T) {
	c, srv, _ := newTestClient(t)
	ctx := context.Background()
	b := c.Bucket("loose")
	if err := b.EnableSearch(ctx); err != nil {
		t.Fatalf("EnableSearch: %v", err)
	}

	if err := b.New("list", []string{"a", "b"}).Store(ctx); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !srv.Node.Indexed("loose", "list") {
		t.Error("non-object JSON not indexed under the default field")
	}
}
