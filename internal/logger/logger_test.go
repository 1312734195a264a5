package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Envs(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "ci"} {
		t.Run(env, func(t *testing.T) {
			l, err := NewLogger(env)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if l == nil {
				t.Fatal("nil logger")
			}
		})
	}
}

func TestNewLogger_UnknownEnv(t *testing.T) {
	if _, err := NewLogger("staging"); err == nil {
		t.Fatal("expected error for unknown env")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug not enabled after override")
	}

	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNewCLI(t *testing.T) {
	l, err := NewCLI("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info enabled by default, want warn")
	}

	l, err = NewCLI("debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug not enabled")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("nil logger from empty context")
	}

	fallback := zap.NewExample()
	if FromContextOr(context.Background(), fallback) != fallback {
		t.Error("fallback not returned")
	}

	l := zap.NewExample()
	ctx := ContextWithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("stored logger not returned")
	}
}

func TestRequestLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	var inner *zap.Logger
	h := chiMiddleware.RequestID(RequestLog(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest("GET", "/solr/idx/select?q=*:*", http.NoBody)
	req.Header.Set("X-Riak-ClientId", "go_test")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
	if inner == nil {
		t.Fatal("handler saw no request logger")
	}

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("log lines = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("status = %v", fields["status"])
	}
	if fields["path"] != "/solr/idx/select" || fields["query"] != "q=*:*" {
		t.Errorf("path/query = %v %v", fields["path"], fields["query"])
	}
	if fields["client_id"] != "go_test" {
		t.Errorf("client_id = %v", fields["client_id"])
	}
	if fields["request_id"] == "" {
		t.Error("request_id empty")
	}
}
