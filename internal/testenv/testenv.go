// Package testenv gates test groups that need a live Riak node.
package testenv

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from the environment without a prefix.
//
//	SKIP_SEARCH=1 RIAK_TEST_URL=http://127.0.0.1:8098 go test -tags integration ./...
type Config struct {
	// SkipSearch disables every test that exercises search on a live node.
	SkipSearch bool `envconfig:"SKIP_SEARCH" default:"false"`
	// RiakURL points the live suite at a node. Empty means no live node.
	RiakURL string `envconfig:"RIAK_TEST_URL"`
	// Username and Password are sent as basic auth when set.
	Username string `envconfig:"RIAK_TEST_USERNAME"`
	Password string `envconfig:"RIAK_TEST_PASSWORD"`
}

// Load reads Config from the environment.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("testenv: %w", err)
	}
	return c, nil
}

// RequireSearch loads Config and skips t when SKIP_SEARCH is set.
func RequireSearch(t testing.TB) Config {
	t.Helper()
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.SkipSearch {
		t.Skip("SKIP_SEARCH is defined")
	}
	return c
}

// RequireLiveNode loads Config and skips t when no node is configured.
func RequireLiveNode(t testing.TB) Config {
	t.Helper()
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.RiakURL == "" {
		t.Skip("RIAK_TEST_URL is not set")
	}
	return c
}

// UniqueName returns prefix plus a random suffix, for fixture buckets that
// must not collide across runs against a shared node.
func UniqueName(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}
