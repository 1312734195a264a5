package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/riak"
	"github.com/kailas-cloud/riak/riaktest"
)

// run executes the command tree against url and returns stdout.
func run(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--url", url}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestPingAndVersion(t *testing.T) {
	srv := riaktest.NewServer()
	defer srv.Close()

	out, err := run(t, srv.URL, "ping")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	out, err = run(t, srv.URL, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "riak-search dev"), out)
}

func TestPing_Unreachable(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1", "ping", "--timeout", "200ms")
	require.Error(t, err)
	assert.ErrorIs(t, err, riak.ErrTransport)
}

func TestEnableStatusDisable(t *testing.T) {
	srv := riaktest.NewServer()
	defer srv.Close()

	out, err := run(t, srv.URL, "status", "people")
	require.NoError(t, err)
	assert.Equal(t, "people: search disabled\n", out)

	out, err = run(t, srv.URL, "enable", "people")
	require.NoError(t, err)
	assert.Equal(t, "search enabled on people\n", out)

	out, err = run(t, srv.URL, "status", "people", "--wait", "enabled")
	require.NoError(t, err)
	assert.Equal(t, "people: search enabled\n", out)

	_, err = run(t, srv.URL, "disable", "people")
	require.NoError(t, err)

	out, err = run(t, srv.URL, "status", "people")
	require.NoError(t, err)
	assert.Equal(t, "people: search disabled\n", out)

	_, err = run(t, srv.URL, "status", "people", "--wait", "maybe")
	require.Error(t, err)
}

func TestAddSearchDelete(t *testing.T) {
	srv := riaktest.NewServer()
	defer srv.Close()

	out, err := run(t, srv.URL, "add", "people",
		`{"id":"tony","name":"Tony Stark","age":48}`,
		`{"id":"pepper","name":"Pepper Potts","age":44}`)
	require.NoError(t, err)
	assert.Equal(t, "added 2 document(s) to people\n", out)
	assert.Equal(t, 2, srv.Node.IndexSize("people"))

	out, err = run(t, srv.URL, "search", "people", "name:tony OR name:pepper", "--sort", "age", "--fl", "id,age")
	require.NoError(t, err)

	var res struct {
		NumFound int              `json:"num_found"`
		Docs     []map[string]any `json:"docs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.NumFound)
	require.Len(t, res.Docs, 2)
	assert.Equal(t, "pepper", res.Docs[0]["id"])

	_, err = run(t, srv.URL, "delete", "people", "--id", "tony")
	require.NoError(t, err)
	assert.False(t, srv.Node.Indexed("people", "tony"))
	assert.True(t, srv.Node.Indexed("people", "pepper"))

	_, err = run(t, srv.URL, "delete", "people", "--query", "name:pepper")
	require.NoError(t, err)
	assert.Equal(t, 0, srv.Node.IndexSize("people"))
}

func TestAdd_Errors(t *testing.T) {
	srv := riaktest.NewServer()
	defer srv.Close()

	_, err := run(t, srv.URL, "add", "people", `{"name":"no id"}`)
	assert.ErrorIs(t, err, riak.ErrInvalidDocument)

	_, err = run(t, srv.URL, "add", "people", `not json`)
	require.Error(t, err)

	_, err = run(t, srv.URL, "delete", "people")
	require.Error(t, err)
}

func TestPutGetRemove(t *testing.T) {
	srv := riaktest.NewServer()
	defer srv.Close()

	_, err := run(t, srv.URL, "enable", "people")
	require.NoError(t, err)

	out, err := run(t, srv.URL, "put", "people", "tony", `{"name":"Tony Stark"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "stored people/tony")
	assert.True(t, srv.Node.Indexed("people", "tony"))

	out, err = run(t, srv.URL, "get", "people", "tony")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Tony Stark"}`, out)

	_, err = run(t, srv.URL, "put", "notes", "n1", "hello", "--content-type", "text/plain")
	require.NoError(t, err)
	out, err = run(t, srv.URL, "get", "notes", "n1")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	_, err = run(t, srv.URL, "rm", "people", "tony")
	require.NoError(t, err)
	assert.False(t, srv.Node.Indexed("people", "tony"))

	_, err = run(t, srv.URL, "get", "people", "tony")
	assert.True(t, errors.Is(err, riak.ErrNotFound), "err = %v", err)

	_, err = run(t, srv.URL, "put", "people", "bad", `{broken`)
	require.Error(t, err)
}

func TestConfigFileAndAuth(t *testing.T) {
	srv := riaktest.NewServer(riaktest.WithBasicAuth("admin", "secret"))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "cli.yaml")
	yaml := "node:\n  url: " + srv.URL + "\n  username: admin\n  password: secret\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "status", "people"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "people: search disabled\n", out.String())

	_, err := run(t, srv.URL, "status", "people")
	require.Error(t, err)
	assert.Equal(t, 401, riak.StatusCode(err))
}

func TestInvalidFlags(t *testing.T) {
	_, err := run(t, "ftp://nowhere", "ping")
	require.Error(t, err)

	_, err = run(t, "http://127.0.0.1:8098", "ping", "--log-level", "loud")
	require.Error(t, err)
}
