package riak

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// searchEnv is what the search suite needs from a node: a client and a way
// to pick bucket names that do not collide with earlier runs.
type searchEnv struct {
	client *Client
	name   func(prefix string) string
}

const userQuery = "username:russell OR username:dizzy"

// runSearchSuite exercises the search contract end to end. It runs against
// the in-memory node in every test run and against a live node under the
// integration tag.
func runSearchSuite(t *testing.T, env searchEnv) {
	t.Helper()
	c := env.client

	searchIndex := func(t *testing.T, ctx context.Context, prefix string) string {
		t.Helper()
		name := env.name(prefix)
		require.NoError(t, c.Bucket(name).EnableSearch(ctx))
		return name
	}
	addUsers := func(t *testing.T, ctx context.Context, index string) {
		t.Helper()
		require.NoError(t, c.Solr().Add(ctx, index,
			Document{"id": "dizzy", "username": "dizzy"},
			Document{"id": "russell", "username": "russell"},
		))
	}

	t.Run("FreshBucketSearchDisabled", func(t *testing.T) {
		ctx := testContext(t)
		enabled, err := c.Bucket(env.name("unsearch_bucket")).SearchEnabled(ctx)
		require.NoError(t, err)
		assert.False(t, enabled)
	})

	t.Run("EnableSearch", func(t *testing.T) {
		ctx := testContext(t)
		name := env.name("search_bucket")
		require.NoError(t, c.Bucket(name).EnableSearch(ctx))

		enabled, err := c.Bucket(name).SearchEnabled(ctx)
		require.NoError(t, err)
		assert.True(t, enabled)
	})

	t.Run("EnableSearchIsIdempotent", func(t *testing.T) {
		ctx := testContext(t)
		b := c.Bucket(env.name("twice_bucket"))
		require.NoError(t, b.EnableSearch(ctx))
		require.NoError(t, b.EnableSearch(ctx))

		props, err := b.Properties(ctx)
		require.NoError(t, err)
		hooks := hookList(props[precommitProp])
		n := 0
		for _, h := range hooks {
			if isSearchHook(h) {
				n++
			}
		}
		assert.Equal(t, 1, n, "search hook installed %d times", n)
	})

	t.Run("DisableSearch", func(t *testing.T) {
		ctx := testContext(t)
		name := env.name("no_search_bucket")
		b := c.Bucket(name)
		require.NoError(t, b.EnableSearch(ctx))

		enabled, err := c.Bucket(name).SearchEnabled(ctx)
		require.NoError(t, err)
		require.True(t, enabled)

		require.NoError(t, b.DisableSearch(ctx))
		enabled, err = c.Bucket(name).SearchEnabled(ctx)
		require.NoError(t, err)
		assert.False(t, enabled)
	})

	t.Run("AwaitSearch", func(t *testing.T) {
		ctx := testContext(t)
		b := c.Bucket(env.name("await_bucket"))
		require.NoError(t, b.EnableSearch(ctx))
		require.NoError(t, b.AwaitSearch(ctx, true))
		require.NoError(t, b.DisableSearch(ctx))
		require.NoError(t, b.AwaitSearch(ctx, false))
	})

	t.Run("AddDocument", func(t *testing.T) {
		ctx := testContext(t)
		index := searchIndex(t, ctx, "searchbucket")
		require.NoError(t, c.Solr().Add(ctx, index, Document{"id": "doc", "username": "tony"}))

		res, err := c.Solr().Search(ctx, index, "username:tony", nil)
		require.NoError(t, err)
		require.Equal(t, 1, res.Len())
		assert.Equal(t, "tony", res.Docs[0]["username"])
		assert.Equal(t, "doc", res.Docs[0].ID())
	})

	t.Run("AddMultipleDocuments", func(t *testing.T) {
		ctx := testContext(t)
		index := searchIndex(t, ctx, "searchbucket")
		addUsers(t, ctx, index)

		res, err := c.Solr().Search(ctx, index, userQuery, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Len())
	})

	t.Run("DeleteByID", func(t *testing.T) {
		ctx := testContext(t)
		index := searchIndex(t, ctx, "searchbucket")
		addUsers(t, ctx, index)

		require.NoError(t, c.Solr().Delete(ctx, index, DeleteRequest{IDs: []string{"dizzy"}}))

		res, err := c.Solr().Search(ctx, index, userQuery, nil)
		require.NoError(t, err)
		require.Equal(t, 1, res.Len())
		assert.Equal(t, "russell", res.Docs[0]["username"])
	})

	t.Run("DeleteByQuery", func(t *testing.T) {
		ctx := testContext(t)
		index := searchIndex(t, ctx, "searchbucket")
		addUsers(t, ctx, index)

		require.NoError(t, c.Solr().Delete(ctx, index, DeleteRequest{
			Queries: []string{"username:dizzy", "username:russell"},
		}))

		res, err := c.Solr().Search(ctx, index, userQuery, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Len())
		assert.NotNil(t, res.Docs)
	})

	t.Run("DeleteByIDAndQuery", func(t *testing.T) {
		ctx := testContext(t)
		index := searchIndex(t, ctx, "searchbucket")
		addUsers(t, ctx, index)

		require.NoError(t, c.Solr().Delete(ctx, index, DeleteRequest{
			IDs:     []string{"dizzy"},
			Queries: []string{"username:russell"},
		}))

		res, err := c.Solr().Search(ctx, index, userQuery, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Len())
	})

	t.Run("EmptyDeleteIsNoop", func(t *testing.T) {
		ctx := testContext(t)
		index := searchIndex(t, ctx, "searchbucket")
		addUsers(t, ctx, index)

		require.NoError(t, c.Solr().Delete(ctx, index, DeleteRequest{}))

		res, err := c.Solr().Search(ctx, index, userQuery, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Len())
	})

	t.Run("SearchFromBucket", func(t *testing.T) {
		ctx := testContext(t)
		name := searchIndex(t, ctx, "searchbucket")
		b := c.Bucket(name)
		require.NoError(t, b.New("user", map[string]any{"username": "roidrage"}).Store(ctx))

		for _, wt := range []string{"", "json", "xml"} {
			t.Run("wt="+wt, func(t *testing.T) {
				res, err := b.Search(ctx, "username:roidrage", Params{"wt": wt})
				require.NoError(t, err)
				assert.Equal(t, 1, res.Len())
			})
		}

		res, err := c.Solr().Search(ctx, name, "username:roidrage", Params{"wt": "xml"})
		require.NoError(t, err)
		require.Equal(t, 1, res.Len())
		assert.Equal(t, "roidrage", res.Docs[0]["username"])
	})

	t.Run("SearchIntegration", func(t *testing.T) {
		ctx := testContext(t)
		name := searchIndex(t, ctx, "searchbucket")
		b := c.Bucket(name)
		for _, kv := range [][2]string{
			{"one", "red"}, {"two", "green"}, {"three", "blue"}, {"four", "orange"}, {"five", "yellow"},
		} {
			require.NoError(t, b.New(kv[0], map[string]any{"foo": kv[0], "bar": kv[1]}).Store(ctx))
		}

		res, err := c.Solr().Search(ctx, name, "foo:one OR foo:two", nil)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Len())

		q := And(
			Or(Term("foo", "one"), Term("foo", "two"), Term("foo", "three"), Term("foo", "four")),
			Not(Term("bar", "green")),
		)
		res, err = c.Solr().Query(name).Where(q).Do(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Len())
	})

	t.Run("ZeroMatchesIsNotAnError", func(t *testing.T) {
		ctx := testContext(t)
		index := searchIndex(t, ctx, "searchbucket")

		res, err := c.Solr().Search(ctx, index, "username:nobody", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, res.NumFound)
		assert.Empty(t, res.Docs)
	})
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
