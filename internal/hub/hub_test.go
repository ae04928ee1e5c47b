package hub

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitchat/internal/types"
)

const fixtureYAML = `
users:
  - login: octocat
    name: The Octocat
    email: octocat@example.com
    password: secret
    repos:
      - name: hello-world
      - name: secret-plans
        private: true
    gists:
      - id: aa5a315d
        description: snippets
    following: [hubot]
    starred: [hubot/linguist, octocat/secret-plans]
  - login: hubot
    password: beep
    repos:
      - name: linguist
      - name: hidden
        private: true
    following: [octocat]
    starred: [octocat/hello-world]
  - login: ghost
`

func seeded(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0644))

	f, err := LoadFixture(path)
	require.NoError(t, err)

	db, err := Open(filepath.Join(dir, "data", "hub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Seed(context.Background(), f))
	return db
}

func names(repos []types.RepoInfo) []string {
	var out []string
	for _, r := range repos {
		out = append(out, r.FullName())
	}
	return out
}

func logins(users []types.UserInfo) []string {
	var out []string
	for _, u := range users {
		out = append(out, u.Login)
	}
	return out
}

func TestAuthenticate(t *testing.T) {
	c := NewClient(seeded(t))
	ctx := context.Background()

	_, ok := c.Authorised()
	assert.False(t, ok)
	_, err := c.Me(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Authenticate(ctx, "octocat", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = c.Authenticate(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = c.Authenticate(ctx, "ghost", "")
	assert.ErrorIs(t, err, ErrBadCredentials, "users without password cannot log in")

	u, err := c.Authenticate(ctx, "octocat", "secret")
	require.NoError(t, err)
	assert.Equal(t, types.UserInfo{Login: "octocat", Name: "The Octocat", Email: "octocat@example.com"}, u)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, u, me)

	c.Logout()
	_, ok = c.Authorised()
	assert.False(t, ok)
}

func TestRepoVisibility(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()
	anon := NewClient(db)
	owner := NewClient(db)
	_, err := owner.Authenticate(ctx, "octocat", "secret")
	require.NoError(t, err)

	repos, err := anon.Repos(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, []string{"octocat/hello-world"}, names(repos))

	repos, err = owner.Repos(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, []string{"octocat/hello-world", "octocat/secret-plans"}, names(repos))

	repos, err = owner.PrivateRepos(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, []string{"octocat/secret-plans"}, names(repos))
	assert.True(t, repos[0].Private)

	_, err = anon.PrivateRepos(ctx, "octocat")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = owner.PrivateRepos(ctx, "hubot")
	var forbidden *ForbiddenError
	require.True(t, errors.As(err, &forbidden))
	assert.Contains(t, forbidden.Message, "hubot")

	_, err = anon.Repo(ctx, "octocat", "secret-plans")
	assert.ErrorIs(t, err, ErrNotFound)
	r, err := owner.Repo(ctx, "octocat", "secret-plans")
	require.NoError(t, err)
	assert.NotZero(t, r.ID)

	_, err = anon.Repos(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRelations(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()
	c := NewClient(db)

	followers, err := c.Followers(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, []string{"hubot"}, logins(followers))

	following, err := c.Following(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, []string{"hubot"}, logins(following))

	followers, err = c.Followers(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, followers)

	starred, err := c.Starred(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, []string{"hubot/linguist"}, names(starred), "private stars hidden from others")

	_, err = c.Authenticate(ctx, "octocat", "secret")
	require.NoError(t, err)
	starred, err = c.Starred(ctx, "octocat")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hubot/linguist", "octocat/secret-plans"}, names(starred))
}

func TestGists(t *testing.T) {
	c := NewClient(seeded(t))
	ctx := context.Background()

	gists, err := c.Gists(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, []types.GistInfo{{ID: "aa5a315d", Owner: "octocat", Description: "snippets"}}, gists)

	g, err := c.Gist(ctx, "aa5a315d")
	require.NoError(t, err)
	assert.Equal(t, "octocat", g.Owner)

	_, err = c.Gist(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsersAndReseed(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()

	users, err := db.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost", "hubot", "octocat"}, logins(users))

	// Seeding twice is idempotent.
	f, err := LoadFixture(writeFixture(t, fixtureYAML))
	require.NoError(t, err)
	require.NoError(t, db.Seed(ctx, f))
	repos, err := NewClient(db).Repos(ctx, "hubot")
	require.NoError(t, err)
	assert.Equal(t, []string{"hubot/linguist"}, names(repos))
}

func TestSeedErrors(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	assert.Error(t, db.Seed(ctx, &Fixture{Users: []FixtureUser{{Name: "no login"}}}))
	assert.Error(t, db.Seed(ctx, &Fixture{Users: []FixtureUser{{Login: "a", Starred: []string{"nope"}}}}))
	assert.Error(t, db.Seed(ctx, &Fixture{Users: []FixtureUser{{Login: "b", Starred: []string{"a/missing"}}}}))

	_, err = LoadFixture(writeFixture(t, "users: ["))
	assert.Error(t, err)
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
