// Package hub is the repository-hosting domain API the resolved functions
// call into.
//
// A DB holds users, repositories, gists, follow and star relations and is
// shared by every session. A Client is one session's authenticated view of a
// DB; it carries the login state and enforces visibility of private data.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gitchat/internal/logging"
	"gitchat/internal/types"
)

var (
	// ErrNotFound is returned when the requested object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when an operation needs a logged-in caller.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBadCredentials is returned by Authenticate on a wrong login or password.
	ErrBadCredentials = errors.New("incorrect login or password")
)

// ForbiddenError is returned when the caller may not see the requested data.
// Its message is meant to be shown to the user verbatim.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// Hub is one session's view of the hosting service.
type Hub interface {
	Authenticate(ctx context.Context, login, password string) (types.UserInfo, error)
	Logout()
	Authorised() (types.UserInfo, bool)

	Me(ctx context.Context) (types.UserInfo, error)
	User(ctx context.Context, login string) (types.UserInfo, error)
	Repos(ctx context.Context, owner string) ([]types.RepoInfo, error)
	PrivateRepos(ctx context.Context, owner string) ([]types.RepoInfo, error)
	Repo(ctx context.Context, owner, name string) (types.RepoInfo, error)
	Gists(ctx context.Context, owner string) ([]types.GistInfo, error)
	Gist(ctx context.Context, id string) (types.GistInfo, error)
	Followers(ctx context.Context, login string) ([]types.UserInfo, error)
	Following(ctx context.Context, login string) ([]types.UserInfo, error)
	Starred(ctx context.Context, login string) ([]types.RepoInfo, error)
}

// Client implements Hub over a shared DB. Each session owns its Client.
type Client struct {
	db *DB

	mu     sync.RWMutex
	viewer *types.UserInfo
}

var _ Hub = (*Client)(nil)

// NewClient returns a logged-out client.
func NewClient(db *DB) *Client {
	return &Client{db: db}
}

// Authenticate checks the credentials and logs the client in.
func (c *Client) Authenticate(ctx context.Context, login, password string) (types.UserInfo, error) {
	u, err := c.db.checkPassword(ctx, login, password)
	if err != nil {
		c.Logout()
		return types.UserInfo{}, err
	}
	c.mu.Lock()
	c.viewer = &u
	c.mu.Unlock()
	logging.Hub("authenticated %s", u.Login)
	return u, nil
}

// Logout forgets the authenticated user.
func (c *Client) Logout() {
	c.mu.Lock()
	c.viewer = nil
	c.mu.Unlock()
}

// Authorised returns the authenticated user.
func (c *Client) Authorised() (types.UserInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.viewer == nil {
		return types.UserInfo{}, false
	}
	return *c.viewer, true
}

func (c *Client) viewerLogin() string {
	if u, ok := c.Authorised(); ok {
		return u.Login
	}
	return ""
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (types.UserInfo, error) {
	u, ok := c.Authorised()
	if !ok {
		return types.UserInfo{}, ErrUnauthorized
	}
	return c.db.user(ctx, u.Login)
}

func (c *Client) User(ctx context.Context, login string) (types.UserInfo, error) {
	return c.db.user(ctx, login)
}

// Repos lists the repositories of owner the caller can see: public ones, plus
// private ones when the caller is the owner.
func (c *Client) Repos(ctx context.Context, owner string) ([]types.RepoInfo, error) {
	if _, err := c.db.user(ctx, owner); err != nil {
		return nil, err
	}
	return c.db.repos(ctx, owner, c.viewerLogin() == owner, false)
}

// PrivateRepos lists only the private repositories of owner. Only the owner
// may list them.
func (c *Client) PrivateRepos(ctx context.Context, owner string) ([]types.RepoInfo, error) {
	viewer := c.viewerLogin()
	if viewer == "" {
		return nil, ErrUnauthorized
	}
	if viewer != owner {
		return nil, &ForbiddenError{Message: fmt.Sprintf("private repositories of %s are not visible to %s", owner, viewer)}
	}
	return c.db.repos(ctx, owner, true, true)
}

func (c *Client) Repo(ctx context.Context, owner, name string) (types.RepoInfo, error) {
	r, err := c.db.repo(ctx, owner, name)
	if err != nil {
		return types.RepoInfo{}, err
	}
	if r.Private && c.viewerLogin() != owner {
		// Private repositories of others are indistinguishable from missing ones.
		return types.RepoInfo{}, ErrNotFound
	}
	return r, nil
}

func (c *Client) Gists(ctx context.Context, owner string) ([]types.GistInfo, error) {
	if _, err := c.db.user(ctx, owner); err != nil {
		return nil, err
	}
	return c.db.gists(ctx, owner)
}

func (c *Client) Gist(ctx context.Context, id string) (types.GistInfo, error) {
	return c.db.gist(ctx, id)
}

func (c *Client) Followers(ctx context.Context, login string) ([]types.UserInfo, error) {
	if _, err := c.db.user(ctx, login); err != nil {
		return nil, err
	}
	return c.db.followers(ctx, login)
}

func (c *Client) Following(ctx context.Context, login string) ([]types.UserInfo, error) {
	if _, err := c.db.user(ctx, login); err != nil {
		return nil, err
	}
	return c.db.following(ctx, login)
}

// Starred lists the repositories login starred that the caller can see.
func (c *Client) Starred(ctx context.Context, login string) ([]types.RepoInfo, error) {
	if _, err := c.db.user(ctx, login); err != nil {
		return nil, err
	}
	return c.db.starred(ctx, login, c.viewerLogin())
}
