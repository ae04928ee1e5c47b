package session

import (
	"context"
	"strings"

	"gitchat/internal/hub"
	"gitchat/internal/resolve"
	"gitchat/internal/types"
)

// NewRegistry builds the noun registry of the hosting service on top of h.
//
// Registration order inside a shell is the tie-break order of the selector,
// so the cheaper-to-describe functions come first.
func NewRegistry(h hub.Hub) *resolve.Registry {
	r := resolve.NewRegistry()
	user := func(args []interface{}, i int) string { return args[i].(types.UserInfo).Login }
	str := func(args []interface{}, i int) string { return args[i].(string) }

	// repo
	r.AddShell("repo", nil,
		call("repos", types.ListOf(types.Repo), []types.Tag{types.User}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.Repos(ctx, user(args, 0))
		}),
		call("reposOf", types.ListOf(types.Repo), []types.Tag{types.String}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.Repos(ctx, str(args, 0))
		}),
		call("repo", types.Repo, []types.Tag{types.User, types.String}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.Repo(ctx, user(args, 0), str(args, 1))
		}),
	)
	r.AddShell("repo", []string{"private"},
		call("privateRepos", types.ListOf(types.Repo), []types.Tag{types.User}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.PrivateRepos(ctx, user(args, 0))
		}),
		call("privateReposOf", types.ListOf(types.Repo), []types.Tag{types.String}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.PrivateRepos(ctx, str(args, 0))
		}),
	)
	r.AddShell("repo", []string{"starred"},
		call("starred", types.ListOf(types.Repo), []types.Tag{types.User}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.Starred(ctx, user(args, 0))
		}),
		call("starredOf", types.ListOf(types.Repo), []types.Tag{types.String}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.Starred(ctx, str(args, 0))
		}),
	)

	// user
	r.AddShell("user", nil,
		call("user", types.User, []types.Tag{types.String}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.User(ctx, str(args, 0))
		}),
		call("me", types.User, nil, func(ctx context.Context, _ []interface{}) (interface{}, error) {
			return h.Me(ctx)
		}),
	)
	r.AddShell("me", nil,
		call("me", types.User, nil, func(ctx context.Context, _ []interface{}) (interface{}, error) {
			return h.Me(ctx)
		}),
	)

	// gist
	r.AddShell("gist", nil,
		call("gists", types.ListOf(types.Gist), []types.Tag{types.User}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.Gists(ctx, user(args, 0))
		}),
		call("gistsOf", types.ListOf(types.Gist), []types.Tag{types.String}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.Gists(ctx, str(args, 0))
		}),
	)

	// follower, following
	r.AddShell("follower", nil,
		call("followers", types.ListOf(types.User), []types.Tag{types.User}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.Followers(ctx, user(args, 0))
		}),
		call("followersOf", types.ListOf(types.User), []types.Tag{types.String}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.Followers(ctx, str(args, 0))
		}),
	)
	r.AddShell("following", nil,
		call("following", types.ListOf(types.User), []types.Tag{types.User}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.Following(ctx, user(args, 0))
		}),
		call("followingOf", types.ListOf(types.User), []types.Tag{types.String}, func(ctx context.Context, args []interface{}) (interface{}, error) {
			return h.Following(ctx, str(args, 0))
		}),
	)

	// Typed literals: "user octocat", "repo octocat/hello-world", "gist aa5a315d".
	r.AddConstructor("user", call("newUser", types.User, []types.Tag{types.String}, func(ctx context.Context, args []interface{}) (interface{}, error) {
		return h.User(ctx, str(args, 0))
	}))
	r.AddConstructor("repo", call("newRepo", types.Repo, []types.Tag{types.String}, func(ctx context.Context, args []interface{}) (interface{}, error) {
		owner, name, ok := strings.Cut(str(args, 0), "/")
		if !ok {
			me, err := h.Me(ctx)
			if err != nil {
				return nil, err
			}
			owner, name = me.Login, str(args, 0)
		}
		return h.Repo(ctx, owner, name)
	}))
	r.AddConstructor("gist", call("newGist", types.Gist, []types.Tag{types.String}, func(ctx context.Context, args []interface{}) (interface{}, error) {
		return h.Gist(ctx, str(args, 0))
	}))
	return r
}

func call(name string, result types.Tag, params []types.Tag, invoke func(context.Context, []interface{}) (interface{}, error)) *resolve.Function {
	return &resolve.Function{Name: name, Params: params, Result: result, Invoke: invoke}
}
