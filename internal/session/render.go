package session

import (
	"fmt"

	"gitchat/internal/types"
)

// Missing stands in for a field the hub has no value for.
const Missing = "───║───"

// Render turns an object into the lines show prints. Lists print one line per
// element and None prints nothing.
func Render(obj types.Object) []string {
	switch v := obj.Value.(type) {
	case types.UserInfo:
		return []string{renderUser(v)}
	case types.RepoInfo:
		return []string{renderRepo(v)}
	case types.GistInfo:
		return []string{renderGist(v)}
	case []types.UserInfo:
		out := make([]string, 0, len(v))
		for _, u := range v {
			out = append(out, renderUser(u))
		}
		return out
	case []types.RepoInfo:
		out := make([]string, 0, len(v))
		for _, r := range v {
			out = append(out, renderRepo(r))
		}
		return out
	case []types.GistInfo:
		out := make([]string, 0, len(v))
		for _, g := range v {
			out = append(out, renderGist(g))
		}
		return out
	case []types.Object:
		var out []string
		for _, e := range v {
			out = append(out, Render(e)...)
		}
		return out
	}

	switch obj.Type.Kind {
	case types.KindNone:
		return nil
	case types.KindString:
		return []string{fmt.Sprintf("%q", obj.Text())}
	}
	return []string{obj.Text()}
}

func renderUser(u types.UserInfo) string {
	return fmt.Sprintf("%s(%s) <%s>", u.Login, orMissing(u.Name), orMissing(u.Email))
}

func renderRepo(r types.RepoInfo) string {
	return fmt.Sprintf("%s's repo %s(%d)", r.Owner, r.Name, r.ID)
}

func renderGist(g types.GistInfo) string {
	return fmt.Sprintf("%s's gist id:%s", g.Owner, g.ID)
}

func orMissing(s string) string {
	if s == "" {
		return Missing
	}
	return s
}
