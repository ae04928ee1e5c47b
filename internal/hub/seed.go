package hub

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gitchat/internal/logging"
	"gitchat/internal/types"
)

// Fixture is the YAML seed format of a hub database.
//
//	users:
//	  - login: octocat
//	    name: The Octocat
//	    password: secret
//	    repos:
//	      - name: hello-world
//	      - name: secret-plans
//	        private: true
//	    gists: [{id: aa5a315d}]
//	    following: [hubot]
//	    starred: [hubot/linguist]
type Fixture struct {
	Users []FixtureUser `yaml:"users"`
}

// FixtureUser is one user with everything they own.
type FixtureUser struct {
	Login     string        `yaml:"login"`
	Name      string        `yaml:"name"`
	Email     string        `yaml:"email"`
	Password  string        `yaml:"password"`
	Repos     []FixtureRepo `yaml:"repos"`
	Gists     []FixtureGist `yaml:"gists"`
	Following []string      `yaml:"following"`
	Starred   []string      `yaml:"starred"`
}

// FixtureRepo is a repository of a FixtureUser.
type FixtureRepo struct {
	Name        string `yaml:"name"`
	Private     bool   `yaml:"private"`
	Description string `yaml:"description"`
}

// FixtureGist is a gist of a FixtureUser.
type FixtureGist struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

// Seed writes f into the database. Users and their objects go first so that
// follow and star relations can refer to users defined later in the file.
func (h *DB) Seed(ctx context.Context, f *Fixture) error {
	for _, u := range f.Users {
		if u.Login == "" {
			return fmt.Errorf("fixture user without login")
		}
		if err := h.AddUser(ctx, types.UserInfo{Login: u.Login, Name: u.Name, Email: u.Email}, u.Password); err != nil {
			return err
		}
		for _, r := range u.Repos {
			if _, err := h.AddRepo(ctx, types.RepoInfo{Owner: u.Login, Name: r.Name, Private: r.Private, Description: r.Description}); err != nil {
				return err
			}
		}
		for _, g := range u.Gists {
			if err := h.AddGist(ctx, types.GistInfo{ID: g.ID, Owner: u.Login, Description: g.Description}); err != nil {
				return err
			}
		}
	}

	for _, u := range f.Users {
		for _, other := range u.Following {
			if err := h.Follow(ctx, u.Login, other); err != nil {
				return err
			}
		}
		for _, full := range u.Starred {
			owner, name, ok := strings.Cut(full, "/")
			if !ok {
				return fmt.Errorf("starred repo %q of %s is not owner/name", full, u.Login)
			}
			if err := h.Star(ctx, u.Login, owner, name); err != nil {
				return err
			}
		}
	}
	logging.Hub("seeded %d users", len(f.Users))
	return nil
}
