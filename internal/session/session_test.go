package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gitchat/internal/hub"
	"gitchat/internal/perception"
	"gitchat/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixture = &hub.Fixture{Users: []hub.FixtureUser{
	{
		Login: "octocat", Name: "The Octocat", Email: "octocat@example.com", Password: "secret",
		Repos:     []hub.FixtureRepo{{Name: "hello-world"}, {Name: "secret-plans", Private: true}},
		Gists:     []hub.FixtureGist{{ID: "aa5a315d"}},
		Following: []string{"hubot"},
	},
	{
		Login: "hubot", Password: "beep",
		Repos:     []hub.FixtureRepo{{Name: "linguist"}, {Name: "hidden", Private: true}},
		Following: []string{"octocat"},
	},
}}

// trees are the parses of every line the tests type.
var trees = map[string]string{
	"hello":                      "(ROOT (S (VP (VB hello))))",
	"hi":                         "(ROOT (S (VP (VB hi))))",
	"bye":                        "(ROOT (S (VP (VB bye))))",
	"login":                      "(ROOT (S (VP (VB login))))",
	"logout":                     "(ROOT (S (VP (VB logout))))",
	"log in":                     "(ROOT (S (VP (VB log) (NP (NN in)))))",
	"what":                       "(ROOT (SBARQ (WHNP (WP what))))",
	"store me":                   "(ROOT (S (VP (VB store) (NP (PRP me)))))",
	"show my repos":              "(ROOT (S (VP (VB show) (NP (PRP$ my) (NNS repos)))))",
	"my gists":                   "(ROOT (NP (PRP$ my) (NNS gists)))",
	"show my private repos":      "(ROOT (S (VP (VB show) (NP (PRP$ my) (JJ private) (NNS repos)))))",
	"show hubot's repos":         "(ROOT (S (VP (VB show) (NP (NP (NNP hubot) (POS 's)) (NNS repos)))))",
	"show hubot's private repos": "(ROOT (S (VP (VB show) (NP (NP (NNP hubot) (POS 's)) (JJ private) (NNS repos)))))",
	"show user octocat":          "(ROOT (S (VP (VB show) (NP (NN user) (NN octocat)))))",
	"show user hubot":            "(ROOT (S (VP (VB show) (NP (NN user) (NN hubot)))))",
	"show user nobody":           "(ROOT (S (VP (VB show) (NP (NN user) (NN nobody)))))",
	"show hello":                 "(ROOT (S (VP (VB show) (NP (NN hello)))))",
	"store octocat's followers":  "(ROOT (S (VP (VB store) (NP (NP (NNP octocat) (POS 's)) (NNS followers)))))",
}

func openDB(t *testing.T) *hub.DB {
	t.Helper()
	db, err := hub.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Seed(context.Background(), fixture))
	return db
}

func transducer() perception.Transducer {
	return perception.NewTreeTransducer(&perception.CannedParser{Trees: trees}, nil, "")
}

// chat runs a session over lines and returns everything it printed.
func chat(t *testing.T, h hub.Hub, lines ...string) ([]string, error) {
	t.Helper()
	console := NewScript(lines...)
	err := New(DefaultConfig(), transducer(), h, console).Run(context.Background())
	return console.Output(), err
}

func bot(lines ...string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, "   gitchat"+separator+l)
	}
	return out
}

func TestFormatNick(t *testing.T) {
	assert.Equal(t, "       you", FormatNick("you", 10))
	assert.Equal(t, "octocat123", FormatNick("octocat123", 10))
	assert.Equal(t, "octocat...", FormatNick("octocat1234", 10))
}

func TestSession_GreetingAndBye(t *testing.T) {
	out, err := chat(t, hub.NewClient(openDB(t)), "hi", "what", "", "bye", "hello")
	require.NoError(t, err)
	if diff := cmp.Diff(bot("hello", "=)", "bye"), out); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_EndOfInput(t *testing.T) {
	out, err := chat(t, hub.NewClient(openDB(t)))
	require.NoError(t, err)
	assert.Equal(t, bot("hello"), out)
}

func TestSession_LoginStoreShow(t *testing.T) {
	out, err := chat(t, hub.NewClient(openDB(t)),
		"login", "octocat", "secret",
		"login",
		"store me",
		"show my repos",
		"show my private repos",
		"show hubot's private repos",
		"my gists",
		"logout",
		"show my private repos",
	)
	require.NoError(t, err)

	want := bot(
		"hello",
		"enter your login for github",
		"enter password",
		"logout before you login again",
		"I remember it",
		"octocat's repo hello-world(1)",
		"octocat's repo secret-plans(2)",
		"octocat's repo secret-plans(2)",
		"private repositories of hubot are not visible to octocat",
		"octocat's gist id:aa5a315d",
		"I don't know who are you",
	)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_LogInSplitVerb(t *testing.T) {
	h := hub.NewClient(openDB(t))
	out, err := chat(t, h, "log in", "hubot", "wrong")
	require.NoError(t, err)
	assert.Equal(t, bot("hello", "enter your login for github", "enter password", "incorrect login or password"), out)
	_, ok := h.Authorised()
	assert.False(t, ok)
}

func TestSession_AnonymousQueries(t *testing.T) {
	out, err := chat(t, hub.NewClient(openDB(t)),
		"show hubot's repos",
		"show user octocat",
		"show user hubot",
		"show user nobody",
		"show my repos",
		"show hello",
		"store octocat's followers",
		"store me",
	)
	require.NoError(t, err)

	want := bot(
		"hello",
		"hubot's repo linguist(3)",
		"octocat(The Octocat) <octocat@example.com>",
		"hubot(───║───) <───║───>",
		"User not found",
		`"repos"`,
		"=)",
		"I can not remember list<user>",
		"I don't know who are you",
	)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_LoginPromptEOF(t *testing.T) {
	out, err := chat(t, hub.NewClient(openDB(t)), "login", "octocat")
	require.NoError(t, err)
	assert.Equal(t, bot("hello", "enter your login for github", "enter password"), out)
}

type brokenHub struct {
	hub.Hub
}

func (brokenHub) Repos(context.Context, string) ([]types.RepoInfo, error) {
	return nil, errors.New("disk on fire")
}

func TestSession_FatalHubError(t *testing.T) {
	db := openDB(t)
	s := New(DefaultConfig(), transducer(), brokenHub{hub.NewClient(db)}, NewScript())
	require.NoError(t, s.Dispatcher().Store().Set(types.Wrap(types.User, types.UserInfo{Login: "octocat"})))

	err := s.Handle(context.Background(), "show my repos")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Contains(t, err.Error(), "repos")
}

func TestSession_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	console := NewScript("hello")
	err := New(DefaultConfig(), transducer(), hub.NewClient(openDB(t)), console).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessions_DoNotShareState(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	a := New(DefaultConfig(), transducer(), hub.NewClient(db), NewScript("octocat", "secret"))
	b := New(DefaultConfig(), transducer(), hub.NewClient(db), NewScript())

	require.NoError(t, a.Handle(ctx, "login"))
	require.NoError(t, a.Handle(ctx, "store me"))

	assert.True(t, a.Dispatcher().Store().Has(types.User))
	assert.False(t, b.Dispatcher().Store().Has(types.User))
	assert.NotEqual(t, a.ID(), b.ID())
	assert.True(t, strings.HasSuffix(a.prompt(), "octocat"+separator))
	assert.True(t, strings.HasSuffix(b.prompt(), "you"+separator))
}

func TestRender(t *testing.T) {
	assert.Empty(t, Render(types.Null()))
	assert.Equal(t, []string{"42"}, Render(types.Literal("42")))
	assert.Equal(t, []string{`"x"`}, Render(types.Literal("x")))
	assert.Equal(t,
		[]string{"a's gist id:1", "b's gist id:2"},
		Render(types.Wrap(types.ListOf(types.Gist), []types.GistInfo{{ID: "1", Owner: "a"}, {ID: "2", Owner: "b"}})),
	)
	assert.Equal(t, []string{"ghost(Ghost) <───║───>"}, Render(types.Wrap(types.User, types.UserInfo{Login: "ghost", Name: "Ghost"})))
}
