package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitchat/internal/hub"
	"gitchat/internal/perception"
)

const octocatScript = `
# octocat looks at their own repos
login ||| (ROOT (S (VP (VB login))))
octocat
secret
store me ||| (ROOT (S (VP (VB store) (NP (PRP me)))))
my repos ||| (ROOT (NP (PRP$ my) (NNS repos)))
bye ||| (ROOT (S (VP (VB bye))))
`

const hubotScript = `
login ||| (ROOT (S (VP (VB login))))
hubot
beep
store me ||| (ROOT (S (VP (VB store) (NP (PRP me)))))
my repos ||| (ROOT (NP (PRP$ my) (NNS repos)))
`

func TestReadJob(t *testing.T) {
	job, err := ReadJob("octocat", strings.NewReader(octocatScript))
	require.NoError(t, err)
	assert.Equal(t, []string{"login", "octocat", "secret", "store me", "my repos", "bye"}, job.Lines)
	assert.Len(t, job.Trees, 4)
	assert.Equal(t, "(ROOT (NP (PRP$ my) (NNS repos)))", job.Trees["my repos"])

	_, err = ReadJob("bad", strings.NewReader("hello |||"))
	assert.Error(t, err)
}

func factoryOver(db *hub.DB) Factory {
	return func(_ context.Context, job Job, console Console) (*Session, error) {
		parser := &perception.CannedParser{Trees: job.Trees, Fallback: perception.BracketParser{}}
		return New(DefaultConfig(), perception.NewTreeTransducer(parser, nil, ""), hub.NewClient(db), console), nil
	}
}

func TestRunBatch_IndependentSessions(t *testing.T) {
	db := openDB(t)
	var jobs []Job
	for i := 0; i < 4; i++ {
		script, name := octocatScript, "octocat"
		if i%2 == 1 {
			script, name = hubotScript, "hubot"
		}
		job, err := ReadJob(fmt.Sprintf("%s-%d", name, i), strings.NewReader(script))
		require.NoError(t, err)
		jobs = append(jobs, job)
	}

	results, err := RunBatch(context.Background(), jobs, factoryOver(db), 2)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, jobs[i].Name, r.Name)
		if i%2 == 0 {
			assert.Equal(t, bot(
				"hello", "enter your login for github", "enter password", "I remember it",
				"octocat's repo hello-world(1)", "octocat's repo secret-plans(2)", "bye",
			), r.Output)
		} else {
			assert.Equal(t, bot(
				"hello", "enter your login for github", "enter password", "I remember it",
				"hubot's repo linguist(3)", "hubot's repo hidden(4)",
			), r.Output)
		}
	}
}

func TestRunBatch_FactoryErrorStopsBatch(t *testing.T) {
	boom := errors.New("no parser")
	factory := func(context.Context, Job, Console) (*Session, error) { return nil, boom }

	_, err := RunBatch(context.Background(), []Job{{Name: "a"}, {Name: "b"}}, factory, 0)
	assert.ErrorIs(t, err, boom)
}

func TestRunBatch_RecordsSessionFailure(t *testing.T) {
	db := openDB(t)
	factory := func(_ context.Context, job Job, console Console) (*Session, error) {
		parser := &perception.CannedParser{Trees: job.Trees}
		return New(DefaultConfig(), perception.NewTreeTransducer(parser, nil, ""), brokenHub{hub.NewClient(db)}, console), nil
	}
	job, err := ReadJob("broken", strings.NewReader(octocatScript))
	require.NoError(t, err)

	results, err := RunBatch(context.Background(), []Job{job}, factory, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorContains(t, results[0].Err, "disk on fire")
}
