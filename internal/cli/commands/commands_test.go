package commands

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/cascade/internal/feed"
	"github.com/conduit-lang/cascade/internal/journal"
	"github.com/conduit-lang/cascade/internal/kanban"
	"github.com/conduit-lang/cascade/internal/stream"
)

func testOptions() *rootOptions {
	return &rootOptions{
		confirm: func(string) (bool, error) { return true, nil },
		input:   func(string, string) (string, error) { return "", errors.New("no prompt in tests") },
	}
}

func execute(t *testing.T, opts *rootOptions, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CASCADE_LOG_FORMAT", "nop")

	cmd := newRootCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "cascade", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"version", "describe", "demo", "serve", "token", "journal"} {
		assert.Contains(t, names, expected)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	defer func() {
		Version = "dev"
		GitCommit = "unknown"
	}()

	out, err := execute(t, testOptions(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Cascade version: 1.0.0-test")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "go")
}

func TestRoot_MissingConfigFile(t *testing.T) {
	_, err := execute(t, testOptions(), "describe", "--config", filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestDescribe(t *testing.T) {
	out, err := execute(t, testOptions(), "describe")
	require.NoError(t, err)

	assert.Contains(t, out, "Kind")
	assert.Contains(t, out, "columns")
	assert.Contains(t, out, "owner")
	assert.Contains(t, out, "cards")
	assert.Contains(t, out, "assignee")
	assert.Contains(t, out, "person")
}

func TestDescribe_SingleKind(t *testing.T) {
	out, err := execute(t, testOptions(), "describe", "column")
	require.NoError(t, err)

	assert.Contains(t, out, "cards")
	assert.NotContains(t, out, "owner")
}

func TestDescribe_UnknownKind(t *testing.T) {
	_, err := execute(t, testOptions(), "describe", "colum")
	require.Error(t, err)

	var hint *hintError
	require.ErrorAs(t, err, &hint)
	assert.Equal(t, "colum", hint.problem)
	assert.Equal(t, []string{"column"}, hint.suggestions)
	assert.Equal(t, "unknown kind: colum", err.Error())
}

func TestDemo(t *testing.T) {
	out, err := execute(t, testOptions(), "demo")
	require.NoError(t, err)

	assert.Contains(t, out, "Roadmap: 11 steps")
	for _, typ := range []feed.Type{feed.BeforeUpdated, feed.Updated, feed.ItemAdded, feed.ItemRemoved, feed.PositionChanged, feed.ActiveChanged} {
		assert.Contains(t, out, string(typ))
	}
	assert.Contains(t, out, `title: "Write docs" → "Write the docs"`)
	assert.Contains(t, out, "rename card")
	assert.Contains(t, out, "hand over board")
}

func TestDemo_WithoutBefore(t *testing.T) {
	out, err := execute(t, testOptions(), "demo", "--before=false")
	require.NoError(t, err)
	assert.NotContains(t, out, string(feed.BeforeUpdated))
}

func TestDemo_StepStopsWhenDeclined(t *testing.T) {
	opts := testOptions()
	var asked []string
	opts.confirm = func(message string) (bool, error) {
		asked = append(asked, message)
		return len(asked) <= 2, nil
	}

	out, err := execute(t, opts, "demo", "--step")
	require.NoError(t, err)

	assert.Len(t, asked, 3)
	assert.Equal(t, `Apply "rename card"?`, asked[0])
	assert.Contains(t, out, "Roadmap: 2 steps")
	assert.NotContains(t, out, "reprioritise card")
}

func TestDemo_PromptError(t *testing.T) {
	opts := testOptions()
	opts.confirm = func(string) (bool, error) { return false, errors.New("interrupt") }

	_, err := execute(t, opts, "demo", "--step")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt failed: interrupt")
}

func TestDemo_JournalRoundTrip(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "journal.db")
	db, err := journal.Open(context.Background(), "sqlite3", dsn)
	if err != nil {
		t.Skipf("sqlite3 unavailable: %v", err)
	}
	require.NoError(t, db.Close())

	t.Setenv("CASCADE_JOURNAL_DSN", dsn)

	out, err := execute(t, testOptions(), "demo", "--journal")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded")
	assert.Contains(t, out, "to sqlite3")

	out, err = execute(t, testOptions(), "journal", "list", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Journal: showing 5 of")
	assert.Contains(t, out, "Recorded")
}

func TestJournalList_InvalidLimit(t *testing.T) {
	_, err := execute(t, testOptions(), "journal", "list", "--limit", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit must be positive")
}

func TestToken_NoSecret(t *testing.T) {
	_, err := execute(t, testOptions(), "token", "--viewer", "grace")
	require.Error(t, err)

	var hint *hintError
	require.ErrorAs(t, err, &hint)
	assert.Equal(t, ErrNoSecret.Error(), hint.problem)
}

func TestToken_PromptsForViewer(t *testing.T) {
	t.Setenv("CASCADE_STREAM_SECRET", "s3cret")
	opts := testOptions()
	opts.input = func(string, string) (string, error) { return "grace", nil }

	out, err := execute(t, opts, "token")
	require.NoError(t, err)

	var token string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Token:") {
			token = strings.TrimSpace(strings.TrimPrefix(line, "Token:"))
		}
	}
	require.NotEmpty(t, token)

	viewer, err := stream.NewTokenAuth("s3cret", time.Hour).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "grace", viewer)
}

func TestServe_InvalidInterval(t *testing.T) {
	_, err := execute(t, testOptions(), "serve", "--interval=-1s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval must be positive")
}

func TestReplayer(t *testing.T) {
	var got []feed.Notification
	steps := kanban.Scenario()
	rp := newReplayer(steps, func(n feed.Notification) { got = append(got, n) }, nil)
	defer rp.close()

	require.NoError(t, rp.tick())
	assert.Equal(t, 1, rp.rounds)
	assert.Empty(t, got)
	first := rp.board

	for range steps {
		require.NoError(t, rp.tick())
	}
	assert.NotEmpty(t, got)
	assert.Equal(t, len(steps), rp.next)

	require.NoError(t, rp.tick())
	assert.Equal(t, 2, rp.rounds)
	assert.NotSame(t, first, rp.board)

	delivered := len(got)
	first.SetTitle("stale")
	assert.Len(t, got, delivered)
}

func TestNotificationChange(t *testing.T) {
	tests := []struct {
		name string
		n    feed.Notification
		want string
	}{
		{"update", feed.Notification{Type: feed.Updated, Field: "title", Old: "a", New: "b"}, `title: "a" → "b"`},
		{"nil old", feed.Notification{Type: feed.BeforeUpdated, Field: "assignee", New: "person:1234abcd"}, `assignee: ∅ → "person:1234abcd"`},
		{"bool", feed.Notification{Type: feed.Updated, Field: "done", Old: false, New: true}, "done: false → true"},
		{"position", feed.Notification{Type: feed.PositionChanged, OldIndex: 2, NewIndex: 0}, "index 2 → 0"},
		{"added", feed.Notification{Type: feed.ItemAdded, Index: 3}, "index 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, notificationChange(tt.n))
		})
	}
}

func TestEntryChange(t *testing.T) {
	e := &journal.Entry{Type: string(feed.Updated), Field: "title", Old: `"a"`, New: ""}
	assert.Equal(t, `title: "a" → ∅`, entryChange(e))

	e = &journal.Entry{Type: string(feed.PositionChanged), OldIndex: 1, NewIndex: 4}
	assert.Equal(t, "index 1 → 4", entryChange(e))
}
