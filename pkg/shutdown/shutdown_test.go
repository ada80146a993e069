package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestPlan_RunsStagesInOrder(t *testing.T) {
	p := New(0, nil)
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	p.Add(StageBackground, "janitor", record("janitor"))
	p.Add(StageListener, "http", record("http"))
	p.AddCloser(StageSessions, "sessions", closerFunc(func() error {
		order = append(order, "sessions")
		return nil
	}))
	p.Add(StageListener, "metrics", record("metrics"))

	require.NoError(t, p.Run())
	assert.Equal(t, []string{"http", "metrics", "sessions", "janitor"}, order)

	select {
	case <-p.Started():
	default:
		t.Fatal("Started should be closed after Run")
	}
}

func TestPlan_JoinsErrors(t *testing.T) {
	p := New(0, nil)
	boom := errors.New("boom")
	ran := false

	p.Add(StageListener, "failing", func(context.Context) error { return boom })
	p.Add(StageSessions, "after", func(context.Context) error {
		ran = true
		return nil
	})

	assert.ErrorIs(t, p.Run(), boom)
	assert.True(t, ran, "later steps run after a failure")
}

func TestPlan_RunsOnce(t *testing.T) {
	p := New(0, nil)
	require.NoError(t, p.Run())
	assert.ErrorIs(t, p.Run(), ErrAlreadyDone)
}

func TestPlan_Timeout(t *testing.T) {
	p := New(20*time.Millisecond, nil)
	skipped := true
	p.Add(StageSessions, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	p.Add(StageBackground, "never", func(context.Context) error {
		skipped = false
		return nil
	})

	assert.ErrorIs(t, p.Run(), ErrTimeout)
	assert.True(t, skipped)
}

func TestPlan_WaitOnContextCancel(t *testing.T) {
	p := New(0, nil)
	called := false
	p.Add(StageListener, "http", func(context.Context) error {
		called = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Wait(ctx))
	assert.True(t, called)
}

func TestPlan_WaitAfterRun(t *testing.T) {
	p := New(0, nil)
	require.NoError(t, p.Run())
	assert.NoError(t, p.Wait(context.Background()))
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "listener", StageListener.String())
	assert.Equal(t, "background", StageBackground.String())
	assert.Equal(t, "unknown", Stage(9).String())
}
