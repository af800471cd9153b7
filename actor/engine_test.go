package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorderActor captures every message it receives.
type recorderActor struct {
	mu       sync.Mutex
	received []interface{}
}

func (a *recorderActor) Receive(ctx Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.received = append(a.received, ctx.Message())
}

func (a *recorderActor) messages() []interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]interface{}, len(a.received))
	copy(out, a.received)
	return out
}

// echoActor replies to every Ask with the message it received.
type echoActor struct{}

func (a *echoActor) Receive(ctx Context) {
	switch msg := ctx.Message().(type) {
	case Started, Stopping, Stopped:
	default:
		ctx.Reply(msg)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestSpawnDeliversStarted(t *testing.T) {
	engine := NewEngine()
	defer engine.Shutdown(2 * time.Second)

	rec := &recorderActor{}
	pid := engine.Spawn(NewProps(func() Actor { return rec }))
	require.NotNil(t, pid)

	waitFor(t, time.Second, func() bool { return len(rec.messages()) >= 1 })
	assert.Equal(t, Started{}, rec.messages()[0])
}

func TestSendPreservesOrder(t *testing.T) {
	engine := NewEngine()
	defer engine.Shutdown(2 * time.Second)

	rec := &recorderActor{}
	pid := engine.Spawn(NewProps(func() Actor { return rec }))
	require.NotNil(t, pid)

	for i := 0; i < 50; i++ {
		engine.Send(pid, i, nil)
	}

	waitFor(t, time.Second, func() bool { return len(rec.messages()) >= 51 })
	msgs := rec.messages()[1:] // skip Started
	for i := 0; i < 50; i++ {
		assert.Equal(t, i, msgs[i])
	}
}

func TestAskRoundTrip(t *testing.T) {
	engine := NewEngine()
	defer engine.Shutdown(2 * time.Second)

	pid := engine.Spawn(NewProps(func() Actor { return &echoActor{} }))
	require.NotNil(t, pid)

	response, err := engine.Ask(pid, "ping", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ping", response)
}

func TestAskUnknownPID(t *testing.T) {
	engine := NewEngine()
	defer engine.Shutdown(2 * time.Second)

	_, err := engine.Ask(&PID{ID: "missing-1"}, "ping", 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStopDeliversLifecycleMessages(t *testing.T) {
	engine := NewEngine()
	defer engine.Shutdown(2 * time.Second)

	rec := &recorderActor{}
	pid := engine.Spawn(NewProps(func() Actor { return rec }))
	require.NotNil(t, pid)

	waitFor(t, time.Second, func() bool { return len(rec.messages()) >= 1 })
	engine.Stop(pid)

	waitFor(t, time.Second, func() bool {
		msgs := rec.messages()
		return len(msgs) >= 2 && msgs[len(msgs)-1] == interface{}(Stopped{})
	})

	msgs := rec.messages()
	assert.Contains(t, msgs, interface{}(Stopping{}))
	assert.Equal(t, Stopped{}, msgs[len(msgs)-1])
}

func TestStoppedActorDropsMessages(t *testing.T) {
	engine := NewEngine()
	defer engine.Shutdown(2 * time.Second)

	rec := &recorderActor{}
	pid := engine.Spawn(NewProps(func() Actor { return rec }))
	require.NotNil(t, pid)

	engine.Stop(pid)
	waitFor(t, time.Second, func() bool {
		_, err := engine.Ask(pid, "probe", 20*time.Millisecond)
		return err == ErrNotFound
	})

	before := len(rec.messages())
	engine.Send(pid, "late", nil)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, len(rec.messages()))
}

// panicActor panics on any user message.
type panicActor struct {
	rec *recorderActor
}

func (a *panicActor) Receive(ctx Context) {
	a.rec.Receive(ctx)
	if _, ok := ctx.Message().(string); ok {
		panic("boom")
	}
}

func TestPanicInReceiveDoesNotKillActor(t *testing.T) {
	engine := NewEngine()
	defer engine.Shutdown(2 * time.Second)

	rec := &recorderActor{}
	pid := engine.Spawn(NewProps(func() Actor { return &panicActor{rec: rec} }))
	require.NotNil(t, pid)

	engine.Send(pid, "explode", nil)
	engine.Send(pid, 42, nil)

	waitFor(t, time.Second, func() bool {
		msgs := rec.messages()
		for _, m := range msgs {
			if m == interface{}(42) {
				return true
			}
		}
		return false
	})
}

func TestShutdownStopsAllActors(t *testing.T) {
	engine := NewEngine()

	recs := make([]*recorderActor, 5)
	for i := range recs {
		recs[i] = &recorderActor{}
		rec := recs[i]
		require.NotNil(t, engine.Spawn(NewProps(func() Actor { return rec })))
	}

	engine.Shutdown(2 * time.Second)

	for _, rec := range recs {
		msgs := rec.messages()
		require.NotEmpty(t, msgs)
		assert.Equal(t, Stopped{}, msgs[len(msgs)-1])
	}

	assert.Nil(t, engine.Spawn(NewProps(func() Actor { return &recorderActor{} })))
}
