package actor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lguibr/cacophony/log"
)

// ErrAskTimeout is returned by Ask when the target does not reply in time.
var ErrAskTimeout = errors.New("actor: ask timed out")

// ErrNotFound is returned by Ask when the target actor does not exist.
var ErrNotFound = errors.New("actor: not found")

// Engine manages the lifecycle and message dispatching for actors.
type Engine struct {
	pidCounter uint64
	actors     map[string]*process
	mu         sync.RWMutex // protects the actors map
	stopping   atomic.Bool
	logger     zerolog.Logger
}

// NewEngine creates a new actor engine.
func NewEngine() *Engine {
	return &Engine{
		actors: make(map[string]*process),
		logger: log.WithComponent("actor"),
	}
}

func (e *Engine) nextPID(name string) *PID {
	id := atomic.AddUint64(&e.pidCounter, 1)
	if name == "" {
		name = "actor"
	}
	return &PID{ID: fmt.Sprintf("%s-%d", name, id)}
}

// Spawn creates and starts a new actor based on the provided Props.
// It returns the PID of the newly created actor, or nil during shutdown.
func (e *Engine) Spawn(props *Props) *PID {
	return e.SpawnNamed(props, "")
}

// SpawnNamed spawns an actor whose PID carries the given name prefix.
func (e *Engine) SpawnNamed(props *Props, name string) *PID {
	if e.stopping.Load() {
		e.logger.Warn().Msg("engine is stopping, cannot spawn new actors")
		return nil
	}

	pid := e.nextPID(name)
	proc := newProcess(e, pid, props)

	e.mu.Lock()
	e.actors[pid.ID] = proc
	e.mu.Unlock()

	go proc.run()

	e.Send(pid, Started{}, nil)
	return pid
}

// Send delivers a message to the actor identified by the PID. Messages to
// unknown PIDs are dropped.
func (e *Engine) Send(pid *PID, message interface{}, sender *PID) {
	if pid == nil {
		return
	}

	// Allow system messages through during shutdown for cleanup.
	_, isStopping := message.(Stopping)
	_, isStopped := message.(Stopped)
	isSystem := isStopping || isStopped || message == Started{}
	if e.stopping.Load() && !isSystem {
		return
	}

	e.mu.RLock()
	proc, ok := e.actors[pid.ID]
	e.mu.RUnlock()

	if ok {
		proc.sendEnvelope(&envelope{message: message, sender: sender})
	}
}

// Ask delivers a message and waits for the actor to answer via ctx.Reply.
func (e *Engine) Ask(pid *PID, message interface{}, timeout time.Duration) (interface{}, error) {
	if pid == nil {
		return nil, ErrNotFound
	}

	e.mu.RLock()
	proc, ok := e.actors[pid.ID]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	replyCh := make(chan interface{}, 1)
	proc.sendEnvelope(&envelope{message: message, replyCh: replyCh})

	select {
	case response := <-replyCh:
		if err, isErr := response.(error); isErr {
			return nil, err
		}
		return response, nil
	case <-time.After(timeout):
		return nil, ErrAskTimeout
	}
}

// Stop requests an actor to stop processing messages and shut down. The
// Stopping message is sent first so the actor can clean up, then the stop
// channel is signalled so termination happens even with a full mailbox.
func (e *Engine) Stop(pid *PID) {
	if pid == nil {
		return
	}

	e.mu.RLock()
	proc, ok := e.actors[pid.ID]
	e.mu.RUnlock()

	if ok {
		e.Send(pid, Stopping{}, nil)
		proc.signalStop()
	}
}

// remove drops an actor process from the engine's tracking.
func (e *Engine) remove(pid *PID) {
	e.mu.Lock()
	delete(e.actors, pid.ID)
	e.mu.Unlock()
}

// Shutdown stops all actors and waits for them to terminate gracefully.
func (e *Engine) Shutdown(timeout time.Duration) {
	if !e.stopping.CompareAndSwap(false, true) {
		return
	}
	e.logger.Info().Msg("engine shutdown initiated")

	e.mu.RLock()
	pidsToStop := make([]*PID, 0, len(e.actors))
	for _, proc := range e.actors {
		pidsToStop = append(pidsToStop, proc.pid)
	}
	e.mu.RUnlock()

	for _, pid := range pidsToStop {
		e.Stop(pid)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		e.mu.RLock()
		remaining := len(e.actors)
		e.mu.RUnlock()
		if remaining == 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	e.mu.Lock()
	if remaining := len(e.actors); remaining > 0 {
		e.logger.Warn().Int("remaining", remaining).Msg("engine shutdown timeout, actors did not stop gracefully")
		e.actors = make(map[string]*process)
	}
	e.mu.Unlock()

	e.logger.Info().Msg("engine shutdown complete")
}
