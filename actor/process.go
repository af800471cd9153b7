package actor

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"
)

const defaultMailboxSize = 1024

type envelope struct {
	message interface{}
	sender  *PID
	replyCh chan interface{}
}

// process is the running instance of an actor: its mailbox and message loop.
type process struct {
	engine  *Engine
	pid     *PID
	actor   Actor
	props   *Props
	mailbox chan *envelope
	stopCh  chan struct{}
	stopped atomic.Bool
}

func newProcess(engine *Engine, pid *PID, props *Props) *process {
	return &process{
		engine:  engine,
		pid:     pid,
		props:   props,
		mailbox: make(chan *envelope, defaultMailboxSize),
		stopCh:  make(chan struct{}),
	}
}

// sendEnvelope places a message in the mailbox. Non-blocking: if the mailbox
// is full the message is dropped and logged.
func (p *process) sendEnvelope(env *envelope) {
	_, isStopping := env.message.(Stopping)
	_, isStopped := env.message.(Stopped)
	if p.stopped.Load() && !isStopping && !isStopped {
		return
	}

	select {
	case p.mailbox <- env:
	default:
		p.engine.logger.Warn().
			Str("pid", p.pid.ID).
			Str("type", typeName(env.message)).
			Msg("mailbox full, dropping message")
	}
}

// signalStop closes the stop channel exactly once.
func (p *process) signalStop() {
	select {
	case <-p.stopCh:
	default:
		close(p.stopCh)
	}
}

// run is the main loop for the actor process.
func (p *process) run() {
	defer func() {
		p.stopped.Store(true)
		if p.actor != nil {
			p.invokeReceive(&envelope{message: Stopped{}})
		}
		p.engine.remove(p.pid)
	}()

	defer func() {
		if r := recover(); r != nil {
			p.engine.logger.Error().
				Str("pid", p.pid.ID).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("actor loop panicked")
			p.stopped.Store(true)
			p.signalStop()
		}
	}()

	p.actor = p.props.Produce()
	if p.actor == nil {
		p.engine.logger.Error().Str("pid", p.pid.ID).Msg("producer returned nil actor")
		return
	}

	for {
		select {
		case <-p.stopCh:
			// Stop signal received directly (engine.Stop or panic recovery).
			if p.stopped.CompareAndSwap(false, true) {
				p.invokeReceive(&envelope{message: Stopping{}})
			}
			return

		case env := <-p.mailbox:
			_, isStopping := env.message.(Stopping)
			if p.stopped.Load() && !isStopping {
				continue
			}

			if isStopping {
				if p.stopped.CompareAndSwap(false, true) {
					p.invokeReceive(env)
				}
				p.signalStop()
				return
			}

			p.invokeReceive(env)
		}
	}
}

// invokeReceive calls the actor's Receive within a panic guard so one bad
// message does not take the whole process down.
func (p *process) invokeReceive(env *envelope) {
	ctx := &messageContext{
		engine:  p.engine,
		self:    p.pid,
		sender:  env.sender,
		message: env.message,
		replyCh: env.replyCh,
	}

	defer func() {
		if r := recover(); r != nil {
			p.engine.logger.Error().
				Str("pid", p.pid.ID).
				Str("type", typeName(env.message)).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("actor panicked in Receive")
		}
	}()
	p.actor.Receive(ctx)
}

func typeName(message interface{}) string {
	return fmt.Sprintf("%T", message)
}
