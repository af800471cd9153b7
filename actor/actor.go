package actor

// Actor is anything that processes messages delivered through its mailbox.
// A single actor's Receive is never invoked concurrently.
type Actor interface {
	Receive(Context)
}

// Producer builds a fresh actor instance when a process is spawned.
type Producer func() Actor

// Props describes how to construct an actor.
type Props struct {
	producer Producer
}

// NewProps wraps a Producer for spawning.
func NewProps(producer Producer) *Props {
	return &Props{producer: producer}
}

// Produce builds the actor instance.
func (p *Props) Produce() Actor {
	return p.producer()
}

// Started is delivered once, before any user message.
type Started struct{}

// Stopping is delivered when the actor is asked to stop, before removal.
type Stopping struct{}

// Stopped is delivered last, after the message loop has exited.
type Stopped struct{}
