package actor

// Context carries one delivered message together with the identities involved
// in its delivery.
type Context interface {
	Message() interface{}
	Self() *PID
	Sender() *PID
	Engine() *Engine
	// Reply answers an Ask. It is a no-op for messages delivered via Send.
	Reply(interface{})
}

type messageContext struct {
	engine  *Engine
	self    *PID
	sender  *PID
	message interface{}
	replyCh chan interface{}
}

func (c *messageContext) Message() interface{} { return c.message }
func (c *messageContext) Self() *PID           { return c.self }
func (c *messageContext) Sender() *PID         { return c.sender }
func (c *messageContext) Engine() *Engine      { return c.engine }

func (c *messageContext) Reply(response interface{}) {
	if c.replyCh == nil {
		return
	}
	// Reply channel is buffered with capacity 1; a second Reply is dropped.
	select {
	case c.replyCh <- response:
	default:
	}
}
