package server

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/lguibr/cacophony/actor"
	"github.com/lguibr/cacophony/game"
	"github.com/lguibr/cacophony/log"
)

// inboundFrame carries one decoded client frame into the actor's mailbox.
type inboundFrame struct {
	Event string
	Data  json.RawMessage
}

// socketClosed signals that the read loop exited.
type socketClosed struct {
	Err error
}

// ConnectionActor owns one websocket for its whole life. Before a room is
// assigned it speaks the lobby protocol (create, join, reconnect, viewer);
// afterwards it forwards game events to its room and reports the drop when
// the socket dies.
type ConnectionActor struct {
	engine     *actor.Engine
	managerPID *actor.PID
	conn       *wsConn
	connID     string
	logger     zerolog.Logger
	selfPID    *actor.PID

	roomPID  *actor.PID
	asViewer bool

	stopReadLoop chan struct{}
}

// NewConnectionActorProducer creates a producer for a ConnectionActor bound
// to one accepted websocket.
func NewConnectionActorProducer(engine *actor.Engine, managerPID *actor.PID, conn *wsConn, connID string) actor.Producer {
	return func() actor.Actor {
		return &ConnectionActor{
			engine:       engine,
			managerPID:   managerPID,
			conn:         conn,
			connID:       connID,
			logger:       log.WithComponent("connection").With().Str("conn", connID).Logger(),
			stopReadLoop: make(chan struct{}),
		}
	}
}

// Receive is the main message handler for the ConnectionActor.
func (c *ConnectionActor) Receive(ctx actor.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("panic recovered in connection actor")
		}
	}()

	if c.selfPID == nil {
		c.selfPID = ctx.Self()
	}

	switch msg := ctx.Message().(type) {
	case actor.Started:
		go c.readLoop()

	case inboundFrame:
		c.handleFrame(msg)

	case game.RoomAssigned:
		c.roomPID = msg.PID
		c.asViewer = msg.Viewer
		c.logger.Debug().Str("room", msg.Code).Bool("viewer", msg.Viewer).Msg("bound to room")

	case game.RoomRejected:
		c.logger.Debug().Str("reason", msg.Reason).Msg("room request rejected")

	case socketClosed:
		c.handleSocketClosed(msg.Err)

	case actor.Stopping:
		close(c.stopReadLoop)
		_ = c.conn.Close()

	case actor.Stopped:

	default:
		c.logger.Warn().Str("type", fmt.Sprintf("%T", msg)).Msg("connection actor received unknown message")
	}
}

// readLoop decodes frames off the socket until it dies, posting each into
// the mailbox so handling is serialized with everything else.
func (c *ConnectionActor) readLoop() {
	for {
		var frame Envelope
		if err := c.conn.Receive(&frame); err != nil {
			select {
			case <-c.stopReadLoop:
			default:
				c.engine.Send(c.selfPID, socketClosed{Err: err}, nil)
			}
			return
		}
		if frame.Event == "" {
			continue
		}
		c.engine.Send(c.selfPID, inboundFrame{Event: frame.Event, Data: frame.Data}, nil)
	}
}

// handleFrame routes one client frame: lobby protocol while unbound, room
// forwarding once bound.
func (c *ConnectionActor) handleFrame(frame inboundFrame) {
	if c.roomPID != nil {
		c.engine.Send(c.roomPID, game.ClientEvent{
			ConnID: c.connID,
			Viewer: c.asViewer,
			Event:  frame.Event,
			Data:   frame.Data,
		}, c.selfPID)
		return
	}

	switch frame.Event {
	case game.EvCreateRoom:
		var p struct {
			Name       string `json:"name"`
			Color      string `json:"color"`
			Emoji      string `json:"emoji"`
			OriginalID string `json:"originalId"`
		}
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			c.sendError("malformed createRoom payload")
			return
		}
		c.engine.Send(c.managerPID, game.CreateRoomRequest{
			Conn:       c.conn,
			ConnID:     c.connID,
			Name:       p.Name,
			Color:      p.Color,
			Emoji:      p.Emoji,
			OriginalID: p.OriginalID,
			ReplyTo:    c.selfPID,
		}, c.selfPID)

	case game.EvJoinRoom:
		var p struct {
			Code  string `json:"code"`
			Name  string `json:"name"`
			Color string `json:"color"`
			Emoji string `json:"emoji"`
		}
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			c.sendError("malformed joinRoom payload")
			return
		}
		c.engine.Send(c.managerPID, game.JoinRoomRequest{
			Code:    p.Code,
			Conn:    c.conn,
			ConnID:  c.connID,
			Name:    p.Name,
			Color:   p.Color,
			Emoji:   p.Emoji,
			ReplyTo: c.selfPID,
		}, c.selfPID)

	case game.EvReconnectToRoom:
		var p struct {
			Code       string `json:"code"`
			Name       string `json:"name"`
			OriginalID string `json:"originalId"`
		}
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			c.sendError("malformed reconnectToRoom payload")
			return
		}
		c.engine.Send(c.managerPID, game.ReconnectRequest{
			Code:       p.Code,
			Conn:       c.conn,
			ConnID:     c.connID,
			Name:       p.Name,
			OriginalID: p.OriginalID,
			ReplyTo:    c.selfPID,
		}, c.selfPID)

	case game.EvJoinRoomAsViewer:
		var p struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			c.sendError("malformed joinRoomAsViewer payload")
			return
		}
		c.engine.Send(c.managerPID, game.JoinAsViewerRequest{
			Code:     p.Code,
			Conn:     c.conn,
			ViewerID: c.connID,
			ReplyTo:  c.selfPID,
		}, c.selfPID)

	default:
		c.sendError("join a room first")
	}
}

// handleSocketClosed reports the drop to the bound room and stops this actor.
func (c *ConnectionActor) handleSocketClosed(err error) {
	if err != nil && err != io.EOF {
		c.logger.Debug().Err(err).Msg("socket closed")
	}

	if c.roomPID != nil {
		if c.asViewer {
			c.engine.Send(c.roomPID, game.ViewerGone{ViewerID: c.connID}, c.selfPID)
		} else {
			c.engine.Send(c.roomPID, game.ParticipantGone{ConnID: c.connID}, c.selfPID)
		}
		c.roomPID = nil
	}

	c.engine.Stop(c.selfPID)
}

func (c *ConnectionActor) sendError(message string) {
	if err := c.conn.SendEvent(game.EvError, game.ErrorPayload{Message: message}); err != nil {
		c.logger.Debug().Err(err).Msg("failed to send error frame")
	}
}
