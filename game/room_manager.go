package game

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lguibr/cacophony/actor"
	"github.com/lguibr/cacophony/catalog"
	"github.com/lguibr/cacophony/log"
	"github.com/lguibr/cacophony/metrics"
	"github.com/lguibr/cacophony/utils"
)

// maxCodeAttempts bounds room code allocation against a saturated code space.
const maxCodeAttempts = 100

// RoomManagerActor owns the room registry: it allocates codes, spawns one
// RoomActor per room and routes joins, reconnections and viewer attachments
// to the right room. It also keeps a reverse connection-to-room map so a
// player who abandons a reconnection window can be cleaned up.
type RoomManagerActor struct {
	engine  *actor.Engine
	cfg     utils.Config
	catalog *catalog.Catalog
	logger  zerolog.Logger
	selfPID *actor.PID

	rooms            map[string]*actor.PID // code -> room actor
	participantRooms map[string]string     // conn id (or original id during grace) -> code
}

// NewRoomManagerProducer creates a producer for the RoomManagerActor.
func NewRoomManagerProducer(engine *actor.Engine, cfg utils.Config, cat *catalog.Catalog) actor.Producer {
	return func() actor.Actor {
		return &RoomManagerActor{
			engine:           engine,
			cfg:              cfg,
			catalog:          cat,
			logger:           log.WithComponent("room-manager"),
			rooms:            make(map[string]*actor.PID),
			participantRooms: make(map[string]string),
		}
	}
}

// Receive is the main message handler for the RoomManagerActor.
func (m *RoomManagerActor) Receive(ctx actor.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("panic recovered in room manager")
		}
	}()

	if m.selfPID == nil {
		m.selfPID = ctx.Self()
	}

	switch msg := ctx.Message().(type) {
	case actor.Started:
		m.logger.Info().Msg("room manager started")

	case CreateRoomRequest:
		m.handleCreateRoom(msg)

	case JoinRoomRequest:
		m.handleJoinRoom(msg)

	case ReconnectRequest:
		m.handleReconnect(msg)

	case JoinAsViewerRequest:
		m.handleJoinAsViewer(msg)

	case RegisterParticipant:
		m.participantRooms[msg.ConnID] = msg.Code

	case UnregisterParticipant:
		delete(m.participantRooms, msg.ConnID)

	case RoomEmpty:
		m.handleRoomEmpty(msg)

	case GetRoomListRequest:
		ctx.Reply(m.roomList())

	case actor.Stopping, actor.Stopped:

	default:
		m.logger.Warn().Str("type", fmt.Sprintf("%T", msg)).Msg("room manager received unknown message")
	}
}

// handleCreateRoom allocates a fresh code, spawns the room and seats the
// creator as host. A pending reconnection entry from the creator's previous
// session is discarded first so they cannot occupy two rooms.
func (m *RoomManagerActor) handleCreateRoom(msg CreateRoomRequest) {
	code, ok := m.allocateCode()
	if !ok {
		m.logger.Error().Msg("room code space exhausted")
		m.reject(msg.Conn, EvRoomCreated, msg.ReplyTo, "no room codes available")
		return
	}

	cleared := false
	if msg.OriginalID != "" {
		if staleCode, found := m.participantRooms[msg.OriginalID]; found {
			if stalePID, live := m.rooms[staleCode]; live {
				m.engine.Send(stalePID, ClearReconnection{OriginalID: msg.OriginalID}, m.selfPID)
				cleared = true
			}
			delete(m.participantRooms, msg.OriginalID)
		}
	}

	producer := NewRoomActorProducer(m.engine, m.cfg, m.catalog, code, m.selfPID)
	pid := m.engine.SpawnNamed(actor.NewProps(producer), "room-"+code)
	if pid == nil {
		m.reject(msg.Conn, EvRoomCreated, msg.ReplyTo, "server is shutting down")
		return
	}

	m.rooms[code] = pid
	metrics.RoomsActive.Inc()
	m.logger.Info().Str("room", code).Str("host", msg.Name).Msg("room created")

	m.engine.Send(pid, AddParticipant{
		Conn:                msg.Conn,
		ConnID:              msg.ConnID,
		Name:                msg.Name,
		Color:               msg.Color,
		Emoji:               msg.Emoji,
		AsHost:              true,
		ReconnectionCleared: cleared,
		ReplyTo:             msg.ReplyTo,
	}, m.selfPID)
}

// handleJoinRoom routes a join to an existing room.
func (m *RoomManagerActor) handleJoinRoom(msg JoinRoomRequest) {
	pid, ok := m.lookup(msg.Code)
	if !ok {
		m.reject(msg.Conn, EvRoomJoined, msg.ReplyTo, "room not found")
		return
	}
	m.engine.Send(pid, AddParticipant{
		Conn:    msg.Conn,
		ConnID:  msg.ConnID,
		Name:    msg.Name,
		Color:   msg.Color,
		Emoji:   msg.Emoji,
		ReplyTo: msg.ReplyTo,
	}, m.selfPID)
}

// handleReconnect routes a reconnection attempt to its room.
func (m *RoomManagerActor) handleReconnect(msg ReconnectRequest) {
	pid, ok := m.lookup(msg.Code)
	if !ok {
		metrics.ReconnectionsTotal.WithLabelValues("rejected").Inc()
		m.reject(msg.Conn, EvRoomJoined, msg.ReplyTo, "room not found")
		return
	}
	m.engine.Send(pid, ReconnectParticipant{
		Conn:       msg.Conn,
		ConnID:     msg.ConnID,
		Name:       msg.Name,
		OriginalID: msg.OriginalID,
		ReplyTo:    msg.ReplyTo,
	}, m.selfPID)
}

// handleJoinAsViewer routes a viewer attachment to its room.
func (m *RoomManagerActor) handleJoinAsViewer(msg JoinAsViewerRequest) {
	pid, ok := m.lookup(msg.Code)
	if !ok {
		m.reject(msg.Conn, EvRoomJoined, msg.ReplyTo, "room not found")
		return
	}
	m.engine.Send(pid, AddViewer{
		Conn:     msg.Conn,
		ViewerID: msg.ViewerID,
		ReplyTo:  msg.ReplyTo,
	}, m.selfPID)
}

// handleRoomEmpty reclaims a room's code and stops its actor. The PID check
// guards against a stale notification racing a code reuse.
func (m *RoomManagerActor) handleRoomEmpty(msg RoomEmpty) {
	current, ok := m.rooms[msg.Code]
	if !ok || current.ID != msg.PID.ID {
		return
	}
	delete(m.rooms, msg.Code)
	metrics.RoomsActive.Dec()

	for connID, code := range m.participantRooms {
		if code == msg.Code {
			delete(m.participantRooms, connID)
		}
	}

	m.engine.Stop(msg.PID)
	m.logger.Info().Str("room", msg.Code).Msg("room reclaimed")
}

// allocateCode draws unused room codes until one sticks.
func (m *RoomManagerActor) allocateCode() (string, bool) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := utils.NewRoomCode()
		if _, taken := m.rooms[code]; !taken {
			return code, true
		}
	}
	return "", false
}

// lookup resolves a room code case-insensitively.
func (m *RoomManagerActor) lookup(code string) (*actor.PID, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !utils.IsValidRoomCode(code) {
		return nil, false
	}
	pid, ok := m.rooms[code]
	return pid, ok
}

// reject answers a failed room request on both channels: the client gets the
// ack event, the connection actor gets its routing answer.
func (m *RoomManagerActor) reject(conn Conn, ackEvent string, replyTo *actor.PID, reason string) {
	metrics.EventErrorsTotal.WithLabelValues("room_request_rejected").Inc()
	if conn != nil {
		if err := conn.SendEvent(ackEvent, JoinResultPayload{Success: false, Reason: reason}); err != nil {
			m.logger.Debug().Err(err).Msg("failed to send rejection")
		}
	}
	m.engine.Send(replyTo, RoomRejected{Reason: reason}, m.selfPID)
}

// roomList summarizes live rooms for the HTTP surface.
func (m *RoomManagerActor) roomList() RoomListResponse {
	counts := make(map[string]int, len(m.rooms))
	for code := range m.rooms {
		counts[code] = 0
	}
	for _, code := range m.participantRooms {
		if _, ok := counts[code]; ok {
			counts[code]++
		}
	}
	return RoomListResponse{Rooms: counts}
}
