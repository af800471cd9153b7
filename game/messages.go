package game

import (
	"encoding/json"

	"github.com/lguibr/cacophony/actor"
)

// --- RoomManagerActor messages ---

// CreateRoomRequest asks the manager to allocate a room with the caller as
// sole host. OriginalID, when set, identifies a previous session whose
// pending reconnection entry should be discarded.
type CreateRoomRequest struct {
	Conn       Conn
	ConnID     string
	Name       string
	Color      string
	Emoji      string
	OriginalID string
	ReplyTo    *actor.PID // ConnectionActor awaiting the room assignment
}

// JoinRoomRequest asks the manager to route a join to an existing room.
type JoinRoomRequest struct {
	Code    string
	Conn    Conn
	ConnID  string
	Name    string
	Color   string
	Emoji   string
	ReplyTo *actor.PID
}

// ReconnectRequest asks the manager to route a reconnection attempt.
type ReconnectRequest struct {
	Code       string
	Conn       Conn
	ConnID     string
	Name       string
	OriginalID string
	ReplyTo    *actor.PID
}

// JoinAsViewerRequest asks the manager to route a viewer join.
type JoinAsViewerRequest struct {
	Code     string
	Conn     Conn
	ViewerID string
	ReplyTo  *actor.PID
}

// RegisterParticipant records a participant's room in the reverse map.
type RegisterParticipant struct {
	ConnID string
	Code   string
}

// UnregisterParticipant drops a participant from the reverse map.
type UnregisterParticipant struct {
	ConnID string
}

// RoomEmpty notifies the manager that a room has no participants left.
type RoomEmpty struct {
	Code string
	PID  *actor.PID
}

// GetRoomListRequest asks for the live room list (used by HTTP via Ask).
type GetRoomListRequest struct{}

// RoomListResponse maps room codes to active participant counts.
type RoomListResponse struct {
	Rooms map[string]int `json:"rooms"`
}

// --- RoomActor messages ---

// AddParticipant adds a joining participant to the room.
type AddParticipant struct {
	Conn                Conn
	ConnID              string
	Name                string
	Color               string
	Emoji               string
	AsHost              bool
	ReconnectionCleared bool // a stale entry elsewhere was discarded for this player
	ReplyTo             *actor.PID
}

// ReconnectParticipant attempts to re-bind a disconnected entry.
type ReconnectParticipant struct {
	Conn       Conn
	ConnID     string
	Name       string
	OriginalID string
	ReplyTo    *actor.PID
}

// AddViewer attaches a display endpoint to the room.
type AddViewer struct {
	Conn     Conn
	ViewerID string
	ReplyTo  *actor.PID
}

// ClientEvent is an inbound game event from a connection already bound to
// this room. Data is the raw JSON payload of the envelope.
type ClientEvent struct {
	ConnID string
	Viewer bool
	Event  string
	Data   json.RawMessage
}

// ParticipantGone signals that a participant's transport dropped.
type ParticipantGone struct {
	ConnID string
}

// ViewerGone signals that a viewer's transport dropped.
type ViewerGone struct {
	ViewerID string
}

// ClearReconnection drops any disconnected entry bound to the given original
// identifier (host re-creating a room instead of reconnecting).
type ClearReconnection struct {
	OriginalID string
}

// RoomAssigned tells a ConnectionActor which room actor now owns its events.
type RoomAssigned struct {
	Code   string
	PID    *actor.PID
	Viewer bool
}

// RoomRejected tells a ConnectionActor that no room was assigned.
type RoomRejected struct {
	Reason string
}

// --- Timer messages (posted by the room's own timer goroutines) ---

type timerPurpose int

const (
	timerJudgeSelection timerPurpose = iota
	timerPromptSelection
	timerSoundSelection
	timerPreJudging
	timerRoundResults
	timerCelebration
	timerGrace
	timerVote
)

// timerTick is a one-second countdown tick for the room's active timer.
type timerTick struct {
	Gen       uint64
	Purpose   timerPurpose
	Remaining int
}

// timerExpired fires once when the room's active timer reaches zero.
type timerExpired struct {
	Gen     uint64
	Purpose timerPurpose
}

// sweepTick triggers the periodic stale-disconnection sweep.
type sweepTick struct{}
