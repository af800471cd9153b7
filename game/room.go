package game

import (
	"time"

	"github.com/lguibr/cacophony/catalog"
)

// Phase is the room's position in the game lifecycle.
type Phase string

const (
	PhaseLobby                  Phase = "LOBBY"
	PhaseJudgeSelection         Phase = "JUDGE_SELECTION"
	PhasePromptSelection        Phase = "PROMPT_SELECTION"
	PhaseSoundSelection         Phase = "SOUND_SELECTION"
	PhasePlayback               Phase = "PLAYBACK"
	PhaseJudging                Phase = "JUDGING"
	PhaseRoundResults           Phase = "ROUND_RESULTS"
	PhaseGameOver               Phase = "GAME_OVER"
	PhasePausedForDisconnection Phase = "PAUSED_FOR_DISCONNECTION"
)

// Conn is the transport surface the room needs: ordered delivery of named
// JSON events to one endpoint.
type Conn interface {
	SendEvent(event string, data interface{}) error
	Close() error
}

// Participant is one player's room-scoped session. The ID is the transport
// identifier of the current connection and is re-bound on reconnection.
type Participant struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Color        string   `json:"color"`
	Emoji        string   `json:"emoji"`
	Score        int      `json:"score"`
	IsHost       bool     `json:"isHost"`
	Disconnected bool     `json:"disconnected"`
	SoundSet     []string `json:"soundSet,omitempty"`

	conn Conn
}

// DisconnectedParticipant snapshots a participant for the reconnection window.
type DisconnectedParticipant struct {
	Participant
	OriginalID     string    `json:"originalId"`
	DisconnectedAt time.Time `json:"disconnectedAt"`
}

// Submission is one participant's 1-2 sound picks for the round.
type Submission struct {
	ParticipantID string   `json:"participantId"`
	Name          string   `json:"name"`
	Sounds        []string `json:"sounds"`
}

// Settings are the host-tunable end conditions.
type Settings struct {
	MaxRounds            int  `json:"maxRounds"`
	MaxScore             int  `json:"maxScore"`
	AllowExplicitContent bool `json:"allowExplicitContent"`
}

// voteState tracks an in-flight reconnection vote.
type voteState struct {
	VoterID    string
	OriginalID string // disconnected entry being voted on
	Name       string
}

// Room is the authoritative state of one game room. It is owned exclusively
// by its RoomActor; nothing outside the actor's mailbox mutates it.
type Room struct {
	Code         string
	Participants []*Participant
	Disconnected []*DisconnectedParticipant

	Phase         Phase
	PreviousPhase Phase
	Round         int
	Settings      Settings

	JudgeID          string
	judgeIndex       int
	CurrentPrompt    *catalog.Prompt
	AvailablePrompts []catalog.Prompt
	UsedPromptIDs    map[string]bool

	Submissions           []Submission
	RandomizedSubmissions []Submission
	ShuffleSeed           string
	PlaybackIndex         int

	SoundTimerStarted bool
	JudgeTimerStarted bool

	LastWinnerID          string
	LastWinningSubmission *Submission
	OverallWinnerID       string

	PausedForDisconnection bool
	DisconnectedAt         time.Time
	vote                   *voteState
}

// NewRoom creates an empty room in the lobby phase.
func NewRoom(code string, settings Settings) *Room {
	return &Room{
		Code:          code,
		Phase:         PhaseLobby,
		Settings:      settings,
		UsedPromptIDs: make(map[string]bool),
	}
}

// ParticipantByID finds an active participant.
func (r *Room) ParticipantByID(id string) *Participant {
	for _, p := range r.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ParticipantByName finds an active participant by display name.
func (r *Room) ParticipantByName(name string) *Participant {
	for _, p := range r.Participants {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Host returns the current host, or nil for an empty room.
func (r *Room) Host() *Participant {
	for _, p := range r.Participants {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// Judge returns the current judge, or nil.
func (r *Room) Judge() *Participant {
	if r.JudgeID == "" {
		return nil
	}
	return r.ParticipantByID(r.JudgeID)
}

// NonJudges returns the active participants other than the judge, in room
// order.
func (r *Room) NonJudges() []*Participant {
	out := make([]*Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		if p.ID != r.JudgeID {
			out = append(out, p)
		}
	}
	return out
}

// SubmissionFor returns the recorded submission for a participant, or nil.
func (r *Room) SubmissionFor(participantID string) *Submission {
	for i := range r.Submissions {
		if r.Submissions[i].ParticipantID == participantID {
			return &r.Submissions[i]
		}
	}
	return nil
}

// AllSubmitted reports whether every active non-judge has a submission.
func (r *Room) AllSubmitted() bool {
	for _, p := range r.NonJudges() {
		if r.SubmissionFor(p.ID) == nil {
			return false
		}
	}
	return len(r.Participants) > 1
}

// RotateJudge advances the judge index by one through the active list,
// wrapping on overflow, and updates JudgeID.
func (r *Room) RotateJudge() {
	if len(r.Participants) == 0 {
		r.JudgeID = ""
		return
	}
	r.judgeIndex = (r.judgeIndex + 1) % len(r.Participants)
	r.JudgeID = r.Participants[r.judgeIndex].ID
}

// SetJudgeByIndex pins the judge to a position in the active list.
func (r *Room) SetJudgeByIndex(index int) {
	if len(r.Participants) == 0 {
		r.JudgeID = ""
		return
	}
	r.judgeIndex = index % len(r.Participants)
	r.JudgeID = r.Participants[r.judgeIndex].ID
}

// ReseatJudge repairs the judge index after membership changes. If the
// current judge is gone the judge advances to the participant now occupying
// the old rotation slot.
func (r *Room) ReseatJudge() {
	if len(r.Participants) == 0 {
		r.JudgeID = ""
		return
	}
	for i, p := range r.Participants {
		if p.ID == r.JudgeID {
			r.judgeIndex = i
			return
		}
	}
	r.judgeIndex = r.judgeIndex % len(r.Participants)
	r.JudgeID = r.Participants[r.judgeIndex].ID
}

// ClearRoundState resets per-round fields ahead of a new round.
func (r *Room) ClearRoundState() {
	r.CurrentPrompt = nil
	r.AvailablePrompts = nil
	r.Submissions = nil
	r.RandomizedSubmissions = nil
	r.ShuffleSeed = ""
	r.PlaybackIndex = 0
	r.SoundTimerStarted = false
	r.JudgeTimerStarted = false
	for _, p := range r.Participants {
		p.SoundSet = nil
	}
}

// ResetGame returns the room to a fresh lobby, keeping membership.
func (r *Room) ResetGame() {
	r.Phase = PhaseLobby
	r.PreviousPhase = ""
	r.Round = 0
	r.JudgeID = ""
	r.judgeIndex = 0
	r.UsedPromptIDs = make(map[string]bool)
	r.LastWinnerID = ""
	r.LastWinningSubmission = nil
	r.OverallWinnerID = ""
	r.ClearRoundState()
	for _, p := range r.Participants {
		p.Score = 0
	}
}

// TopScorers returns the highest score and every participant holding it.
func (r *Room) TopScorers() (int, []*Participant) {
	top := 0
	for _, p := range r.Participants {
		if p.Score > top {
			top = p.Score
		}
	}
	var holders []*Participant
	for _, p := range r.Participants {
		if p.Score == top {
			holders = append(holders, p)
		}
	}
	return top, holders
}

// Snapshot renders the wire-facing view of the room.
func (r *Room) Snapshot() RoomSnapshot {
	participants := make([]Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		participants = append(participants, *p)
	}
	disconnected := make([]string, 0, len(r.Disconnected))
	for _, d := range r.Disconnected {
		disconnected = append(disconnected, d.Name)
	}
	return RoomSnapshot{
		Code:            r.Code,
		Participants:    participants,
		Disconnected:    disconnected,
		Phase:           r.Phase,
		Round:           r.Round,
		Settings:        r.Settings,
		JudgeID:         r.JudgeID,
		CurrentPrompt:   r.CurrentPrompt,
		LastWinnerID:    r.LastWinnerID,
		OverallWinnerID: r.OverallWinnerID,
		Paused:          r.PausedForDisconnection,
	}
}
