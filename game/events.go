package game

import "github.com/lguibr/cacophony/catalog"

// Inbound event names (participants).
const (
	EvCreateRoom             = "createRoom"
	EvJoinRoom               = "joinRoom"
	EvReconnectToRoom        = "reconnectToRoom"
	EvLeaveRoom              = "leaveRoom"
	EvStartGame              = "startGame"
	EvUpdateGameSettings     = "updateGameSettings"
	EvSelectPrompt           = "selectPrompt"
	EvSubmitSounds           = "submitSounds"
	EvSelectWinner           = "selectWinner"
	EvVoteOnReconnection     = "voteOnReconnection"
	EvWinnerAudioComplete    = "winnerAudioComplete"
	EvRequestJudgingPlayback = "requestJudgingPlayback"
	EvRestartGame            = "restartGame"
)

// Inbound event names (viewers).
const (
	EvJoinRoomAsViewer        = "joinRoomAsViewer"
	EvRequestNextSubmission   = "requestNextSubmission"
	EvRequestMainScreenUpdate = "requestMainScreenUpdate"
)

// Outbound event names.
const (
	EvRoomCreated                = "roomCreated"
	EvRoomJoined                 = "roomJoined"
	EvRoomUpdated                = "roomUpdated"
	EvGameStateChanged           = "gameStateChanged"
	EvPlayerJoined               = "playerJoined"
	EvPlayerLeft                 = "playerLeft"
	EvPlayerDisconnected         = "playerDisconnected"
	EvPlayerReconnected          = "playerReconnected"
	EvReconnectionVoteRequest    = "reconnectionVoteRequest"
	EvReconnectionVoteUpdate     = "reconnectionVoteUpdate"
	EvReconnectionVoteResult     = "reconnectionVoteResult"
	EvGamePausedForDisconnection = "gamePausedForDisconnection"
	EvGameResumed                = "gameResumed"
	EvJudgeSelected              = "judgeSelected"
	EvPromptSelected             = "promptSelected"
	EvSoundSubmitted             = "soundSubmitted"
	EvRoundComplete              = "roundComplete"
	EvGameComplete               = "gameComplete"
	EvGameSettingsUpdated        = "gameSettingsUpdated"
	EvTimeUpdate                 = "timeUpdate"
	EvPlaySubmission             = "playSubmission"
	EvPlayJudgingSubmission      = "playJudgingSubmission"
	EvTieBreakerRound            = "tieBreakerRound"
	EvMainScreenUpdate           = "mainScreenUpdate"
	EvRoomClosed                 = "roomClosed"
	EvError                      = "error"
)

// RoomSnapshot is the full room view carried by roomUpdated and
// mainScreenUpdate.
type RoomSnapshot struct {
	Code            string          `json:"code"`
	Participants    []Participant   `json:"participants"`
	Disconnected    []string        `json:"disconnectedPlayers"`
	Phase           Phase           `json:"phase"`
	Round           int             `json:"round"`
	Settings        Settings        `json:"settings"`
	JudgeID         string          `json:"judgeId,omitempty"`
	CurrentPrompt   *catalog.Prompt `json:"currentPrompt,omitempty"`
	LastWinnerID    string          `json:"lastWinnerId,omitempty"`
	OverallWinnerID string          `json:"overallWinnerId,omitempty"`
	Paused          bool            `json:"paused"`
}

// StateChangePayload carries phase-specific data on gameStateChanged.
type StateChangePayload struct {
	Phase                 Phase            `json:"phase"`
	Round                 int              `json:"round"`
	JudgeID               string           `json:"judgeId,omitempty"`
	TimeLimit             int              `json:"timeLimit,omitempty"` // seconds
	Prompts               []catalog.Prompt `json:"prompts,omitempty"`
	Prompt                *catalog.Prompt  `json:"prompt,omitempty"`
	Submissions           []Submission     `json:"submissions,omitempty"`
	RandomizedSubmissions []Submission     `json:"randomizedSubmissions,omitempty"`
	WinnerID              string           `json:"winnerId,omitempty"`
	FinalScores           map[string]int   `json:"finalScores,omitempty"`
}

// RoomCreatedPayload acknowledges createRoom.
type RoomCreatedPayload struct {
	Code                string      `json:"code"`
	Room                RoomSnapshot `json:"room"`
	ReconnectionCleared bool        `json:"reconnectionCleared,omitempty"`
}

// JoinResultPayload acknowledges joinRoom and reconnectToRoom.
type JoinResultPayload struct {
	Success bool          `json:"success"`
	Reason  string        `json:"reason,omitempty"`
	Room    *RoomSnapshot `json:"room,omitempty"`
}

// PlayerEventPayload identifies a participant in membership events.
type PlayerEventPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JudgeSelectedPayload announces the round's judge.
type JudgeSelectedPayload struct {
	JudgeID   string `json:"judgeId"`
	JudgeName string `json:"judgeName"`
	Round     int    `json:"round"`
}

// PromptSelectedPayload announces the chosen prompt.
type PromptSelectedPayload struct {
	Prompt catalog.Prompt `json:"prompt"`
}

// SoundSubmittedPayload reports submission progress without leaking picks.
type SoundSubmittedPayload struct {
	ParticipantID string `json:"participantId"`
	Submitted     int    `json:"submitted"`
	Expected      int    `json:"expected"`
}

// RoundCompletePayload announces the round winner.
type RoundCompletePayload struct {
	WinnerID   string         `json:"winnerId"`
	WinnerName string         `json:"winnerName"`
	Submission Submission     `json:"submission"`
	Scores     map[string]int `json:"scores"`
}

// GameCompletePayload announces the overall winner and final scores.
type GameCompletePayload struct {
	WinnerID    string         `json:"winnerId"`
	WinnerName  string         `json:"winnerName"`
	FinalScores map[string]int `json:"finalScores"`
}

// TimeUpdatePayload is the per-second countdown tick.
type TimeUpdatePayload struct {
	Phase     Phase `json:"phase"`
	Remaining int   `json:"remaining"`
}

// PlaySubmissionPayload drives viewer playback of one submission.
type PlaySubmissionPayload struct {
	Index      int        `json:"index"`
	Count      int        `json:"count"`
	Submission Submission `json:"submission"`
}

// PlayJudgingSubmissionPayload replays a submission during judging. Local is
// set when no viewers exist and the judge should play it client-side.
type PlayJudgingSubmissionPayload struct {
	Index      int        `json:"index"`
	Submission Submission `json:"submission"`
	Local      bool       `json:"local,omitempty"`
}

// PausePayload accompanies gamePausedForDisconnection.
type PausePayload struct {
	Name         string `json:"name"`
	GraceSeconds int    `json:"graceSeconds"`
}

// VoteRequestPayload is sent to the elected voter only.
type VoteRequestPayload struct {
	Name     string `json:"name"`
	TimeLeft int    `json:"timeLeft"` // seconds to answer
}

// VoteResultPayload closes a reconnection vote.
type VoteResultPayload struct {
	Name                  string `json:"name"`
	ContinueWithoutPlayer bool   `json:"continueWithoutPlayer"`
	Defaulted             bool   `json:"defaulted,omitempty"`
}

// TieBreakerPayload lists the tied top scorers entering sudden death.
type TieBreakerPayload struct {
	ParticipantIDs []string `json:"participantIds"`
	Score          int      `json:"score"`
}

// MainScreenPayload is the viewer-facing snapshot.
type MainScreenPayload struct {
	Room      RoomSnapshot `json:"room"`
	IsPrimary bool         `json:"isPrimary"`
}

// ErrorPayload is the caller-directed failure report.
type ErrorPayload struct {
	Message string `json:"message"`
}

// GameResumedPayload accompanies gameResumed.
type GameResumedPayload struct {
	Phase Phase `json:"phase"`
}
