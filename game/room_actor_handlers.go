package game

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/lguibr/cacophony/metrics"
	"github.com/lguibr/cacophony/utils"
)

var errMalformedPayload = errors.New("malformed payload")

// handleAddParticipant admits a joining (or creating) participant.
func (a *RoomActor) handleAddParticipant(msg AddParticipant) {
	ackEvent := EvRoomJoined
	if msg.AsHost {
		ackEvent = EvRoomCreated
	}

	reject := func(reason string) {
		metrics.EventErrorsTotal.WithLabelValues("join_rejected").Inc()
		a.emitTo(msg.Conn, ackEvent, JoinResultPayload{Success: false, Reason: reason})
		a.engine.Send(msg.ReplyTo, RoomRejected{Reason: reason}, a.selfPID)
	}

	if a.room.Phase != PhaseLobby {
		reject("game already in progress")
		return
	}
	if len(a.room.Participants) >= a.cfg.MaxPlayers {
		reject("room is full")
		return
	}
	if msg.Name == "" {
		reject("name required")
		return
	}
	if a.room.ParticipantByName(msg.Name) != nil {
		reject("name already taken")
		return
	}

	takenColors := make(map[string]bool)
	takenEmojis := make(map[string]bool)
	for _, p := range a.room.Participants {
		takenColors[p.Color] = true
		takenEmojis[p.Emoji] = true
	}
	color := msg.Color
	if color == "" || takenColors[color] {
		color = utils.PickUnused(utils.Colors, takenColors)
	}
	emoji := msg.Emoji
	if emoji == "" || takenEmojis[emoji] {
		emoji = utils.PickUnused(utils.Emojis, takenEmojis)
	}

	p := &Participant{
		ID:     msg.ConnID,
		Name:   msg.Name,
		Color:  color,
		Emoji:  emoji,
		IsHost: msg.AsHost || len(a.room.Participants) == 0,
		conn:   msg.Conn,
	}
	a.room.Participants = append(a.room.Participants, p)
	metrics.ParticipantsConnected.Inc()

	a.engine.Send(a.managerPID, RegisterParticipant{ConnID: p.ID, Code: a.room.Code}, a.selfPID)
	a.engine.Send(msg.ReplyTo, RoomAssigned{Code: a.room.Code, PID: a.selfPID}, a.selfPID)

	snapshot := a.room.Snapshot()
	if msg.AsHost {
		a.emitTo(p.conn, EvRoomCreated, RoomCreatedPayload{
			Code:                a.room.Code,
			Room:                snapshot,
			ReconnectionCleared: msg.ReconnectionCleared,
		})
	} else {
		a.emitTo(p.conn, EvRoomJoined, JoinResultPayload{Success: true, Room: &snapshot})
	}

	for _, other := range a.room.Participants {
		if other.ID != p.ID {
			a.emitTo(other.conn, EvPlayerJoined, PlayerEventPayload{ID: p.ID, Name: p.Name})
		}
	}
	a.emitViewers(EvPlayerJoined, PlayerEventPayload{ID: p.ID, Name: p.Name})
	a.emitRoomUpdated()

	a.logger.Info().Str("participant", p.ID).Str("name", p.Name).Bool("host", p.IsHost).Msg("participant joined")
}

// handleLeaveRoom removes a participant who explicitly left. Unlike a
// transport drop, an explicit leave never enters the grace protocol.
func (a *RoomActor) handleLeaveRoom(p *Participant) {
	a.logger.Info().Str("participant", p.ID).Str("name", p.Name).Msg("participant left")
	a.removeParticipant(p)
}

// removeParticipant permanently drops an active participant, reassigning
// host and judge as needed, and destroys the room when nobody is left.
func (a *RoomActor) removeParticipant(p *Participant) {
	idx := -1
	for i, q := range a.room.Participants {
		if q.ID == p.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	a.room.Participants = append(a.room.Participants[:idx], a.room.Participants[idx+1:]...)
	metrics.ParticipantsConnected.Dec()
	a.engine.Send(a.managerPID, UnregisterParticipant{ConnID: p.ID}, a.selfPID)

	a.emitRoom(EvPlayerLeft, PlayerEventPayload{ID: p.ID, Name: p.Name})

	if len(a.room.Participants) == 0 {
		a.destroyRoom()
		return
	}

	if p.IsHost {
		a.room.Participants[0].IsHost = true
	}

	wasJudge := a.room.JudgeID == p.ID
	if a.room.Phase != PhaseLobby && a.room.Phase != PhaseGameOver {
		a.room.ReseatJudge()
		if wasJudge {
			a.emitRoom(EvJudgeSelected, JudgeSelectedPayload{
				JudgeID:   a.room.JudgeID,
				JudgeName: a.room.Judge().Name,
				Round:     a.room.Round,
			})
		}
	}

	a.emitRoomUpdated()

	// A departure can complete the submission set.
	if a.room.Phase == PhaseSoundSelection && a.room.AllSubmitted() {
		a.finishSoundSelection()
	}
}

// destroyRoom tears the room down: viewers are told, the manager reclaims
// the code and stops this actor.
func (a *RoomActor) destroyRoom() {
	a.logger.Info().Msg("room destroyed")
	a.timer.cancel()
	a.emitViewers(EvRoomClosed, ErrorPayload{Message: "room closed"})
	a.engine.Send(a.managerPID, RoomEmpty{Code: a.room.Code, PID: a.selfPID}, a.selfPID)
}

// handleStartGame starts the game from the lobby.
func (a *RoomActor) handleStartGame(p *Participant) {
	if !p.IsHost {
		a.emitError(p.conn, "not_host", "only the host can start the game")
		return
	}
	if a.room.Phase != PhaseLobby {
		a.emitError(p.conn, "wrong_phase", "game already started")
		return
	}
	if len(a.room.Participants) < a.cfg.MinPlayers {
		a.emitError(p.conn, "not_enough_players", "need at least "+strconv.Itoa(a.cfg.MinPlayers)+" players")
		return
	}

	a.room.Round = 1
	a.room.SetJudgeByIndex(0)
	a.logger.Info().Int("players", len(a.room.Participants)).Msg("game started")
	a.transitionJudgeSelection()
}

// handleUpdateSettings applies host-set game settings in the lobby.
func (a *RoomActor) handleUpdateSettings(p *Participant, data json.RawMessage) {
	if !p.IsHost {
		a.emitError(p.conn, "not_host", "only the host can change settings")
		return
	}
	if a.room.Phase != PhaseLobby {
		a.emitError(p.conn, "wrong_phase", "settings can only change in the lobby")
		return
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		a.emitError(p.conn, "malformed_payload", "malformed settings")
		return
	}
	if settings.MaxRounds < 1 || settings.MaxRounds > a.cfg.MaxRoundsBound {
		a.emitError(p.conn, "settings_out_of_bounds", "maxRounds must be between 1 and "+strconv.Itoa(a.cfg.MaxRoundsBound))
		return
	}
	if settings.MaxScore < 1 || settings.MaxScore > a.cfg.MaxScoreBound {
		a.emitError(p.conn, "settings_out_of_bounds", "maxScore must be between 1 and "+strconv.Itoa(a.cfg.MaxScoreBound))
		return
	}

	a.room.Settings = settings
	a.emitRoom(EvGameSettingsUpdated, settings)
	a.emitRoomUpdated()
}

// handleRestartGame returns a finished game to the lobby.
func (a *RoomActor) handleRestartGame(p *Participant) {
	if !p.IsHost {
		a.emitError(p.conn, "not_host", "only the host can restart the game")
		return
	}
	if a.room.Phase != PhaseGameOver {
		a.emitError(p.conn, "wrong_phase", "game is not over")
		return
	}

	a.room.ResetGame()
	a.logger.Info().Msg("game restarted")
	a.emitRoomUpdated()
	a.emitStateChange(StateChangePayload{Phase: PhaseLobby, Round: 0})
}

// handleAddViewer attaches a display endpoint.
func (a *RoomActor) handleAddViewer(msg AddViewer) {
	isPrimary := a.viewers.add(msg.ViewerID, msg.Conn)
	metrics.ViewersConnected.Inc()

	a.engine.Send(msg.ReplyTo, RoomAssigned{Code: a.room.Code, PID: a.selfPID, Viewer: true}, a.selfPID)
	a.emitTo(msg.Conn, EvMainScreenUpdate, MainScreenPayload{Room: a.room.Snapshot(), IsPrimary: isPrimary})

	a.logger.Info().Str("viewer", msg.ViewerID).Bool("primary", isPrimary).Msg("viewer joined")
}

// handleViewerGone removes a viewer and promotes the next one if the primary
// left.
func (a *RoomActor) handleViewerGone(viewerID string) {
	if a.viewers.byID(viewerID) == nil {
		return
	}
	promoted := a.viewers.remove(viewerID)
	metrics.ViewersConnected.Dec()

	if promoted != nil {
		a.emitTo(promoted.conn, EvMainScreenUpdate, MainScreenPayload{Room: a.room.Snapshot(), IsPrimary: true})
		a.logger.Info().Str("viewer", promoted.id).Msg("viewer promoted to primary")
		return
	}

	// The last viewer is gone; phases paced by the primary fall back to the
	// no-viewer path so the game keeps moving.
	if !a.viewers.empty() || a.room.PausedForDisconnection {
		return
	}
	switch a.room.Phase {
	case PhasePlayback:
		if !a.timer.running {
			a.beginJudging()
		}
	case PhaseRoundResults:
		if !a.timer.running {
			a.timer.startDelay(a.cfg.RoundResultsDelay, timerRoundResults, a.post)
		}
	}
}

// --- inbound payload parsing ---

// parsePromptID accepts either a bare string or {"promptId": "..."}.
func parsePromptID(data json.RawMessage) (string, error) {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil && bare != "" {
		return bare, nil
	}
	var wrapped struct {
		PromptID string `json:"promptId"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.PromptID != "" {
		return wrapped.PromptID, nil
	}
	return "", errMalformedPayload
}

// parseSounds accepts either a bare array or {"sounds": [...]}.
func parseSounds(data json.RawMessage) ([]string, error) {
	var bare []string
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}
	var wrapped struct {
		Sounds []string `json:"sounds"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Sounds != nil {
		return wrapped.Sounds, nil
	}
	return nil, errMalformedPayload
}

// parseIndex accepts a bare index as string or number, or {"index": ...}.
func parseIndex(data json.RawMessage) (int, error) {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		return strconv.Atoi(asString)
	}
	var asNumber int
	if err := json.Unmarshal(data, &asNumber); err == nil {
		return asNumber, nil
	}
	var wrapped struct {
		Index json.RawMessage `json:"index"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Index != nil {
		return parseIndex(wrapped.Index)
	}
	return 0, errMalformedPayload
}

// parseVote accepts a bare bool or {"continueWithoutPlayer": ...}.
func parseVote(data json.RawMessage) (bool, error) {
	var bare bool
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}
	var wrapped struct {
		ContinueWithoutPlayer *bool `json:"continueWithoutPlayer"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.ContinueWithoutPlayer != nil {
		return *wrapped.ContinueWithoutPlayer, nil
	}
	return false, errMalformedPayload
}
