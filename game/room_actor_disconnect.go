package game

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/lguibr/cacophony/metrics"
)

// handleParticipantGone reacts to a dropped transport. In the lobby and after
// game over the participant is simply removed; mid-game the room pauses and
// opens a reconnection window.
func (a *RoomActor) handleParticipantGone(connID string) {
	p := a.room.ParticipantByID(connID)
	if p == nil {
		return
	}

	if a.room.Phase == PhaseLobby || a.room.Phase == PhaseGameOver {
		a.logger.Info().Str("participant", p.ID).Str("name", p.Name).Msg("participant dropped outside active game")
		a.removeParticipant(p)
		return
	}

	a.pauseForDisconnection(p)
}

// pauseForDisconnection snapshots the dropped participant, freezes the phase
// and starts the reconnection grace countdown.
func (a *RoomActor) pauseForDisconnection(p *Participant) {
	a.logger.Info().Str("participant", p.ID).Str("name", p.Name).Str("phase", string(a.room.Phase)).Msg("participant dropped mid-game, pausing")

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
	// The manager keeps the old id mapped to this room while the entry is
	// reconnectable, so a later createRoom from the same player can clear it.

	snapshot := *p
	snapshot.Disconnected = true
	a.room.Disconnected = append(a.room.Disconnected, &DisconnectedParticipant{
		Participant:    snapshot,
		OriginalID:     p.ID,
		DisconnectedAt: time.Now(),
	})

	if len(a.room.Participants) == 0 {
		a.destroyRoom()
		return
	}

	if !a.room.PausedForDisconnection {
		a.room.PreviousPhase = a.room.Phase
		a.room.Phase = PhasePausedForDisconnection
		a.room.PausedForDisconnection = true
		a.room.DisconnectedAt = time.Now()
		// Judge selection restarts its delay on resume; the sound countdown
		// keeps its started flag and restarts in full.
		if a.room.PreviousPhase == PhaseJudgeSelection {
			a.room.JudgeTimerStarted = false
		}
	}
	a.room.vote = nil
	a.timer.cancel()

	grace := int(a.cfg.GraceTimeout.Seconds())
	a.emitRoomUpdated()
	a.emitRoom(EvGamePausedForDisconnection, PausePayload{Name: p.Name, GraceSeconds: grace})
	a.emitRoom(EvPlayerDisconnected, PlayerEventPayload{ID: p.ID, Name: p.Name})

	a.timer.startCountdown(grace, timerGrace, a.post)
}

// handleReconnect re-binds a disconnected entry to a fresh connection. The
// entry must match both the display name and the original connection id.
func (a *RoomActor) handleReconnect(msg ReconnectParticipant) {
	var entry *DisconnectedParticipant
	idx := -1
	for i, d := range a.room.Disconnected {
		if d.Name == msg.Name && d.OriginalID == msg.OriginalID {
			entry = d
			idx = i
			break
		}
	}
	if entry == nil {
		metrics.ReconnectionsTotal.WithLabelValues("rejected").Inc()
		a.emitTo(msg.Conn, EvRoomJoined, JoinResultPayload{Success: false, Reason: "no matching disconnected player"})
		a.engine.Send(msg.ReplyTo, RoomRejected{Reason: "no matching disconnected player"}, a.selfPID)
		return
	}

	a.room.Disconnected = append(a.room.Disconnected[:idx], a.room.Disconnected[idx+1:]...)

	p := &Participant{
		ID:       msg.ConnID,
		Name:     entry.Name,
		Color:    entry.Color,
		Emoji:    entry.Emoji,
		Score:    entry.Score,
		IsHost:   entry.IsHost,
		SoundSet: entry.SoundSet,
		conn:     msg.Conn,
	}
	a.room.Participants = append(a.room.Participants, p)
	metrics.ParticipantsConnected.Inc()
	metrics.ReconnectionsTotal.WithLabelValues("success").Inc()

	// The judge keeps the seat across a reconnection.
	if a.room.JudgeID == entry.OriginalID {
		a.room.JudgeID = p.ID
		a.room.ReseatJudge()
	}
	// A recorded submission follows the participant to the new id.
	for i := range a.room.Submissions {
		if a.room.Submissions[i].ParticipantID == entry.OriginalID {
			a.room.Submissions[i].ParticipantID = p.ID
		}
	}
	for i := range a.room.RandomizedSubmissions {
		if a.room.RandomizedSubmissions[i].ParticipantID == entry.OriginalID {
			a.room.RandomizedSubmissions[i].ParticipantID = p.ID
		}
	}
	if a.room.LastWinnerID == entry.OriginalID {
		a.room.LastWinnerID = p.ID
	}
	if a.room.OverallWinnerID == entry.OriginalID {
		a.room.OverallWinnerID = p.ID
	}

	a.engine.Send(a.managerPID, UnregisterParticipant{ConnID: entry.OriginalID}, a.selfPID)
	a.engine.Send(a.managerPID, RegisterParticipant{ConnID: p.ID, Code: a.room.Code}, a.selfPID)
	a.engine.Send(msg.ReplyTo, RoomAssigned{Code: a.room.Code, PID: a.selfPID}, a.selfPID)

	snapshot := a.room.Snapshot()
	a.emitTo(p.conn, EvRoomJoined, JoinResultPayload{Success: true, Room: &snapshot})
	a.emitRoom(EvPlayerReconnected, PlayerEventPayload{ID: p.ID, Name: p.Name})
	a.emitRoomUpdated()

	a.logger.Info().Str("participant", p.ID).Str("original", entry.OriginalID).Str("name", p.Name).Msg("participant reconnected")

	// If an in-flight vote concerned this player it is moot now.
	if a.room.vote != nil && a.room.vote.OriginalID == entry.OriginalID {
		a.room.vote = nil
	}

	if a.room.PausedForDisconnection {
		if len(a.room.Disconnected) == 0 {
			a.resumeGame()
		} else {
			// Others are still out; restart the grace window for them.
			a.timer.startCountdown(int(a.cfg.GraceTimeout.Seconds()), timerGrace, a.post)
		}
	}
}

// graceExpired elects a random active participant to vote on the oldest
// disconnected entry.
func (a *RoomActor) graceExpired() {
	if !a.room.PausedForDisconnection || len(a.room.Disconnected) == 0 {
		return
	}
	if len(a.room.Participants) == 0 {
		a.destroyRoom()
		return
	}

	entry := a.room.Disconnected[0]
	voter := a.room.Participants[rand.Intn(len(a.room.Participants))]
	a.room.vote = &voteState{
		VoterID:    voter.ID,
		OriginalID: entry.OriginalID,
		Name:       entry.Name,
	}

	timeLeft := int(a.cfg.VoteTimeout.Seconds())
	a.emitTo(voter.conn, EvReconnectionVoteRequest, VoteRequestPayload{Name: entry.Name, TimeLeft: timeLeft})
	a.timer.startCountdown(timeLeft, timerVote, a.post)

	a.logger.Info().Str("voter", voter.ID).Str("about", entry.Name).Msg("reconnection vote opened")
}

// handleVote records the elected voter's decision.
func (a *RoomActor) handleVote(p *Participant, data json.RawMessage) {
	if a.room.vote == nil || a.room.vote.VoterID != p.ID {
		a.logger.Debug().Str("participant", p.ID).Msg("ignoring vote from non-voter")
		return
	}
	continueWithout, err := parseVote(data)
	if err != nil {
		a.emitError(p.conn, "malformed_payload", "malformed vote")
		return
	}
	a.resolveVote(continueWithout, false)
}

// voteTimedOut closes an unanswered vote as "continue without the player".
func (a *RoomActor) voteTimedOut() {
	if a.room.vote == nil {
		return
	}
	a.resolveVote(true, true)
}

// resolveVote applies the vote outcome: either drop the disconnected entry
// permanently or re-open the grace window to keep waiting.
func (a *RoomActor) resolveVote(continueWithout, defaulted bool) {
	a.timer.cancel()
	vote := a.room.vote
	a.room.vote = nil

	a.emitRoom(EvReconnectionVoteResult, VoteResultPayload{
		Name:                  vote.Name,
		ContinueWithoutPlayer: continueWithout,
		Defaulted:             defaulted,
	})
	a.logger.Info().Str("about", vote.Name).Bool("continue", continueWithout).Bool("defaulted", defaulted).Msg("reconnection vote resolved")

	if !continueWithout {
		a.timer.startCountdown(int(a.cfg.GraceTimeout.Seconds()), timerGrace, a.post)
		return
	}

	a.dropDisconnected(vote.OriginalID)
	metrics.ReconnectionsTotal.WithLabelValues("abandoned").Inc()

	if len(a.room.Disconnected) == 0 {
		a.resumeGame()
	} else {
		a.timer.startCountdown(int(a.cfg.GraceTimeout.Seconds()), timerGrace, a.post)
	}
}

// dropDisconnected removes one entry from the reconnection window for good.
func (a *RoomActor) dropDisconnected(originalID string) {
	for i, d := range a.room.Disconnected {
		if d.OriginalID == originalID {
			a.room.Disconnected = append(a.room.Disconnected[:i], a.room.Disconnected[i+1:]...)
			a.engine.Send(a.managerPID, UnregisterParticipant{ConnID: d.OriginalID}, a.selfPID)
			a.emitRoom(EvPlayerLeft, PlayerEventPayload{ID: d.OriginalID, Name: d.Name})
			// The host flag leaves with the entry; the room must not end up
			// hostless.
			if d.IsHost && a.room.Host() == nil && len(a.room.Participants) > 0 {
				a.room.Participants[0].IsHost = true
				a.emitRoomUpdated()
			}
			return
		}
	}
}

// resumeGame restores the frozen phase and conditionally restarts its timer.
func (a *RoomActor) resumeGame() {
	a.timer.cancel()
	restored := a.room.PreviousPhase
	a.room.Phase = restored
	a.room.PreviousPhase = ""
	a.room.PausedForDisconnection = false
	a.room.vote = nil

	if a.room.Judge() == nil {
		a.room.ReseatJudge()
	}

	a.logger.Info().Str("phase", string(restored)).Msg("game resumed")

	a.emitRoom(EvGameResumed, GameResumedPayload{Phase: restored})
	a.emitStateChange(a.resumeStatePayload(restored))
	a.emitRoomUpdated()

	switch restored {
	case PhaseJudgeSelection:
		if !a.room.JudgeTimerStarted {
			a.room.JudgeTimerStarted = true
			a.timer.startDelay(a.cfg.JudgeSelectionDelay, timerJudgeSelection, a.post)
		}
	case PhaseSoundSelection:
		// The countdown restarts in full, but only if it had started before
		// the pause. An untouched round still waits for the first submission.
		if a.room.SoundTimerStarted {
			a.timer.startCountdown(int(a.cfg.SoundSelectionTimeout.Seconds()), timerSoundSelection, a.post)
		}
		if a.room.AllSubmitted() {
			a.finishSoundSelection()
		}
	case PhasePlayback:
		if a.viewers.empty() {
			// The pacing viewers are gone; skip straight to deliberation.
			a.beginJudging()
		} else if a.room.PlaybackIndex >= len(a.room.RandomizedSubmissions) {
			a.timer.startDelay(a.cfg.PreJudgingDelay, timerPreJudging, a.post)
		}
	case PhaseRoundResults:
		if a.room.OverallWinnerID != "" {
			a.timer.startDelay(a.cfg.CelebrationDelay, timerCelebration, a.post)
		} else if a.viewers.empty() {
			a.timer.startDelay(a.cfg.RoundResultsDelay, timerRoundResults, a.post)
		}
	}
}

// resumeStatePayload rebuilds the phase-specific state payload after a pause.
func (a *RoomActor) resumeStatePayload(phase Phase) StateChangePayload {
	payload := StateChangePayload{
		Phase:   phase,
		Round:   a.room.Round,
		JudgeID: a.room.JudgeID,
	}
	switch phase {
	case PhasePromptSelection:
		payload.Prompts = a.room.AvailablePrompts
	case PhaseSoundSelection:
		payload.Prompt = a.room.CurrentPrompt
		payload.TimeLimit = int(a.cfg.SoundSelectionTimeout.Seconds())
	case PhasePlayback:
		payload.Prompt = a.room.CurrentPrompt
		payload.RandomizedSubmissions = a.room.RandomizedSubmissions
	case PhaseJudging:
		payload.Prompt = a.room.CurrentPrompt
		payload.Submissions = a.room.Submissions
		payload.RandomizedSubmissions = a.room.RandomizedSubmissions
	case PhaseRoundResults:
		payload.WinnerID = a.room.LastWinnerID
	}
	return payload
}

// sweepStaleDisconnections drops reconnection entries that outlived the outer
// timeout, protecting against a wedged vote loop.
func (a *RoomActor) sweepStaleDisconnections() {
	if len(a.room.Disconnected) == 0 {
		return
	}
	cutoff := time.Now().Add(-a.cfg.SweepOuterTimeout)
	kept := a.room.Disconnected[:0]
	var dropped []*DisconnectedParticipant
	for _, d := range a.room.Disconnected {
		if d.DisconnectedAt.Before(cutoff) {
			dropped = append(dropped, d)
		} else {
			kept = append(kept, d)
		}
	}
	if len(dropped) == 0 {
		return
	}
	a.room.Disconnected = kept

	for _, d := range dropped {
		a.logger.Warn().Str("name", d.Name).Time("since", d.DisconnectedAt).Msg("dropping stale disconnected entry")
		a.engine.Send(a.managerPID, UnregisterParticipant{ConnID: d.OriginalID}, a.selfPID)
		a.emitRoom(EvPlayerLeft, PlayerEventPayload{ID: d.OriginalID, Name: d.Name})
		if a.room.vote != nil && a.room.vote.OriginalID == d.OriginalID {
			a.room.vote = nil
		}
	}
	metrics.ReconnectionsTotal.WithLabelValues("expired").Add(float64(len(dropped)))

	if a.room.Host() == nil && len(a.room.Participants) > 0 {
		a.room.Participants[0].IsHost = true
		a.emitRoomUpdated()
	}

	if a.room.PausedForDisconnection && len(a.room.Disconnected) == 0 {
		a.resumeGame()
	}
}

// handleClearReconnection discards a disconnected entry whose player chose to
// start over instead of reconnecting.
func (a *RoomActor) handleClearReconnection(originalID string) {
	before := len(a.room.Disconnected)
	a.dropDisconnected(originalID)
	if len(a.room.Disconnected) == before {
		return
	}
	if a.room.vote != nil && a.room.vote.OriginalID == originalID {
		a.room.vote = nil
	}
	a.logger.Info().Str("original", originalID).Msg("reconnection entry cleared")
	if a.room.PausedForDisconnection && len(a.room.Disconnected) == 0 {
		a.resumeGame()
	}
}
