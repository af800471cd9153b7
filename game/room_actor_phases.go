package game

import (
	"encoding/json"
	"math/rand"
	"strings"
	"time"

	"github.com/lguibr/cacophony/catalog"
	"github.com/lguibr/cacophony/metrics"
)

// transitionJudgeSelection announces the round's judge and schedules the
// automatic advance into prompt selection. Emission order on every phase
// transition is roomUpdated, then gameStateChanged, then the phase event.
func (a *RoomActor) transitionJudgeSelection() {
	a.room.Phase = PhaseJudgeSelection
	judge := a.room.Judge()
	if judge == nil {
		a.logger.Error().Msg("entering judge selection with no judge")
		return
	}

	a.emitRoomUpdated()
	a.emitStateChange(StateChangePayload{
		Phase:   PhaseJudgeSelection,
		Round:   a.room.Round,
		JudgeID: judge.ID,
	})
	a.emitRoom(EvJudgeSelected, JudgeSelectedPayload{
		JudgeID:   judge.ID,
		JudgeName: judge.Name,
		Round:     a.room.Round,
	})

	if !a.room.JudgeTimerStarted {
		a.room.JudgeTimerStarted = true
		a.timer.startDelay(a.cfg.JudgeSelectionDelay, timerJudgeSelection, a.post)
	}
}

// beginPromptSelection deals prompt choices to the judge and starts the
// selection countdown.
func (a *RoomActor) beginPromptSelection() {
	choices := a.catalog.SamplePrompts(a.cfg.PromptChoices, a.room.UsedPromptIDs, a.room.Settings.AllowExplicitContent)
	if len(choices) == 0 {
		a.logger.Warn().Msg("prompt catalog empty, round will fall through on timeout")
	}
	for i := range choices {
		choices[i] = a.substitutePlaceholders(choices[i])
	}
	a.room.AvailablePrompts = choices
	a.room.Phase = PhasePromptSelection

	timeLimit := int(a.cfg.PromptSelectionTimeout.Seconds())
	a.emitRoomUpdated()
	a.emitStateChange(StateChangePayload{
		Phase:     PhasePromptSelection,
		Round:     a.room.Round,
		JudgeID:   a.room.JudgeID,
		TimeLimit: timeLimit,
		Prompts:   choices,
	})

	a.timer.startCountdown(timeLimit, timerPromptSelection, a.post)
}

// substitutePlaceholders replaces the <ANY> marker in a prompt's text with a
// random participant's name.
func (a *RoomActor) substitutePlaceholders(p catalog.Prompt) catalog.Prompt {
	if !strings.Contains(p.Text, "<ANY>") || len(a.room.Participants) == 0 {
		return p
	}
	name := a.room.Participants[rand.Intn(len(a.room.Participants))].Name
	p.Text = strings.ReplaceAll(p.Text, "<ANY>", name)
	return p
}

// handleSelectPrompt records the judge's prompt choice.
func (a *RoomActor) handleSelectPrompt(p *Participant, data json.RawMessage) {
	if p.ID != a.room.JudgeID {
		a.emitError(p.conn, "not_judge", "only the judge can select the prompt")
		return
	}
	if a.room.Phase != PhasePromptSelection {
		a.emitError(p.conn, "wrong_phase", "not selecting a prompt right now")
		return
	}

	promptID, err := parsePromptID(data)
	if err != nil {
		a.emitError(p.conn, "malformed_payload", "malformed prompt selection")
		return
	}
	for i := range a.room.AvailablePrompts {
		if a.room.AvailablePrompts[i].ID == promptID {
			chosen := a.room.AvailablePrompts[i]
			a.beginSoundSelection(&chosen)
			return
		}
	}
	a.emitError(p.conn, "invalid_prompt", "prompt is not among the dealt choices")
}

// promptSelectionTimedOut falls back to the first dealt prompt.
func (a *RoomActor) promptSelectionTimedOut() {
	if len(a.room.AvailablePrompts) == 0 {
		a.logger.Warn().Msg("prompt selection timed out with no prompts, skipping round")
		a.beginNextRound()
		return
	}
	chosen := a.room.AvailablePrompts[0]
	a.logger.Info().Str("prompt", chosen.ID).Msg("prompt selection timed out, using first choice")
	a.beginSoundSelection(&chosen)
}

// beginSoundSelection locks in the prompt, deals each non-judge a private
// sound set and enters sound selection. The countdown does not start until
// the first submission arrives.
func (a *RoomActor) beginSoundSelection(chosen *catalog.Prompt) {
	a.timer.cancel()

	a.room.CurrentPrompt = chosen
	a.room.UsedPromptIDs[chosen.ID] = true
	a.room.AvailablePrompts = nil
	a.room.Submissions = nil
	a.room.RandomizedSubmissions = nil
	a.room.ShuffleSeed = ""
	a.room.PlaybackIndex = 0
	a.room.SoundTimerStarted = false

	for _, p := range a.room.NonJudges() {
		sounds := a.catalog.SampleSounds(a.cfg.SoundSetSize, "", a.room.Settings.AllowExplicitContent)
		ids := make([]string, 0, len(sounds))
		for _, s := range sounds {
			ids = append(ids, s.ID)
		}
		p.SoundSet = ids
	}

	a.room.Phase = PhaseSoundSelection
	a.emitRoomUpdated()
	a.emitStateChange(StateChangePayload{
		Phase:     PhaseSoundSelection,
		Round:     a.room.Round,
		JudgeID:   a.room.JudgeID,
		Prompt:    chosen,
		TimeLimit: int(a.cfg.SoundSelectionTimeout.Seconds()),
	})
	a.emitRoom(EvPromptSelected, PromptSelectedPayload{Prompt: *chosen})
}

// handleSubmitSounds records a non-judge's sound picks. The first submission
// of the round arms the selection countdown; submissions are immutable.
func (a *RoomActor) handleSubmitSounds(p *Participant, data json.RawMessage) {
	if a.room.Phase != PhaseSoundSelection {
		a.emitError(p.conn, "wrong_phase", "not accepting submissions right now")
		return
	}
	if p.ID == a.room.JudgeID {
		a.emitError(p.conn, "judge_cannot_submit", "the judge does not submit sounds")
		return
	}
	if a.room.SubmissionFor(p.ID) != nil {
		a.emitError(p.conn, "already_submitted", "submission already recorded")
		return
	}

	sounds, err := parseSounds(data)
	if err != nil || len(sounds) < 1 || len(sounds) > 2 {
		a.emitError(p.conn, "invalid_submission", "submit one or two sounds")
		return
	}

	a.room.Submissions = append(a.room.Submissions, Submission{
		ParticipantID: p.ID,
		Name:          p.Name,
		Sounds:        sounds,
	})
	a.emitRoom(EvSoundSubmitted, SoundSubmittedPayload{
		ParticipantID: p.ID,
		Submitted:     len(a.room.Submissions),
		Expected:      len(a.room.NonJudges()),
	})

	if !a.room.SoundTimerStarted {
		a.room.SoundTimerStarted = true
		a.timer.startCountdown(int(a.cfg.SoundSelectionTimeout.Seconds()), timerSoundSelection, a.post)
	}

	if a.room.AllSubmitted() {
		a.finishSoundSelection()
	}
}

// soundSelectionTimedOut auto-submits for stragglers and moves on.
func (a *RoomActor) soundSelectionTimedOut() {
	a.autoSubmitMissing()
	a.finishSoundSelection()
}

// autoSubmitMissing draws a random submission from each missing non-judge's
// dealt sound set: two sounds 70% of the time, one otherwise.
func (a *RoomActor) autoSubmitMissing() {
	for _, p := range a.room.NonJudges() {
		if a.room.SubmissionFor(p.ID) != nil || len(p.SoundSet) == 0 {
			continue
		}
		count := 1
		if len(p.SoundSet) >= 2 && rand.Float64() < 0.7 {
			count = 2
		}
		perm := rand.Perm(len(p.SoundSet))
		sounds := make([]string, 0, count)
		for _, idx := range perm[:count] {
			sounds = append(sounds, p.SoundSet[idx])
		}
		a.room.Submissions = append(a.room.Submissions, Submission{
			ParticipantID: p.ID,
			Name:          p.Name,
			Sounds:        sounds,
		})
		a.logger.Info().Str("participant", p.ID).Int("sounds", count).Msg("auto-submitted for straggler")
	}
}

// finishSoundSelection shuffles the submissions deterministically and enters
// playback when viewers are attached, judging otherwise.
func (a *RoomActor) finishSoundSelection() {
	a.timer.cancel()

	shuffler := NewShuffler(SubmissionSeed(a.room.Code, a.room.Round, time.Now()))
	a.room.ShuffleSeed = shuffler.Seed()
	a.room.RandomizedSubmissions = shuffler.Shuffle(a.room.Submissions)
	a.room.PlaybackIndex = 0

	if a.viewers.empty() {
		a.beginJudging()
		return
	}

	a.room.Phase = PhasePlayback
	a.emitRoomUpdated()
	a.emitStateChange(StateChangePayload{
		Phase:                 PhasePlayback,
		Round:                 a.room.Round,
		JudgeID:               a.room.JudgeID,
		Prompt:                a.room.CurrentPrompt,
		RandomizedSubmissions: a.room.RandomizedSubmissions,
	})
}

// handleRequestNextSubmission advances viewer-driven playback. Only the
// primary viewer paces it; requests from others are ignored.
func (a *RoomActor) handleRequestNextSubmission(v *viewer) {
	if !a.viewers.isPrimary(v.id) {
		a.logger.Debug().Str("viewer", v.id).Msg("ignoring playback request from non-primary viewer")
		return
	}
	if a.room.Phase != PhasePlayback {
		return
	}

	count := len(a.room.RandomizedSubmissions)
	if a.room.PlaybackIndex >= count {
		return
	}

	a.emitRoom(EvPlaySubmission, PlaySubmissionPayload{
		Index:      a.room.PlaybackIndex,
		Count:      count,
		Submission: a.room.RandomizedSubmissions[a.room.PlaybackIndex],
	})
	a.room.PlaybackIndex++

	if a.room.PlaybackIndex == count {
		a.timer.startDelay(a.cfg.PreJudgingDelay, timerPreJudging, a.post)
	}
}

// beginJudging hands the full submission lists to the room so the judge can
// deliberate.
func (a *RoomActor) beginJudging() {
	a.room.Phase = PhaseJudging
	a.emitRoomUpdated()
	a.emitStateChange(StateChangePayload{
		Phase:                 PhaseJudging,
		Round:                 a.room.Round,
		JudgeID:               a.room.JudgeID,
		Prompt:                a.room.CurrentPrompt,
		Submissions:           a.room.Submissions,
		RandomizedSubmissions: a.room.RandomizedSubmissions,
	})
}

// handleRequestJudgingPlayback replays one anonymized submission during
// judging: through the viewers when any are attached, locally on the judge's
// client otherwise.
func (a *RoomActor) handleRequestJudgingPlayback(p *Participant, data json.RawMessage) {
	if p.ID != a.room.JudgeID {
		a.emitError(p.conn, "not_judge", "only the judge can replay submissions")
		return
	}
	if a.room.Phase != PhaseJudging {
		a.emitError(p.conn, "wrong_phase", "not judging right now")
		return
	}

	index, err := parseIndex(data)
	if err != nil || index < 0 || index >= len(a.room.RandomizedSubmissions) {
		a.emitError(p.conn, "invalid_index", "no submission at that position")
		return
	}

	payload := PlayJudgingSubmissionPayload{
		Index:      index,
		Submission: a.room.RandomizedSubmissions[index],
	}
	if a.viewers.empty() {
		payload.Local = true
		a.emitTo(p.conn, EvPlayJudgingSubmission, payload)
		return
	}
	a.emitViewers(EvPlayJudgingSubmission, payload)
}

// handleSelectWinner records the judge's verdict, scores the winner and
// enters round results.
func (a *RoomActor) handleSelectWinner(p *Participant, data json.RawMessage) {
	if p.ID != a.room.JudgeID {
		a.emitError(p.conn, "not_judge", "only the judge picks the winner")
		return
	}
	if a.room.Phase != PhaseJudging {
		a.emitError(p.conn, "wrong_phase", "not judging right now")
		return
	}

	index, err := parseIndex(data)
	if err != nil || index < 0 || index >= len(a.room.RandomizedSubmissions) {
		a.emitError(p.conn, "invalid_index", "no submission at that position")
		return
	}

	winning := a.room.RandomizedSubmissions[index]
	winner := a.room.ParticipantByID(winning.ParticipantID)
	if winner == nil {
		a.emitError(p.conn, "winner_not_found", "the submitter is no longer in the room")
		return
	}

	winner.Score++
	a.room.LastWinnerID = winner.ID
	a.room.LastWinningSubmission = &winning
	a.room.Phase = PhaseRoundResults

	a.emitRoomUpdated()
	a.emitStateChange(StateChangePayload{
		Phase:    PhaseRoundResults,
		Round:    a.room.Round,
		JudgeID:  a.room.JudgeID,
		WinnerID: winner.ID,
	})
	a.emitRoom(EvRoundComplete, RoundCompletePayload{
		WinnerID:   winner.ID,
		WinnerName: winner.Name,
		Submission: winning,
		Scores:     a.scores(),
	})

	// With viewers the primary paces the result screen; without them a short
	// timer does.
	if a.viewers.empty() {
		a.timer.startDelay(a.cfg.RoundResultsDelay, timerRoundResults, a.post)
	}
}

// handleWinnerAudioComplete is the primary viewer's signal that the result
// screen finished playing the winning submission.
func (a *RoomActor) handleWinnerAudioComplete(v *viewer) {
	if !a.viewers.isPrimary(v.id) {
		a.logger.Debug().Str("viewer", v.id).Msg("ignoring winnerAudioComplete from non-primary viewer")
		return
	}
	if a.room.Phase != PhaseRoundResults {
		return
	}
	a.finishRoundResults()
}

// finishRoundResults checks the end conditions and either schedules the win
// celebration, enters a sudden-death round, or starts the next round.
func (a *RoomActor) finishRoundResults() {
	top, leaders := a.room.TopScorers()
	endOfRounds := a.room.Round >= a.room.Settings.MaxRounds
	scoreReached := top > 0 && top >= a.room.Settings.MaxScore

	if !endOfRounds && !scoreReached {
		a.beginNextRound()
		return
	}

	ids := make([]string, 0, len(leaders))
	for _, p := range leaders {
		ids = append(ids, p.ID)
	}
	a.emitRoom(EvTieBreakerRound, TieBreakerPayload{ParticipantIDs: ids, Score: top})

	if len(leaders) == 1 {
		a.room.OverallWinnerID = leaders[0].ID
		a.timer.startDelay(a.cfg.CelebrationDelay, timerCelebration, a.post)
		return
	}

	// Tied leaders: play another round until the tie breaks.
	a.logger.Info().Int("tied", len(leaders)).Int("score", top).Msg("tie at end condition, sudden death round")
	a.beginNextRound()
}

// beginNextRound rotates the judge and starts a fresh round.
func (a *RoomActor) beginNextRound() {
	a.timer.cancel()
	a.room.ClearRoundState()
	a.room.RotateJudge()
	a.room.Round++
	a.transitionJudgeSelection()
}

// completeGame ends the game after the celebration delay.
func (a *RoomActor) completeGame() {
	winner := a.room.ParticipantByID(a.room.OverallWinnerID)
	if winner == nil {
		a.logger.Error().Str("winner", a.room.OverallWinnerID).Msg("overall winner missing at game completion")
		a.room.Phase = PhaseGameOver
		a.emitRoomUpdated()
		return
	}

	a.room.Phase = PhaseGameOver
	metrics.GamesCompletedTotal.Inc()

	finalScores := a.scores()
	a.emitRoomUpdated()
	a.emitStateChange(StateChangePayload{
		Phase:       PhaseGameOver,
		Round:       a.room.Round,
		WinnerID:    winner.ID,
		FinalScores: finalScores,
	})
	a.emitRoom(EvGameComplete, GameCompletePayload{
		WinnerID:    winner.ID,
		WinnerName:  winner.Name,
		FinalScores: finalScores,
	})

	a.logger.Info().Str("winner", winner.ID).Int("rounds", a.room.Round).Msg("game complete")
}

// scores maps participant ids to current scores.
func (a *RoomActor) scores() map[string]int {
	out := make(map[string]int, len(a.room.Participants))
	for _, p := range a.room.Participants {
		out[p.ID] = p.Score
	}
	return out
}
