package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLobbyJoinAndHostAssignment(t *testing.T) {
	tr := newTestRoom(t)
	h, p2, _ := tr.startLobby()

	require.Len(t, tr.actor.room.Participants, 3)
	assert.True(t, tr.actor.room.Participants[0].IsHost)

	created := h.last(EvRoomCreated)
	require.NotNil(t, created)
	assert.True(t, created.Data.(RoomCreatedPayload).Room.Participants[0].IsHost)

	joined := p2.last(EvRoomJoined)
	require.NotNil(t, joined)
	assert.True(t, joined.Data.(JoinResultPayload).Success)

	// Everyone already seated heard about the later arrivals.
	assert.Equal(t, 2, h.count(EvPlayerJoined))
}

func TestJoinRejectsDuplicateName(t *testing.T) {
	tr := newTestRoom(t)
	tr.startLobby()

	conn := &fakeConn{}
	tr.deliver(AddParticipant{Conn: conn, ConnID: "c4", Name: "Bob"})

	result := conn.last(EvRoomJoined)
	require.NotNil(t, result)
	assert.False(t, result.Data.(JoinResultPayload).Success)
	assert.Len(t, tr.actor.room.Participants, 3)
}

func TestJoinRejectsFullRoom(t *testing.T) {
	tr := newTestRoom(t)
	for i := 0; i < tr.actor.cfg.MaxPlayers; i++ {
		tr.join(string(rune('a'+i)), "Player"+string(rune('A'+i)), i == 0)
	}

	conn := &fakeConn{}
	tr.deliver(AddParticipant{Conn: conn, ConnID: "extra", Name: "Zed"})

	result := conn.last(EvRoomJoined)
	require.NotNil(t, result)
	assert.False(t, result.Data.(JoinResultPayload).Success)
}

func TestStartGameRequiresHostAndQuorum(t *testing.T) {
	tr := newTestRoom(t)
	h := tr.join("c1", "Alice", true)
	p2 := tr.join("c2", "Bob", false)

	tr.event("c2", EvStartGame, `{}`)
	require.NotNil(t, p2.last(EvError))
	assert.Equal(t, PhaseLobby, tr.actor.room.Phase)

	tr.event("c1", EvStartGame, `{}`)
	require.NotNil(t, h.last(EvError))
	assert.Equal(t, PhaseLobby, tr.actor.room.Phase)

	tr.join("c3", "Cara", false)
	tr.event("c1", EvStartGame, `{}`)
	assert.Equal(t, PhaseJudgeSelection, tr.actor.room.Phase)
	assert.Equal(t, "c1", tr.actor.room.JudgeID)
	assert.Equal(t, 1, tr.actor.room.Round)
}

func TestSettingsValidation(t *testing.T) {
	tr := newTestRoom(t)
	h, _, _ := tr.startLobby()

	tr.event("c1", EvUpdateGameSettings, `{"maxRounds":0,"maxScore":3}`)
	require.NotNil(t, h.last(EvError))

	tr.event("c1", EvUpdateGameSettings, `{"maxRounds":5,"maxScore":99}`)
	require.NotNil(t, h.last(EvError))

	h.reset()
	tr.event("c1", EvUpdateGameSettings, `{"maxRounds":7,"maxScore":4,"allowExplicitContent":true}`)
	assert.Nil(t, h.last(EvError))
	require.NotNil(t, h.last(EvGameSettingsUpdated))
	assert.Equal(t, 7, tr.actor.room.Settings.MaxRounds)
	assert.Equal(t, 4, tr.actor.room.Settings.MaxScore)
	assert.True(t, tr.actor.room.Settings.AllowExplicitContent)
}

func TestTransitionEmissionOrder(t *testing.T) {
	tr := newTestRoom(t)
	h, _, _ := tr.startLobby()
	h.reset()

	tr.event("c1", EvStartGame, `{}`)

	require.Equal(t, []string{EvRoomUpdated, EvGameStateChanged, EvJudgeSelected}, h.names())
}

func TestHappyPathRound(t *testing.T) {
	tr := newTestRoom(t)
	h, p2, _ := tr.startLobby()
	tr.startGame()

	// Six distinct prompts dealt to the judge.
	require.Len(t, tr.actor.room.AvailablePrompts, 6)
	tr.selectFirstPrompt()

	// Non-judges hold private sound sets; the judge holds none.
	assert.Empty(t, tr.actor.room.Judge().SoundSet)
	for _, p := range tr.actor.room.NonJudges() {
		assert.Len(t, p.SoundSet, tr.actor.cfg.SoundSetSize)
	}
	require.NotNil(t, h.last(EvPromptSelected))

	// The countdown waits for the first submission.
	assert.False(t, tr.actor.timer.running)
	tr.submitFor("c2")
	assert.True(t, tr.actor.room.SoundTimerStarted)
	assert.True(t, tr.actor.timer.running)

	sub := p2.last(EvSoundSubmitted)
	require.NotNil(t, sub)
	assert.Equal(t, 1, sub.Data.(SoundSubmittedPayload).Submitted)
	assert.Equal(t, 2, sub.Data.(SoundSubmittedPayload).Expected)

	// Last submission completes the set; with no viewers we go straight to
	// judging.
	tr.submitFor("c3")
	require.Equal(t, PhaseJudging, tr.actor.room.Phase)
	require.Len(t, tr.actor.room.RandomizedSubmissions, 2)
	assert.NotEmpty(t, tr.actor.room.ShuffleSeed)

	tr.event("c1", EvSelectWinner, `"0"`)
	require.Equal(t, PhaseRoundResults, tr.actor.room.Phase)

	complete := h.last(EvRoundComplete)
	require.NotNil(t, complete)
	payload := complete.Data.(RoundCompletePayload)
	winner := tr.actor.room.ParticipantByID(payload.WinnerID)
	require.NotNil(t, winner)
	assert.Equal(t, 1, winner.Score)
	assert.Equal(t, winner.ID, tr.actor.room.LastWinnerID)

	// No viewers: a short timer paces the result screen into the next round.
	require.True(t, tr.actor.timer.running)
	tr.expire()
	assert.Equal(t, PhaseJudgeSelection, tr.actor.room.Phase)
	assert.Equal(t, 2, tr.actor.room.Round)
	assert.Equal(t, "c2", tr.actor.room.JudgeID, "judge rotates in room order")
}

func TestJudgeCannotSubmitAndSubmissionsAreImmutable(t *testing.T) {
	tr := newTestRoom(t)
	h, p2, _ := tr.startLobby()
	tr.startGame()
	tr.selectFirstPrompt()

	tr.event("c1", EvSubmitSounds, `["s1"]`)
	require.NotNil(t, h.last(EvError))
	assert.Empty(t, tr.actor.room.Submissions)

	tr.submitFor("c2")
	first := tr.actor.room.SubmissionFor("c2").Sounds
	tr.event("c2", EvSubmitSounds, `["s9","s10"]`)
	require.NotNil(t, p2.last(EvError))
	assert.Equal(t, first, tr.actor.room.SubmissionFor("c2").Sounds)
}

func TestSubmitSoundsBounds(t *testing.T) {
	tr := newTestRoom(t)
	_, p2, _ := tr.startLobby()
	tr.startGame()
	tr.selectFirstPrompt()

	tr.event("c2", EvSubmitSounds, `[]`)
	require.NotNil(t, p2.last(EvError))

	tr.event("c2", EvSubmitSounds, `["s1","s2","s3"]`)
	assert.Empty(t, tr.actor.room.Submissions)
}

func TestSoundSelectionTimeoutAutoSubmits(t *testing.T) {
	tr := newTestRoom(t)
	tr.startLobby()
	tr.startGame()
	tr.selectFirstPrompt()

	tr.submitFor("c2")
	tr.expire()

	require.Equal(t, PhaseJudging, tr.actor.room.Phase)
	require.Len(t, tr.actor.room.Submissions, 2)
	auto := tr.actor.room.SubmissionFor("c3")
	require.NotNil(t, auto)
	assert.GreaterOrEqual(t, len(auto.Sounds), 1)
	assert.LessOrEqual(t, len(auto.Sounds), 2)

	// Auto-picked sounds come from the straggler's own dealt set.
	set := make(map[string]bool)
	for _, id := range tr.actor.room.ParticipantByID("c3").SoundSet {
		set[id] = true
	}
	for _, id := range auto.Sounds {
		assert.True(t, set[id])
	}
}

func TestPromptSelectionTimeoutFallsBackToFirstChoice(t *testing.T) {
	tr := newTestRoom(t)
	tr.startLobby()
	tr.startGame()

	first := tr.actor.room.AvailablePrompts[0]
	tr.expire()

	require.Equal(t, PhaseSoundSelection, tr.actor.room.Phase)
	require.NotNil(t, tr.actor.room.CurrentPrompt)
	assert.Equal(t, first.ID, tr.actor.room.CurrentPrompt.ID)
	assert.True(t, tr.actor.room.UsedPromptIDs[first.ID])
}

func TestStaleTimerGenerationIgnored(t *testing.T) {
	tr := newTestRoom(t)
	tr.startLobby()
	tr.startGame()

	stale := tr.actor.timer.gen - 1
	tr.deliver(timerExpired{Gen: stale, Purpose: timerPromptSelection})
	assert.Equal(t, PhasePromptSelection, tr.actor.room.Phase)

	// A second expiry for an already-consumed generation is also a no-op.
	live := tr.actor.timer.gen
	tr.expire()
	require.Equal(t, PhaseSoundSelection, tr.actor.room.Phase)
	tr.deliver(timerExpired{Gen: live, Purpose: timerPromptSelection})
	assert.Equal(t, PhaseSoundSelection, tr.actor.room.Phase)
}

func TestViewerDrivenPlaybackAndResults(t *testing.T) {
	tr := newTestRoom(t)
	h, _, _ := tr.startLobby()
	v1 := tr.addViewer("v1")
	v2 := tr.addViewer("v2")

	require.True(t, v1.last(EvMainScreenUpdate).Data.(MainScreenPayload).IsPrimary)
	require.False(t, v2.last(EvMainScreenUpdate).Data.(MainScreenPayload).IsPrimary)

	tr.startGame()
	tr.selectFirstPrompt()
	tr.submitFor("c2")
	tr.submitFor("c3")

	// With viewers attached the room parks in playback.
	require.Equal(t, PhasePlayback, tr.actor.room.Phase)
	assert.False(t, tr.actor.timer.running)

	// Only the primary viewer paces playback.
	tr.viewerEvent("v2", EvRequestNextSubmission, `{}`)
	assert.Nil(t, h.last(EvPlaySubmission))

	tr.viewerEvent("v1", EvRequestNextSubmission, `{}`)
	play := h.last(EvPlaySubmission)
	require.NotNil(t, play)
	assert.Equal(t, 0, play.Data.(PlaySubmissionPayload).Index)

	tr.viewerEvent("v1", EvRequestNextSubmission, `{}`)
	assert.Equal(t, 1, h.last(EvPlaySubmission).Data.(PlaySubmissionPayload).Index)

	// Cursor exhausted: a short delay leads into judging.
	require.True(t, tr.actor.timer.running)
	tr.expire()
	require.Equal(t, PhaseJudging, tr.actor.room.Phase)

	tr.event("c1", EvSelectWinner, `"1"`)
	require.Equal(t, PhaseRoundResults, tr.actor.room.Phase)

	// With viewers the primary paces the result screen, not a timer.
	assert.False(t, tr.actor.timer.running)
	tr.viewerEvent("v2", EvWinnerAudioComplete, `{}`)
	assert.Equal(t, PhaseRoundResults, tr.actor.room.Phase)
	tr.viewerEvent("v1", EvWinnerAudioComplete, `{}`)
	assert.Equal(t, PhaseJudgeSelection, tr.actor.room.Phase)
	assert.Equal(t, 2, tr.actor.room.Round)
}

func TestJudgingPlaybackRouting(t *testing.T) {
	tr := newTestRoom(t)
	h, _, _ := tr.startLobby()
	tr.startGame()
	tr.selectFirstPrompt()
	tr.submitFor("c2")
	tr.submitFor("c3")
	require.Equal(t, PhaseJudging, tr.actor.room.Phase)

	// No viewers: replay lands on the judge, marked local.
	tr.event("c1", EvRequestJudgingPlayback, `{"index":1}`)
	replay := h.last(EvPlayJudgingSubmission)
	require.NotNil(t, replay)
	assert.True(t, replay.Data.(PlayJudgingSubmissionPayload).Local)
	assert.Equal(t, 1, replay.Data.(PlayJudgingSubmissionPayload).Index)

	tr.event("c1", EvRequestJudgingPlayback, `{"index":9}`)
	require.NotNil(t, h.last(EvError))
}

func TestViewerPromotionOnPrimaryLeaving(t *testing.T) {
	tr := newTestRoom(t)
	tr.startLobby()
	tr.addViewer("v1")
	v2 := tr.addViewer("v2")

	tr.deliver(ViewerGone{ViewerID: "v1"})

	update := v2.last(EvMainScreenUpdate)
	require.NotNil(t, update)
	assert.True(t, update.Data.(MainScreenPayload).IsPrimary)
}

func TestLastViewerLeavingMidPlaybackFallsBackToJudging(t *testing.T) {
	tr := newTestRoom(t)
	tr.startLobby()
	tr.addViewer("v1")
	tr.startGame()
	tr.selectFirstPrompt()
	tr.submitFor("c2")
	tr.submitFor("c3")
	require.Equal(t, PhasePlayback, tr.actor.room.Phase)

	// Playback is paced by the primary viewer; with the last one gone the
	// round must not stall waiting for requests that will never come.
	tr.deliver(ViewerGone{ViewerID: "v1"})
	assert.Equal(t, PhaseJudging, tr.actor.room.Phase)
}

func TestLastViewerLeavingDuringResultsArmsTimer(t *testing.T) {
	tr := newTestRoom(t)
	tr.startLobby()
	tr.addViewer("v1")
	tr.startGame()
	tr.selectFirstPrompt()
	tr.submitFor("c2")
	tr.submitFor("c3")
	tr.viewerEvent("v1", EvRequestNextSubmission, `{}`)
	tr.viewerEvent("v1", EvRequestNextSubmission, `{}`)
	tr.expire() // pre-judging delay
	require.Equal(t, PhaseJudging, tr.actor.room.Phase)

	tr.event("c1", EvSelectWinner, `"0"`)
	require.Equal(t, PhaseRoundResults, tr.actor.room.Phase)
	require.False(t, tr.actor.timer.running, "results paced by the primary viewer")

	tr.deliver(ViewerGone{ViewerID: "v1"})
	require.True(t, tr.actor.timer.running)
	assert.Equal(t, timerRoundResults, tr.actor.timer.purpose)

	tr.expire()
	assert.Equal(t, PhaseJudgeSelection, tr.actor.room.Phase)
}

func TestGameEndsOnScoreReached(t *testing.T) {
	tr := newTestRoom(t)
	h, _, _ := tr.startLobby()
	tr.event("c1", EvUpdateGameSettings, `{"maxRounds":10,"maxScore":1}`)
	tr.startGame()
	tr.selectFirstPrompt()
	tr.submitFor("c2")
	tr.submitFor("c3")
	tr.event("c1", EvSelectWinner, `"0"`)
	tr.expire() // round results delay

	// One leader at the target score: celebration, then game over.
	require.NotEmpty(t, tr.actor.room.OverallWinnerID)
	require.True(t, tr.actor.timer.running)
	tr.expire()

	require.Equal(t, PhaseGameOver, tr.actor.room.Phase)
	complete := h.last(EvGameComplete)
	require.NotNil(t, complete)
	payload := complete.Data.(GameCompletePayload)
	assert.Equal(t, tr.actor.room.OverallWinnerID, payload.WinnerID)
	assert.Len(t, payload.FinalScores, 3)
}

func TestTiedLeadersForceSuddenDeath(t *testing.T) {
	tr := newTestRoom(t)
	h, _, _ := tr.startLobby()
	tr.startGame()
	tr.selectFirstPrompt()
	tr.submitFor("c2")
	tr.submitFor("c3")
	tr.event("c1", EvSelectWinner, `"0"`)
	require.Equal(t, PhaseRoundResults, tr.actor.room.Phase)

	// Force a tie at the winning score before the end-condition check runs.
	tr.actor.room.ParticipantByID("c2").Score = tr.actor.room.Settings.MaxScore
	tr.actor.room.ParticipantByID("c3").Score = tr.actor.room.Settings.MaxScore
	tr.expire()

	tie := h.last(EvTieBreakerRound)
	require.NotNil(t, tie)
	assert.Len(t, tie.Data.(TieBreakerPayload).ParticipantIDs, 2)

	// The tie keeps the game going instead of crowning anyone.
	assert.Empty(t, tr.actor.room.OverallWinnerID)
	assert.Equal(t, PhaseJudgeSelection, tr.actor.room.Phase)
	assert.Equal(t, 2, tr.actor.room.Round)
}

func TestRestartGameReturnsToLobby(t *testing.T) {
	tr := newTestRoom(t)
	tr.startLobby()
	tr.event("c1", EvUpdateGameSettings, `{"maxRounds":10,"maxScore":1}`)
	tr.startGame()
	tr.selectFirstPrompt()
	tr.submitFor("c2")
	tr.submitFor("c3")
	tr.event("c1", EvSelectWinner, `"0"`)
	tr.expire()
	tr.expire()
	require.Equal(t, PhaseGameOver, tr.actor.room.Phase)

	tr.event("c2", EvRestartGame, `{}`)
	assert.Equal(t, PhaseGameOver, tr.actor.room.Phase, "only the host restarts")

	tr.event("c1", EvRestartGame, `{}`)
	require.Equal(t, PhaseLobby, tr.actor.room.Phase)
	for _, p := range tr.actor.room.Participants {
		assert.Zero(t, p.Score)
	}
	assert.Empty(t, tr.actor.room.UsedPromptIDs)
}

func TestUsedPromptsNotRedealt(t *testing.T) {
	tr := newTestRoom(t)
	tr.startLobby()
	tr.startGame()

	used := tr.actor.room.AvailablePrompts[0].ID
	tr.selectFirstPrompt()
	tr.submitFor("c2")
	tr.submitFor("c3")
	tr.event("c1", EvSelectWinner, `"0"`)
	tr.expire()
	require.Equal(t, PhaseJudgeSelection, tr.actor.room.Phase)
	tr.expire()
	require.Equal(t, PhasePromptSelection, tr.actor.room.Phase)

	// 8 prompts in the pool, 6 dealt, 1 used: the used one must not reappear
	// while enough fresh prompts remain.
	for _, p := range tr.actor.room.AvailablePrompts {
		assert.NotEqual(t, used, p.ID)
	}
}

func TestPlaceholderSubstitution(t *testing.T) {
	tr := newTestRoom(t)
	tr.startLobby()
	tr.startGame()

	for _, p := range tr.actor.room.AvailablePrompts {
		assert.NotContains(t, p.Text, "<ANY>")
	}
}
