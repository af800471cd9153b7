package game

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/lguibr/cacophony/actor"
	"github.com/lguibr/cacophony/catalog"
	"github.com/lguibr/cacophony/log"
	"github.com/lguibr/cacophony/metrics"
	"github.com/lguibr/cacophony/utils"
)

// RoomActor owns one Room and everything attached to it: the game state
// machine, the single phase timer, the viewer registry and the disconnection
// protocol. All mutation flows through its mailbox, so the room state needs
// no locking; timer goroutines only post messages back here.
type RoomActor struct {
	engine     *actor.Engine
	cfg        utils.Config
	catalog    *catalog.Catalog
	managerPID *actor.PID
	selfPID    *actor.PID
	logger     zerolog.Logger

	room    *Room
	viewers viewerRegistry
	timer   roomTimer

	sweepStop chan struct{}
}

// NewRoomActorProducer creates a producer for a RoomActor serving the given
// room code.
func NewRoomActorProducer(engine *actor.Engine, cfg utils.Config, cat *catalog.Catalog, code string, managerPID *actor.PID) actor.Producer {
	return func() actor.Actor {
		settings := Settings{
			MaxRounds:            cfg.DefaultMaxRounds,
			MaxScore:             cfg.DefaultMaxScore,
			AllowExplicitContent: false,
		}
		return &RoomActor{
			engine:     engine,
			cfg:        cfg,
			catalog:    cat,
			managerPID: managerPID,
			logger:     log.WithComponent("room").With().Str("room", code).Logger(),
			room:       NewRoom(code, settings),
			sweepStop:  make(chan struct{}),
		}
	}
}

// post sends a message into this actor's own mailbox. Used by timer
// goroutines so every callback is serialized with inbound events.
func (a *RoomActor) post(msg interface{}) {
	a.engine.Send(a.selfPID, msg, nil)
}

// Receive is the main message handler for the RoomActor.
func (a *RoomActor) Receive(ctx actor.Context) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("panic recovered in room actor")
		}
	}()

	if a.selfPID == nil {
		a.selfPID = ctx.Self()
	}

	switch msg := ctx.Message().(type) {
	case actor.Started:
		go a.runSweepLoop()

	case AddParticipant:
		a.handleAddParticipant(msg)

	case ReconnectParticipant:
		a.handleReconnect(msg)

	case AddViewer:
		a.handleAddViewer(msg)

	case ClientEvent:
		a.dispatchClientEvent(msg)

	case ParticipantGone:
		a.handleParticipantGone(msg.ConnID)

	case ViewerGone:
		a.handleViewerGone(msg.ViewerID)

	case ClearReconnection:
		a.handleClearReconnection(msg.OriginalID)

	case timerTick:
		a.handleTimerTick(msg)

	case timerExpired:
		a.handleTimerExpired(msg)

	case sweepTick:
		a.sweepStaleDisconnections()

	case actor.Stopping:
		a.timer.cancel()
		close(a.sweepStop)

	case actor.Stopped:

	default:
		a.logger.Warn().Str("type", fmt.Sprintf("%T", msg)).Msg("room actor received unknown message")
	}
}

// runSweepLoop posts periodic sweep ticks until the actor stops.
func (a *RoomActor) runSweepLoop() {
	ticker := time.NewTicker(a.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.sweepStop:
			return
		case <-ticker.C:
			a.post(sweepTick{})
		}
	}
}

// --- outbound emission ---

func (a *RoomActor) emitTo(conn Conn, event string, data interface{}) {
	if conn == nil {
		return
	}
	if err := conn.SendEvent(event, data); err != nil {
		a.logger.Debug().Err(err).Str("event", event).Msg("failed to send event")
	}
}

func (a *RoomActor) emitParticipants(event string, data interface{}) {
	for _, p := range a.room.Participants {
		a.emitTo(p.conn, event, data)
	}
}

func (a *RoomActor) emitViewers(event string, data interface{}) {
	a.viewers.each(func(v *viewer) {
		a.emitTo(v.conn, event, data)
	})
}

// emitRoom fans an event out to every participant and viewer.
func (a *RoomActor) emitRoom(event string, data interface{}) {
	a.emitParticipants(event, data)
	a.emitViewers(event, data)
}

func (a *RoomActor) emitError(conn Conn, reason, message string) {
	metrics.EventErrorsTotal.WithLabelValues(reason).Inc()
	a.emitTo(conn, EvError, ErrorPayload{Message: message})
}

func (a *RoomActor) emitRoomUpdated() {
	a.emitRoom(EvRoomUpdated, a.room.Snapshot())
}

func (a *RoomActor) emitStateChange(payload StateChangePayload) {
	a.emitRoom(EvGameStateChanged, payload)
}

// --- timer plumbing ---

func (a *RoomActor) handleTimerTick(msg timerTick) {
	if !a.timer.current(msg.Gen) {
		return
	}
	switch msg.Purpose {
	case timerPromptSelection, timerSoundSelection:
		a.emitRoom(EvTimeUpdate, TimeUpdatePayload{Phase: a.room.Phase, Remaining: msg.Remaining})
	case timerGrace:
		a.emitRoom(EvTimeUpdate, TimeUpdatePayload{Phase: PhasePausedForDisconnection, Remaining: msg.Remaining})
	case timerVote:
		a.emitRoom(EvReconnectionVoteUpdate, TimeUpdatePayload{Phase: PhasePausedForDisconnection, Remaining: msg.Remaining})
	}
}

func (a *RoomActor) handleTimerExpired(msg timerExpired) {
	if !a.timer.expire(msg.Gen) {
		return
	}
	switch msg.Purpose {
	case timerJudgeSelection:
		a.beginPromptSelection()
	case timerPromptSelection:
		a.promptSelectionTimedOut()
	case timerSoundSelection:
		a.soundSelectionTimedOut()
	case timerPreJudging:
		a.beginJudging()
	case timerRoundResults:
		a.finishRoundResults()
	case timerCelebration:
		a.completeGame()
	case timerGrace:
		a.graceExpired()
	case timerVote:
		a.voteTimedOut()
	}
}

// --- inbound event dispatch ---

// dispatchClientEvent validates and routes one inbound game event. Role and
// phase checks live with the individual handlers; pause gating lives here.
func (a *RoomActor) dispatchClientEvent(ev ClientEvent) {
	metrics.EventsTotal.WithLabelValues(ev.Event).Inc()

	if ev.Viewer {
		a.dispatchViewerEvent(ev)
		return
	}

	p := a.room.ParticipantByID(ev.ConnID)
	if p == nil {
		a.logger.Debug().Str("event", ev.Event).Str("conn", ev.ConnID).Msg("event from unknown participant, dropping")
		metrics.EventErrorsTotal.WithLabelValues("unknown_participant").Inc()
		return
	}

	// While paused for disconnection only the vote and an explicit leave get
	// through; other game events are dropped.
	if a.room.PausedForDisconnection && ev.Event != EvVoteOnReconnection && ev.Event != EvLeaveRoom {
		a.logger.Debug().Str("event", ev.Event).Msg("room paused, dropping game event")
		return
	}

	switch ev.Event {
	case EvLeaveRoom:
		a.handleLeaveRoom(p)
	case EvStartGame:
		a.handleStartGame(p)
	case EvUpdateGameSettings:
		a.handleUpdateSettings(p, ev.Data)
	case EvSelectPrompt:
		a.handleSelectPrompt(p, ev.Data)
	case EvSubmitSounds:
		a.handleSubmitSounds(p, ev.Data)
	case EvSelectWinner:
		a.handleSelectWinner(p, ev.Data)
	case EvVoteOnReconnection:
		a.handleVote(p, ev.Data)
	case EvWinnerAudioComplete:
		// Participants cannot pace the result screen; only the primary
		// viewer (or the no-viewer timer) signals it.
		a.logger.Debug().Str("participant", p.ID).Msg("ignoring winnerAudioComplete from participant")
	case EvRequestJudgingPlayback:
		a.handleRequestJudgingPlayback(p, ev.Data)
	case EvRestartGame:
		a.handleRestartGame(p)
	default:
		a.emitError(p.conn, "unknown_event", "unknown event: "+ev.Event)
	}
}

func (a *RoomActor) dispatchViewerEvent(ev ClientEvent) {
	v := a.viewers.byID(ev.ConnID)
	if v == nil {
		a.logger.Debug().Str("event", ev.Event).Str("viewer", ev.ConnID).Msg("event from unknown viewer, dropping")
		metrics.EventErrorsTotal.WithLabelValues("unknown_viewer").Inc()
		return
	}

	switch ev.Event {
	case EvRequestNextSubmission:
		a.handleRequestNextSubmission(v)
	case EvWinnerAudioComplete:
		a.handleWinnerAudioComplete(v)
	case EvRequestMainScreenUpdate:
		a.emitTo(v.conn, EvMainScreenUpdate, MainScreenPayload{
			Room:      a.room.Snapshot(),
			IsPrimary: a.viewers.isPrimary(v.id),
		})
	default:
		a.emitError(v.conn, "unknown_event", "unknown viewer event: "+ev.Event)
	}
}
