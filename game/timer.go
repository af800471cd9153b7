package game

import "time"

// roomTimer manages the room's single active timer. Every start bumps a
// generation counter and every tick or expiry carries the generation it was
// scheduled under; the actor ignores callbacks from stale generations, so
// cancellation is a counter bump and no callback can outlive it. The timer
// goroutine never touches room state: it only posts messages back into the
// room's mailbox.
type roomTimer struct {
	gen     uint64
	stop    chan struct{}
	running bool
	purpose timerPurpose
}

// post is how timer goroutines hand messages to the room actor.
type post func(msg interface{})

// startCountdown cancels any active timer and installs a per-second countdown
// for the given purpose. The first tick is posted immediately with the full
// duration, then once per second, then a single expiry at zero.
func (t *roomTimer) startCountdown(seconds int, purpose timerPurpose, send post) {
	t.cancel()
	t.gen++
	t.running = true
	t.purpose = purpose
	t.stop = make(chan struct{})

	gen := t.gen
	stop := t.stop

	go func() {
		send(timerTick{Gen: gen, Purpose: purpose, Remaining: seconds})
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		remaining := seconds
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				remaining--
				if remaining <= 0 {
					send(timerExpired{Gen: gen, Purpose: purpose})
					return
				}
				send(timerTick{Gen: gen, Purpose: purpose, Remaining: remaining})
			}
		}
	}()
}

// startDelay cancels any active timer and installs a single-shot delay with
// no ticks, for sub-second phase gaps.
func (t *roomTimer) startDelay(d time.Duration, purpose timerPurpose, send post) {
	t.cancel()
	t.gen++
	t.running = true
	t.purpose = purpose
	t.stop = make(chan struct{})

	gen := t.gen
	stop := t.stop

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-stop:
		case <-timer.C:
			send(timerExpired{Gen: gen, Purpose: purpose})
		}
	}()
}

// cancel stops the active timer, if any. Callbacks already in the mailbox
// carry the old generation and will be ignored.
func (t *roomTimer) cancel() {
	if t.running {
		close(t.stop)
		t.running = false
	}
	t.gen++
}

// current reports whether a message generation belongs to the live timer.
func (t *roomTimer) current(gen uint64) bool {
	return t.running && gen == t.gen
}

// expire marks the live timer as finished after its expiry was processed.
// The stop channel is closed too, so the goroutine is released even when the
// expiry was injected rather than produced by it.
func (t *roomTimer) expire(gen uint64) bool {
	if !t.current(gen) {
		return false
	}
	t.running = false
	close(t.stop)
	return true
}
