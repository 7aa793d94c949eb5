package convo

import (
	"time"
)

// DirState names the finalization states of one speaking direction.
type DirState int

const (
	DirIdle DirState = iota
	DirOpen
	DirPendingClose
	DirClosed
)

func (s DirState) String() string {
	switch s {
	case DirIdle:
		return "idle"
	case DirOpen:
		return "open"
	case DirPendingClose:
		return "pending_close"
	case DirClosed:
		return "closed"
	}
	return "unknown"
}

// direction is the timer-bearing half of the state machine. At most one
// timer is pending per direction; gen invalidates fires that race a cancel.
type direction struct {
	state DirState
	timer Timer
	gen   uint64
}

func (d *direction) cancel() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Controller decides when a turn is done. It distinguishes "the speaker
// paused" from "the turn ended" with bounded delays, and undoes premature
// finalization through the assembler's reopen path.
//
// Every method must be called with the engine's lock held; timer callbacks
// re-enter through the run executor, which takes the lock and re-checks
// state so a stale fire can never close a turn that has since changed.
type Controller struct {
	asm   *Assembler
	sched Scheduler
	now   func() time.Time

	botCloseDelay  time.Duration
	userCloseDelay time.Duration

	// run executes a timer callback under the engine's lock and publishes
	// the resulting snapshot.
	run func(func())
	// note reports a turn the controller created, closed, or dropped, so
	// per-turn observers hear about finalization the same way they hear
	// about content.
	note func(*Turn)

	bot  direction
	user direction
}

// NewController wires the controller to the assembler it finalizes.
func NewController(asm *Assembler, sched Scheduler, now func() time.Time, botCloseDelay, userCloseDelay time.Duration, run func(func()), note func(*Turn)) *Controller {
	if sched == nil {
		sched = NewScheduler()
	}
	if now == nil {
		now = time.Now
	}
	if run == nil {
		run = func(f func()) { f() }
	}
	if note == nil {
		note = func(*Turn) {}
	}
	return &Controller{
		asm:            asm,
		sched:          sched,
		now:            now,
		botCloseDelay:  botCloseDelay,
		userCloseDelay: userCloseDelay,
		run:            run,
		note:           note,
	}
}

// BotState reports the assistant direction's current state.
func (c *Controller) BotState() DirState { return c.bot.state }

// UserState reports the human direction's current state.
func (c *Controller) UserState() DirState { return c.user.state }

// AssistantContent notes generated or spoken content for the assistant
// turn: any pending close is off, the turn is open again.
func (c *Controller) AssistantContent() {
	c.bot.cancel()
	c.bot.state = DirOpen
}

// BotStartedSpeaking cancels a pending close; the assistant is still mid-turn.
func (c *Controller) BotStartedSpeaking() {
	c.bot.cancel()
	c.bot.state = DirOpen
}

// BotStoppedSpeaking arms the close delay. The delay absorbs text-to-speech
// pauses mid-response; content or renewed speech before it fires keeps the
// turn open.
func (c *Controller) BotStoppedSpeaking() {
	if c.bot.state != DirOpen {
		return
	}
	c.bot.cancel()
	c.bot.state = DirPendingClose
	gen := c.bot.gen
	c.bot.timer = c.sched.AfterFunc(c.botCloseDelay, func() {
		c.run(func() { c.fireBotClose(gen) })
	})
}

func (c *Controller) fireBotClose(gen uint64) {
	if gen != c.bot.gen || c.bot.state != DirPendingClose {
		return
	}
	c.bot.timer = nil
	c.closeAssistant()
}

// closeAssistant finalizes the open assistant turn, if one still exists.
func (c *Controller) closeAssistant() {
	c.bot.state = DirClosed
	if t := c.asm.LastTurnOfRole(RoleAssistant); t != nil && !t.Final {
		t.Final = true
		t.UpdatedAt = c.now()
		c.note(t)
	}
}

// UserStartedSpeaking is an interruption: the assistant's turn ends
// immediately, no delay, and a placeholder user turn opens so ordering is
// preserved while we wait for transcript text.
func (c *Controller) UserStartedSpeaking() {
	c.bot.cancel()
	c.closeAssistant()

	c.user.cancel()
	c.user.state = DirOpen
	c.note(c.asm.EnsureUserTurn())
}

// UserStoppedSpeaking arms the human close delay. On fire, a placeholder
// that never received transcript text is discarded; a non-final transcript
// turn is closed.
func (c *Controller) UserStoppedSpeaking() {
	if c.user.state != DirOpen {
		return
	}
	c.user.cancel()
	c.user.state = DirPendingClose
	gen := c.user.gen
	c.user.timer = c.sched.AfterFunc(c.userCloseDelay, func() {
		c.run(func() { c.fireUserClose(gen) })
	})
}

func (c *Controller) fireUserClose(gen uint64) {
	if gen != c.user.gen || c.user.state != DirPendingClose {
		return
	}
	c.user.timer = nil
	c.user.state = DirClosed
	t := c.asm.LastTurnOfRole(RoleUser)
	if t == nil || t.Final {
		return
	}
	if t.Empty() {
		c.asm.DropTurn(t.ID)
		return
	}
	t.Final = true
	t.UpdatedAt = c.now()
	c.note(t)
}

// TranscriptArrived cancels a pending user close; text is still flowing.
// A final transcript arriving after speech already stopped closes the turn
// without waiting for a timer that is no longer pending.
func (c *Controller) TranscriptArrived(final bool) {
	if c.user.state == DirPendingClose {
		c.user.cancel()
		c.user.state = DirOpen
		return
	}
	if final && c.user.state != DirOpen {
		if t := c.asm.LastTurnOfRole(RoleUser); t != nil && !t.Final {
			t.Final = true
			t.UpdatedAt = c.now()
			c.user.state = DirClosed
			c.note(t)
		}
	}
}

// NoteReopen restores the assistant direction after the assembler reopened
// a prematurely closed turn.
func (c *Controller) NoteReopen() {
	c.bot.cancel()
	c.bot.state = DirOpen
}

// Reset cancels all pending timers and returns both directions to idle.
func (c *Controller) Reset() {
	c.bot.cancel()
	c.user.cancel()
	c.bot.state = DirIdle
	c.user.state = DirIdle
}
