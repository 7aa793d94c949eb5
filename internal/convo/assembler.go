package convo

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Assembler owns the mutable turn list and the per-turn spoken cursors. All
// mutation goes through its Apply* methods; callers are expected to
// serialize calls (the Engine holds a single mutex around every event).
type Assembler struct {
	turns   []*Turn
	cursors map[string]*SpokenCursor

	now   func() time.Time
	newID func() string
}

// NewAssembler constructs an empty assembler. The clock is injectable for
// tests; uuid provides turn identities.
func NewAssembler(now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{
		cursors: make(map[string]*SpokenCursor),
		now:     now,
		newID:   uuid.NewString,
	}
}

// Turns exposes the raw (un-normalized) turn list. Mutation is reserved to
// the assembler and finalization controller.
func (a *Assembler) Turns() []*Turn { return a.turns }

// Cursor returns the spoken cursor for a turn, creating it on first use.
func (a *Assembler) Cursor(turnID string) *SpokenCursor {
	cur, ok := a.cursors[turnID]
	if !ok {
		cur = NewSpokenCursor()
		a.cursors[turnID] = cur
	}
	return cur
}

// Reset drops every turn and cursor.
func (a *Assembler) Reset() {
	a.turns = nil
	a.cursors = make(map[string]*SpokenCursor)
}

// LastTurn returns the most recently appended turn, or nil.
func (a *Assembler) LastTurn() *Turn {
	if len(a.turns) == 0 {
		return nil
	}
	return a.turns[len(a.turns)-1]
}

// LastTurnOfRole returns the most recent turn of the given role, or nil.
func (a *Assembler) LastTurnOfRole(role Role) *Turn {
	for i := len(a.turns) - 1; i >= 0; i-- {
		if a.turns[i].Role == role {
			return a.turns[i]
		}
	}
	return nil
}

func (a *Assembler) newTurn(role Role) *Turn {
	ts := a.now()
	t := &Turn{ID: a.newID(), Role: role, CreatedAt: ts, UpdatedAt: ts}
	a.turns = append(a.turns, t)
	return t
}

// EnsureAssistantTurn returns the open assistant turn, creating one or
// reopening a prematurely closed one. The reopen guard: the closed turn
// must still be the latest turn (no human turn intervened) and its cursor
// must show unspoken content remaining; anything else means the previous
// response genuinely ended and a new turn starts. Reports whether a reopen
// happened so the finalization controller can restore its state.
func (a *Assembler) EnsureAssistantTurn() (t *Turn, reopened bool) {
	last := a.LastTurn()
	if last != nil && last.Role == RoleAssistant {
		if !last.Final {
			return last, false
		}
		if HasUnspoken(a.Cursor(last.ID), last.Parts) {
			last.Final = false
			last.UpdatedAt = a.now()
			return last, true
		}
	}
	return a.newTurn(RoleAssistant), false
}

// ApplyGenerated folds an unspoken text chunk into the open assistant turn.
// Word-level chunks append into a same-typed open part with one inferred
// separator; sentence-level and custom-typed chunks open fresh parts.
// Sentence chunks split on sentence boundaries so a producer that batches
// several sentences into one event still yields per-sentence parts.
func (a *Assembler) ApplyGenerated(text, aggregationType string) (t *Turn, reopened bool) {
	if aggregationType == "" {
		aggregationType = AggregationWord
	}
	t, reopened = a.EnsureAssistantTurn()
	cur := a.Cursor(t.ID)

	switch aggregationType {
	case AggregationWord:
		last := t.LastPart()
		if last != nil && last.IsText() && !last.Final && last.AggregationType == AggregationWord {
			// A part the cursor already consumed can still grow. Pull the
			// cursor back to the old text's end before appending so the new
			// text stays unspoken until a spoken fragment confirms it.
			idx := len(t.Parts) - 1
			if idx < len(cur.Done) && cur.Done[idx] {
				cur.Done[idx] = false
				cur.PartIndex = idx
				cur.CharIndex = len(last.Text)
			}
			last.Text = joinWithSeparator(last.Text, text)
		} else {
			a.appendPart(t, cur, &Part{
				Text:            text,
				AggregationType: AggregationWord,
				DisplayMode:     DisplayInline,
				CreatedAt:       a.now(),
			})
		}
	case AggregationSentence:
		for _, sentence := range chunkSentences(text) {
			a.appendPart(t, cur, &Part{
				Text:            sentence,
				Final:           true,
				AggregationType: AggregationSentence,
				DisplayMode:     DisplayInline,
				CreatedAt:       a.now(),
			})
		}
	default:
		a.appendPart(t, cur, &Part{
			Text:            text,
			Final:           true,
			AggregationType: aggregationType,
			DisplayMode:     DisplayBlock,
			CreatedAt:       a.now(),
		})
	}
	t.UpdatedAt = a.now()
	return t, reopened
}

// ApplySpoken advances the spoken cursor through the open assistant turn.
// When the producer never emits unspoken chunks at all, the spoken text
// itself becomes a new, immediately-done part so spoken-first producers
// still build a transcript. Reports the affected turn and whether a reopen
// happened.
func (a *Assembler) ApplySpoken(text, aggregationType string) (t *Turn, reopened bool) {
	t, reopened = a.EnsureAssistantTurn()
	cur := a.Cursor(t.ID)

	if len(t.Parts) > 0 && Advance(cur, t.Parts, text) {
		t.UpdatedAt = a.now()
		return t, reopened
	}
	if HasUnspoken(cur, t.Parts) {
		// Fragment matched nothing anywhere downstream: ignore and let the
		// next fragment try again.
		return t, reopened
	}

	if aggregationType == "" {
		aggregationType = AggregationSentence
	}
	p := &Part{
		Text:            text,
		Final:           true,
		AggregationType: aggregationType,
		DisplayMode:     DisplayInline,
		CreatedAt:       a.now(),
	}
	a.appendPart(t, cur, p)
	// Pin the cursor to the end of the new part: it arrived already spoken.
	idx := len(t.Parts) - 1
	cur.Done[idx] = true
	cur.PartIndex = idx + 1
	cur.CharIndex = 0
	t.UpdatedAt = a.now()
	return t, reopened
}

// appendPart keeps the part list and the cursor's done flags in lockstep;
// they advance together or not at all.
func (a *Assembler) appendPart(t *Turn, cur *SpokenCursor, p *Part) {
	t.Parts = append(t.Parts, p)
	cur.Done = append(cur.Done, false)
}

// EnsureUserTurn returns the open (non-final) user turn, creating one when
// the previous user turn already closed.
func (a *Assembler) EnsureUserTurn() *Turn {
	t := a.LastTurnOfRole(RoleUser)
	if t == nil || t.Final {
		return a.newTurn(RoleUser)
	}
	return t
}

// ApplyTranscript folds a human transcript event into the open user turn.
// Interim transcripts overwrite the in-flight part; final transcripts commit
// it and further finals open new parts.
func (a *Assembler) ApplyTranscript(text string, final bool) *Turn {
	t := a.EnsureUserTurn()
	last := t.LastPart()
	if last == nil || last.Final {
		last = &Part{AggregationType: AggregationSentence, DisplayMode: DisplayInline, CreatedAt: a.now()}
		t.Parts = append(t.Parts, last)
		a.Cursor(t.ID).Done = append(a.Cursor(t.ID).Done, false)
	}
	last.Text = text
	last.Final = final
	t.UpdatedAt = a.now()
	return t
}

// DropTurn removes a turn and its cursor; used when a placeholder user turn
// never received any transcript.
func (a *Assembler) DropTurn(turnID string) {
	for i, t := range a.turns {
		if t.ID == turnID {
			a.turns = append(a.turns[:i], a.turns[i+1:]...)
			delete(a.cursors, turnID)
			return
		}
	}
}

// joinWithSeparator concatenates two word-level chunks with exactly one
// inferred space, unless either side already carries boundary whitespace.
func joinWithSeparator(left, right string) string {
	if left == "" || right == "" {
		return left + right
	}
	if strings.HasSuffix(left, " ") || strings.HasPrefix(right, " ") ||
		strings.HasSuffix(left, "\n") || strings.HasPrefix(right, "\n") {
		return left + right
	}
	return left + " " + right
}

// chunkSentences splits text into sentence-like chunks on terminal
// punctuation and newlines, retaining the punctuation.
func chunkSentences(text string) []string {
	txt := strings.TrimSpace(text)
	if txt == "" {
		return nil
	}
	var chunks []string
	var b strings.Builder
	flush := func() {
		chunk := strings.TrimSpace(b.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		b.Reset()
	}
	for _, r := range txt {
		switch r {
		case '.', '!', '?':
			b.WriteRune(r)
			flush()
		case '\n', '\r':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return chunks
}
