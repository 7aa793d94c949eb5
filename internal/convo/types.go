package convo

import (
	"strings"
	"time"
)

// Role identifies who contributed a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleToolCall  Role = "tool_call"
)

// Aggregation types for incoming text chunks. Word-level chunks append into
// the current part; everything else opens a new part. Producers may send
// arbitrary custom types (e.g. "code").
const (
	AggregationWord     = "word"
	AggregationSentence = "sentence"
)

// DisplayMode hints how a part should be laid out by the renderer.
type DisplayMode string

const (
	DisplayInline DisplayMode = "inline"
	DisplayBlock  DisplayMode = "block"
)

// ToolStatus is the reduced lifecycle of a tool-call turn.
type ToolStatus string

const (
	ToolStarted    ToolStatus = "started"
	ToolInProgress ToolStatus = "in_progress"
	ToolCompleted  ToolStatus = "completed"
	ToolCancelled  ToolStatus = "cancelled"
)

// Part is one content unit within a turn. Text parts carry generated text
// that the spoken-progress cursor advances through; opaque parts carry
// render-only content and are inert to matching.
type Part struct {
	Text            string
	Opaque          any
	Final           bool
	AggregationType string
	DisplayMode     DisplayMode
	CreatedAt       time.Time

	// spokenChars caches the cursor's confirmed-spoken prefix length at
	// render time so normalized copies keep the split.
	spokenChars int
}

// SpokenSplit returns the spoken and unspoken halves of a text part as of
// the last render.
func (p *Part) SpokenSplit() (spoken, unspoken string) {
	n := p.spokenChars
	if n < 0 {
		n = 0
	}
	if n > len(p.Text) {
		n = len(p.Text)
	}
	return p.Text[:n], p.Text[n:]
}

// IsText reports whether the part holds matchable text content.
func (p *Part) IsText() bool { return p.Opaque == nil }

func (p *Part) empty() bool {
	return p.Opaque == nil && strings.TrimSpace(p.Text) == ""
}

// Turn is one conversational contribution: an ordered sequence of parts
// plus a completion flag. A non-final turn is always the newest turn of
// its role.
type Turn struct {
	ID        string
	Role      Role
	Final     bool
	Parts     []*Part
	CreatedAt time.Time
	UpdatedAt time.Time

	// Tool-call turns only.
	CallID     string
	ToolName   string
	ToolArgs   string
	ToolResult string
	ToolStatus ToolStatus
}

// LastPart returns the most recently appended part, or nil.
func (t *Turn) LastPart() *Part {
	if len(t.Parts) == 0 {
		return nil
	}
	return t.Parts[len(t.Parts)-1]
}

// Empty reports whether the turn carries no renderable content at all.
func (t *Turn) Empty() bool {
	if t.Role == RoleToolCall && t.ToolName != "" {
		return false
	}
	for _, p := range t.Parts {
		if !p.empty() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy safe to hand to readers.
func (t *Turn) Clone() *Turn {
	cp := *t
	cp.Parts = make([]*Part, len(t.Parts))
	for i, p := range t.Parts {
		pc := *p
		cp.Parts[i] = &pc
	}
	return &cp
}
