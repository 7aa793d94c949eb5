// Package events defines the wire contract between the transport layer and
// the conversation engine: inbound event envelopes and outbound transcript
// snapshots, both JSON.
package events

import "time"

// Kind identifies an inbound event type.
type Kind string

const (
	// KindGeneratedText carries an unspoken text chunk from the model stream.
	KindGeneratedText Kind = "generated_text"
	// KindSpokenText carries a text chunk confirmed as audibly delivered.
	KindSpokenText Kind = "spoken_text"
	// KindAssistantSpeechStarted marks the assistant's audio output starting.
	KindAssistantSpeechStarted Kind = "assistant_speech_started"
	// KindAssistantSpeechStopped marks the assistant's audio output pausing or ending.
	KindAssistantSpeechStopped Kind = "assistant_speech_stopped"
	// KindHumanSpeechStarted marks detected human speech (a possible interruption).
	KindHumanSpeechStarted Kind = "human_speech_started"
	// KindHumanSpeechStopped marks the end of detected human speech.
	KindHumanSpeechStopped Kind = "human_speech_stopped"
	// KindHumanTranscript carries interim or final human transcript text.
	KindHumanTranscript Kind = "human_transcript"
	// KindToolCallStarted marks the beginning of a tool invocation.
	KindToolCallStarted Kind = "tool_call_started"
	// KindToolCallProgress carries incremental tool invocation detail.
	KindToolCallProgress Kind = "tool_call_progress"
	// KindToolCallStopped marks tool invocation completion or cancellation.
	KindToolCallStopped Kind = "tool_call_stopped"
	// KindSessionReset clears all turns, cursors, and pending timers.
	KindSessionReset Kind = "session_reset"
)

// Envelope is the single inbound message shape; fields are populated per
// kind and ignored otherwise.
type Envelope struct {
	Type            Kind   `json:"type"`
	Text            string `json:"text,omitempty"`
	AggregationType string `json:"aggregationType,omitempty"`
	Final           bool   `json:"final,omitempty"`
	ID              string `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	Args            string `json:"args,omitempty"`
	Result          string `json:"result,omitempty"`
	Cancelled       bool   `json:"cancelled,omitempty"`
}

// PartView is one rendered content unit, with the spoken/unspoken split
// already computed for progressive display.
type PartView struct {
	Text            string `json:"text"`
	Spoken          string `json:"spoken,omitempty"`
	Unspoken        string `json:"unspoken,omitempty"`
	Final           bool   `json:"final"`
	AggregationType string `json:"aggregationType"`
	DisplayMode     string `json:"displayMode"`
}

// TurnView is one rendered turn.
type TurnView struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Final     bool       `json:"final"`
	Parts     []PartView `json:"parts"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`

	ToolName   string `json:"toolName,omitempty"`
	ToolStatus string `json:"toolStatus,omitempty"`
	ToolArgs   string `json:"toolArgs,omitempty"`
	ToolResult string `json:"toolResult,omitempty"`
}

// Snapshot is the outbound frame: the full normalized transcript, re-emitted
// after every mutation.
type Snapshot struct {
	Type  string     `json:"type"`
	Turns []TurnView `json:"turns"`
}

// SnapshotType is the Type value of every outbound Snapshot frame.
const SnapshotType = "transcript"
