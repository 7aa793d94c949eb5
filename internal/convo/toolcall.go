package convo

import "time"

// ToolCallStart records the beginning of a tool invocation. A started event
// arriving shortly after a matching identifier-less in-progress event
// back-fills that turn's name instead of creating a duplicate.
func (a *Assembler) ToolCallStart(name string, backfillWindow time.Duration) *Turn {
	now := a.now()
	for i := len(a.turns) - 1; i >= 0; i-- {
		t := a.turns[i]
		if t.Role != RoleToolCall || t.ToolStatus != ToolInProgress {
			continue
		}
		if t.CallID != "" && t.ToolName != "" && t.ToolName != name {
			continue
		}
		if now.Sub(t.CreatedAt) <= backfillWindow && (t.ToolName == "" || t.ToolName == name) {
			t.ToolName = name
			t.UpdatedAt = now
			return t
		}
		break
	}
	t := a.newTurn(RoleToolCall)
	t.ToolName = name
	t.ToolStatus = ToolStarted
	return t
}

// ToolCallProgress updates (or creates) the tool-call turn identified by id,
// falling back to the most recent open tool-call turn when no id matches.
func (a *Assembler) ToolCallProgress(id, name, args string) *Turn {
	t := a.findToolCall(id, name)
	if t == nil {
		t = a.newTurn(RoleToolCall)
	}
	if id != "" {
		t.CallID = id
	}
	if name != "" {
		t.ToolName = name
	}
	if args != "" {
		t.ToolArgs = args
	}
	t.ToolStatus = ToolInProgress
	t.UpdatedAt = a.now()
	return t
}

// ToolCallStop completes the tool-call turn, renders its result as a block
// part, and finalizes the turn.
func (a *Assembler) ToolCallStop(id, result string, cancelled bool) *Turn {
	t := a.findToolCall(id, "")
	if t == nil {
		t = a.newTurn(RoleToolCall)
		if id != "" {
			t.CallID = id
		}
	}
	t.ToolResult = result
	if cancelled {
		t.ToolStatus = ToolCancelled
	} else {
		t.ToolStatus = ToolCompleted
	}
	if result != "" && !cancelled {
		t.Parts = append(t.Parts, &Part{
			Text:            result,
			Final:           true,
			AggregationType: "tool_result",
			DisplayMode:     DisplayBlock,
			CreatedAt:       a.now(),
		})
		a.Cursor(t.ID).Done = append(a.Cursor(t.ID).Done, true)
	}
	t.Final = true
	t.UpdatedAt = a.now()
	return t
}

// findToolCall resolves a tool-call turn by call id first, then by name,
// then by recency among still-open tool-call turns.
func (a *Assembler) findToolCall(id, name string) *Turn {
	if id != "" {
		for i := len(a.turns) - 1; i >= 0; i-- {
			t := a.turns[i]
			if t.Role == RoleToolCall && t.CallID == id {
				return t
			}
		}
	}
	for i := len(a.turns) - 1; i >= 0; i-- {
		t := a.turns[i]
		if t.Role != RoleToolCall || t.Final {
			continue
		}
		if id != "" && t.CallID != "" && t.CallID != id {
			continue
		}
		if name != "" && t.ToolName != "" && t.ToolName != name {
			continue
		}
		return t
	}
	return nil
}
