package convo

import (
	"reflect"
	"testing"
	"time"
)

func turnAt(role Role, created time.Time, final bool, texts ...string) *Turn {
	t := &Turn{ID: string(role) + created.String(), Role: role, Final: final, CreatedAt: created, UpdatedAt: created}
	for _, txt := range texts {
		t.Parts = append(t.Parts, &Part{Text: txt, AggregationType: AggregationSentence, CreatedAt: created})
	}
	return t
}

func TestNormalize_DropsEmptyFinalTurns(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	turns := []*Turn{
		turnAt(RoleAssistant, base, true, "hello"),
		turnAt(RoleUser, base.Add(time.Minute), true), // empty and final
		turnAt(RoleUser, base.Add(2*time.Minute), false),
	}
	out := Normalize(turns, DefaultMergeWindow)
	if len(out) != 2 {
		t.Fatalf("expected empty final turn dropped, got %d turns", len(out))
	}
	// The empty non-final turn survives: content may still arrive.
	if out[1].Final {
		t.Fatalf("wrong turn dropped")
	}
}

func TestNormalize_MergesAdjacentSameRoleWithinWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	turns := []*Turn{
		turnAt(RoleUser, base, true, "first"),
		turnAt(RoleUser, base.Add(2*time.Second), true, "second"),
		turnAt(RoleAssistant, base.Add(3*time.Second), true, "reply"),
	}
	out := Normalize(turns, 5*time.Second)
	if len(out) != 2 {
		t.Fatalf("expected merge into 2 turns, got %d", len(out))
	}
	if len(out[0].Parts) != 2 {
		t.Fatalf("merged turn should carry both parts, got %d", len(out[0].Parts))
	}
}

func TestNormalize_DoesNotMergeOutsideWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	turns := []*Turn{
		turnAt(RoleUser, base, true, "first"),
		turnAt(RoleUser, base.Add(time.Minute), true, "much later"),
	}
	if out := Normalize(turns, 5*time.Second); len(out) != 2 {
		t.Fatalf("expected no merge outside the window, got %d turns", len(out))
	}
}

func TestNormalize_DoesNotMergeToolCalls(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := turnAt(RoleToolCall, base, true)
	a.ToolName = "search"
	b := turnAt(RoleToolCall, base.Add(time.Second), true)
	b.ToolName = "lookup"
	if out := Normalize([]*Turn{a, b}, DefaultMergeWindow); len(out) != 2 {
		t.Fatalf("tool-call turns must keep their identity, got %d", len(out))
	}
}

func TestNormalize_SortsByCreation(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	turns := []*Turn{
		turnAt(RoleAssistant, base.Add(time.Minute), false, "later"),
		turnAt(RoleUser, base, true, "earlier"),
	}
	out := Normalize(turns, 0)
	if out[0].Role != RoleUser {
		t.Fatalf("expected creation-time order, got %v first", out[0].Role)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	turns := []*Turn{
		turnAt(RoleUser, base, true, "one"),
		turnAt(RoleUser, base.Add(time.Second), true, "two"),
		turnAt(RoleAssistant, base.Add(2*time.Second), true), // empty, dropped
		turnAt(RoleAssistant, base.Add(3*time.Second), true, "reply"),
		turnAt(RoleUser, base.Add(time.Hour), false, "new question"),
	}
	once := Normalize(turns, DefaultMergeWindow)
	twice := Normalize(once, DefaultMergeWindow)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("normalization is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	turns := []*Turn{
		turnAt(RoleUser, base, true, "one"),
		turnAt(RoleUser, base.Add(time.Second), true, "two"),
	}
	Normalize(turns, DefaultMergeWindow)
	if len(turns[0].Parts) != 1 || len(turns) != 2 {
		t.Fatalf("input mutated by normalization")
	}
}
