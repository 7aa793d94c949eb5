package convo

import (
	"testing"
)

func textPart(text, agg string) *Part {
	return &Part{Text: text, AggregationType: agg, DisplayMode: DisplayInline}
}

func TestAdvance_SentenceFastPath(t *testing.T) {
	parts := []*Part{textPart("Here is some code:", AggregationSentence)}
	cur := NewSpokenCursor()
	if !Advance(cur, parts, "here is some code") {
		t.Fatalf("expected advancement")
	}
	if !cur.Done[0] {
		t.Fatalf("expected part consumed whole by fast path")
	}
	if got := cur.ConsumedChars(parts); got != len(parts[0].Text) {
		t.Fatalf("consumed %d, want %d", got, len(parts[0].Text))
	}
}

func TestAdvance_WordByWord(t *testing.T) {
	parts := []*Part{textPart("Hello how are you today", AggregationWord)}
	cur := NewSpokenCursor()
	for _, frag := range []string{"Hello", "how", "are"} {
		if !Advance(cur, parts, frag) {
			t.Fatalf("expected advancement on %q", frag)
		}
	}
	consumed := cur.ConsumedChars(parts)
	if consumed >= len(parts[0].Text) {
		t.Fatalf("consumed %d should be strictly less than %d", consumed, len(parts[0].Text))
	}
	if pre, _ := splitAt(parts[0].Text, consumed); pre != "Hello how are " {
		t.Fatalf("spoken prefix %q", pre)
	}
}

func splitAt(s string, n int) (string, string) { return s[:n], s[n:] }

func TestAdvance_PunctuationAndCaseInsensitive(t *testing.T) {
	parts := []*Part{textPart("Well, hello there!", AggregationSentence)}
	cur := NewSpokenCursor()
	if !Advance(cur, parts, "well hello") {
		t.Fatalf("expected advancement across punctuation")
	}
	if cur.CharIndex != len("Well, hello ") {
		t.Fatalf("char index %d, want %d", cur.CharIndex, len("Well, hello "))
	}
}

func TestAdvance_PrefixToleratesContractions(t *testing.T) {
	parts := []*Part{textPart("I'm doing fine", AggregationWord)}
	cur := NewSpokenCursor()
	if !Advance(cur, parts, "I") {
		t.Fatalf("expected prefix match of I against I'm")
	}
	if cur.CharIndex != len("I'm ") {
		t.Fatalf("char index %d, want %d", cur.CharIndex, len("I'm "))
	}
}

func TestAdvance_SkipRecoveryOverCodeBlock(t *testing.T) {
	parts := []*Part{
		textPart("Here is some code:", AggregationSentence),
		textPart("console.log('hi')", "code"),
		textPart("Pretty cool right?", AggregationSentence),
	}
	cur := NewSpokenCursor()
	if !Advance(cur, parts, "Here is some code") {
		t.Fatalf("expected first sentence to advance")
	}
	if !Advance(cur, parts, "Pretty cool right") {
		t.Fatalf("expected skip recovery into third part")
	}
	if !cur.Done[1] {
		t.Fatalf("expected code part marked done via skip, never matched directly")
	}
	if !cur.Done[2] {
		t.Fatalf("expected third part fully consumed")
	}
	if HasUnspoken(cur, parts) {
		t.Fatalf("expected no unspoken content remaining")
	}
}

func TestAdvance_ForceSkipPreventsDeadlock(t *testing.T) {
	parts := []*Part{
		textPart("alpha beta", AggregationSentence),
		textPart("gamma delta", AggregationSentence),
	}
	cur := NewSpokenCursor()
	// Matches neither part start: still must make progress while unspoken
	// parts remain.
	if !Advance(cur, parts, "zzz") {
		t.Fatalf("expected force-skip to make progress")
	}
	if !cur.Done[0] || cur.PartIndex != 1 {
		t.Fatalf("expected first part force-skipped, got index %d", cur.PartIndex)
	}
	// Cursor sits at the start of the last part now; nothing behind it, so
	// an unmatchable fragment yields no advancement rather than a skip.
	if Advance(cur, parts, "zzz") {
		t.Fatalf("expected no advancement with no later parts")
	}
}

func TestAdvance_MidPartMismatchIsIgnored(t *testing.T) {
	parts := []*Part{textPart("one two three four", AggregationWord)}
	cur := NewSpokenCursor()
	if !Advance(cur, parts, "one two") {
		t.Fatalf("expected advancement")
	}
	before := cur.ConsumedChars(parts)
	if Advance(cur, parts, "seventeen") {
		t.Fatalf("expected mismatch mid-part to yield no advancement")
	}
	if cur.ConsumedChars(parts) != before {
		t.Fatalf("cursor moved on failed match")
	}
	// The next fragment that does match still lands.
	if !Advance(cur, parts, "three four") {
		t.Fatalf("expected recovery on next fragment")
	}
}

func TestAdvance_NonTextPartsAreInert(t *testing.T) {
	parts := []*Part{
		{Opaque: struct{ img string }{"chart.png"}, DisplayMode: DisplayBlock},
		textPart("caption text", AggregationSentence),
	}
	cur := NewSpokenCursor()
	if !Advance(cur, parts, "caption text") {
		t.Fatalf("expected advancement past opaque part")
	}
	if !cur.Done[0] {
		t.Fatalf("expected opaque part pre-marked done")
	}
}

func TestAdvance_EmptyInputs(t *testing.T) {
	cur := NewSpokenCursor()
	if Advance(cur, nil, "hello") {
		t.Fatalf("expected false with no parts")
	}
	parts := []*Part{textPart("hello", AggregationWord)}
	if Advance(cur, parts, "...") {
		t.Fatalf("expected false for punctuation-only fragment")
	}
}

func TestAdvance_MonotonicConsumption(t *testing.T) {
	parts := []*Part{
		textPart("The quick brown fox jumps over the lazy dog.", AggregationSentence),
		textPart("It was not amused.", AggregationSentence),
	}
	cur := NewSpokenCursor()
	frags := []string{"The quick", "nonsense", "brown fox jumps", "over the", "garbage again", "lazy dog", "It was not amused"}
	prev := 0
	for _, f := range frags {
		Advance(cur, parts, f)
		got := cur.ConsumedChars(parts)
		if got < prev {
			t.Fatalf("consumed chars decreased after %q: %d -> %d", f, prev, got)
		}
		prev = got
	}
	if prev != len(parts[0].Text)+len(parts[1].Text) {
		t.Fatalf("expected everything consumed, got %d", prev)
	}
}

func TestHasUnspoken(t *testing.T) {
	parts := []*Part{textPart("hello world", AggregationWord)}
	cur := NewSpokenCursor()
	cur.syncParts(parts)
	if !HasUnspoken(cur, parts) {
		t.Fatalf("expected unspoken content")
	}
	if !Advance(cur, parts, "hello world") {
		t.Fatalf("expected advancement")
	}
	if HasUnspoken(cur, parts) {
		t.Fatalf("expected everything spoken")
	}
	if HasUnspoken(NewSpokenCursor(), nil) {
		t.Fatalf("expected false with no parts")
	}
}

func TestNormalizeToken(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hello,", "hello"},
		{"I'm", "im"},
		{"(code)", "code"},
		{"...", ""},
		{"Don't!", "dont"},
	}
	for _, tc := range cases {
		if got := normalizeToken(tc.in); got != tc.want {
			t.Fatalf("normalizeToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
