package textsplit

import (
	"strings"
	"testing"
)

func TestSplitEmptyInput(t *testing.T) {
	s := New(SizeMedium)
	if got := s.Split(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := s.Split("   \n\n  "); got != nil {
		t.Fatalf("expected nil for whitespace input, got %v", got)
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := New(SizeMedium)
	text := "Drug X inhibits enzyme Y."
	chunks := s.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != text {
		t.Fatalf("chunk content changed: %q", chunks[0])
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	for _, class := range []SizeClass{SizeSmall, SizeMedium, SizeLarge} {
		s := New(class)
		text := strings.Repeat("Aspirin irreversibly acetylates cyclooxygenase. ", 200)
		chunks := s.Split(text)
		if len(chunks) < 2 {
			t.Fatalf("%s: expected multiple chunks, got %d", class, len(chunks))
		}
		for i, c := range chunks {
			if n := len([]rune(c)); n > s.ChunkSize() {
				t.Errorf("%s: chunk %d has %d runes, limit %d", class, i, n, s.ChunkSize())
			}
		}
	}
}

func TestSplitSizeBoundHoldsAfterFlush(t *testing.T) {
	// Paragraphs just under the chunk size force a flush on every piece;
	// the carried overlap must not push the next chunk over the bound.
	s := New(SizeSmall)
	paragraph := strings.TrimSpace(strings.Repeat("Verapamil blocks L-type calcium channels. ", 12))[:480]
	text := paragraph + "\n\n" + paragraph + "\n\n" + paragraph
	chunks := s.Split(text)
	if len(chunks) < 3 {
		t.Fatalf("expected one chunk per paragraph, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > s.ChunkSize() {
			t.Errorf("chunk %d has %d runes, declared size %d", i, n, s.ChunkSize())
		}
	}
}

func TestSplitCoversInput(t *testing.T) {
	s := New(SizeSmall)
	var b strings.Builder
	for i := 0; i < 80; i++ {
		b.WriteString("Beta blockers reduce heart rate and myocardial oxygen demand. ")
	}
	text := strings.TrimSpace(b.String())
	chunks := s.Split(text)

	// Joining without removing overlap must reproduce at least the input
	// minus the duplicated overlap regions.
	joined := 0
	for _, c := range chunks {
		joined += len([]rune(c))
	}
	minExpected := len([]rune(text)) - len(chunks)*s.ChunkOverlap()
	if joined < minExpected {
		t.Fatalf("chunks cover %d runes, want at least %d", joined, minExpected)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	s := NewWithParams(60, 0)
	text := "First paragraph about warfarin.\n\nSecond paragraph about heparin.\n\nThird paragraph about enoxaparin."
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected paragraph-based chunks, got %v", chunks)
	}
	for _, c := range chunks {
		if strings.Contains(c, "\n\n") && len([]rune(c)) > 60 {
			t.Errorf("chunk crosses paragraph boundary while oversized: %q", c)
		}
	}
}

func TestSplitOverlapCarried(t *testing.T) {
	s := NewWithParams(100, 20)
	text := strings.Repeat("pharmacokinetics of metformin in renal impairment ", 20)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := strings.TrimSpace(string(prev[len(prev)-10:]))
		if tail != "" && !strings.Contains(chunks[i], tail) {
			t.Errorf("chunk %d does not carry overlap from previous chunk", i)
		}
	}
}

func TestSplitOversizedWordFallsBackToFixedWidth(t *testing.T) {
	s := NewWithParams(50, 5)
	text := strings.Repeat("x", 180)
	chunks := s.Split(text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks for unbroken text")
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 50 {
			t.Errorf("chunk %d has %d runes, want <= 50", i, n)
		}
	}
}

func TestSplitFixed(t *testing.T) {
	chunks := SplitFixed(strings.Repeat("a", 25), 10)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[2] != "aaaaa" {
		t.Fatalf("unexpected final chunk %q", chunks[2])
	}
	if got := SplitFixed("", 10); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestUnknownSizeClassUsesMedium(t *testing.T) {
	s := New(SizeClass("huge"))
	if s.ChunkSize() != 1000 || s.ChunkOverlap() != 100 {
		t.Fatalf("unexpected params %d/%d", s.ChunkSize(), s.ChunkOverlap())
	}
}
