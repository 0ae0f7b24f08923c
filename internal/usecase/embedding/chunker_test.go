package embedding

import (
	"strings"
	"testing"
)

func TestSplitChunks_ShortTextSingleChunk(t *testing.T) {
	text := "Short text."
	chunks := SplitChunks(text, 100)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("chunk differs from input: %q", chunks[0])
	}
}

func TestSplitChunks_SentenceBoundaries(t *testing.T) {
	text := strings.Repeat("This is a sentence. ", 20) // ~400 bytes
	chunks := SplitChunks(text, 100)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d exceeds limit: %d bytes", i, len(c))
		}
	}
	if joined := strings.Join(chunks, ""); joined != text {
		t.Error("concatenated chunks do not reproduce the input")
	}
}

func TestSplitChunks_OversizedSentenceSplitsOnWhitespace(t *testing.T) {
	// One sentence far beyond the limit, with spaces to cut on.
	text := strings.Repeat("word ", 60) + "end."
	chunks := SplitChunks(text, 50)

	for i, c := range chunks {
		if len(c) > 50 {
			t.Errorf("chunk %d exceeds limit: %d bytes", i, len(c))
		}
	}
	if joined := strings.Join(chunks, ""); joined != text {
		t.Error("concatenated chunks do not reproduce the input")
	}
}

func TestSplitChunks_SingleTokenLongerThanLimit(t *testing.T) {
	text := strings.Repeat("x", 120)
	chunks := SplitChunks(text, 50)

	for i, c := range chunks {
		if len(c) > 50 {
			t.Errorf("chunk %d exceeds limit: %d bytes", i, len(c))
		}
	}
	if joined := strings.Join(chunks, ""); joined != text {
		t.Error("concatenated chunks do not reproduce the input")
	}
}

func TestSplitChunks_CJKTerminators(t *testing.T) {
	sentence := "これは文章です。"
	text := strings.Repeat(sentence, 20)
	chunks := SplitChunks(text, 100)

	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d exceeds limit: %d bytes", i, len(c))
		}
	}
	if joined := strings.Join(chunks, ""); joined != text {
		t.Error("concatenated chunks do not reproduce the input")
	}
}

func TestSplitSentences_TerminatorStaysWithSentence(t *testing.T) {
	sentences := splitSentences("One. Two! Three? Tail")

	want := []string{"One.", " Two!", " Three?", " Tail"}
	if len(sentences) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %q", len(want), len(sentences), sentences)
	}
	for i := range want {
		if sentences[i] != want[i] {
			t.Errorf("sentence %d: got %q, want %q", i, sentences[i], want[i])
		}
	}
}
