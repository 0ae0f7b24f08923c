package embedding

import "strings"

// sentenceTerminators end a sentence: ASCII and full-width CJK punctuation.
const sentenceTerminators = ".!?。!?"

// SplitChunks splits preprocessed text into chunks of at most maxSize bytes.
// Text within the limit is a single chunk. Longer text is split on sentence
// boundaries and sentences are greedily accumulated; a sentence that alone
// exceeds the limit is split further on whitespace. Concatenating the chunks
// reproduces the input exactly.
func SplitChunks(text string, maxSize int) []string {
	if len(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, sentence := range splitSentences(text) {
		if len(sentence) > maxSize {
			flush()
			chunks = append(chunks, splitOnWhitespace(sentence, maxSize)...)
			continue
		}
		if current.Len()+len(sentence) > maxSize {
			flush()
		}
		current.WriteString(sentence)
	}
	flush()

	return chunks
}

// splitSentences cuts text after each sentence terminator. The terminator
// stays with its sentence; the separating space goes to the next one, so
// the pieces concatenate back to the input.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	for i, r := range text {
		if strings.ContainsRune(sentenceTerminators, r) {
			end := i + len(string(r))
			sentences = append(sentences, text[start:end])
			start = end
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}

	return sentences
}

// splitOnWhitespace splits an oversized sentence into segments of at most
// maxSize bytes, cutting at space boundaries where possible and mid-token
// as a last resort. All bytes are preserved.
func splitOnWhitespace(s string, maxSize int) []string {
	var segments []string

	for len(s) > maxSize {
		cut := strings.LastIndexByte(s[:maxSize+1], ' ')
		if cut <= 0 {
			// один токен длиннее лимита — жёсткий разрез
			cut = maxSize
			for cut > 0 && s[cut]&0xC0 == 0x80 { // don't split a UTF-8 rune
				cut--
			}
			if cut == 0 {
				cut = maxSize
			}
		}
		segments = append(segments, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		segments = append(segments, s)
	}

	return segments
}
