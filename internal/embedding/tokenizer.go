package embedding

import (
	"strings"
	"unicode"
)

// Special token ids of BERT-style vocabularies.
const (
	clsID = 101
	sepID = 102
	// Hashed ids start past the special tokens and stay inside a 30k vocabulary.
	firstWordID = 1000
	hashedVocab = 29000
)

// Tokenizer turns text into fixed-length BERT model inputs.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// HashTokenizer assigns token ids by hashing instead of looking words up in a
// vocabulary file. Letters and digits form words; any other visible rune is a
// token of its own.
type HashTokenizer struct{}

// Tokenize emits [CLS], the text tokens and [SEP], zero-padded to maxTokens. Text that does
// not fit is cut before the [SEP].
func (HashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0], attentionMask[0] = clsID, 1
	pos := 1
	for _, tok := range splitTokens(text) {
		if pos == maxTokens-1 {
			break
		}
		inputIDs[pos] = firstWordID + int64(hashWord(tok)%hashedVocab)
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos], attentionMask[pos] = sepID, 1
	return inputIDs, attentionMask, tokenTypeIDs
}

func splitTokens(text string) []string {
	var (
		tokens []string
		word   strings.Builder
	)
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			word.WriteRune(r)
		case unicode.IsSpace(r), unicode.IsControl(r):
			flush()
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()
	return tokens
}

// hashWord is a deterministic non-negative string hash.
func hashWord(s string) int {
	var h uint32
	for _, c := range s {
		h = 31*h + uint32(c)
	}
	return int(h & 0x7fffffff)
}
