package config

import (
	"fmt"
	"strings"
)

const (
	TokenizerWord          = "word"
	TokenizerTiktoken      = "tiktoken"
	TokenizerSentencePiece = "sentencepiece"
)

func NormalizeTokenizer(raw string) (string, error) {
	tok := strings.ToLower(strings.TrimSpace(raw))
	if tok == "" {
		tok = TokenizerWord
	}
	switch tok {
	case TokenizerWord, TokenizerTiktoken, TokenizerSentencePiece:
		return tok, nil
	case "bpe":
		return TokenizerTiktoken, nil
	case "sp", "spm":
		return TokenizerSentencePiece, nil
	default:
		return "", fmt.Errorf(
			"invalid tokenizer %q (expected %s|%s|%s)",
			raw,
			TokenizerWord,
			TokenizerTiktoken,
			TokenizerSentencePiece,
		)
	}
}
