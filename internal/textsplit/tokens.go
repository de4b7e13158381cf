package textsplit

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEncoding is the tokenizer used by the OpenAI embedding and chat models.
const TokenEncoding = "cl100k_base"

// TokenCounter returns a LengthFunc that counts cl100k_base tokens, so chunk
// sizes line up with embedding model limits.
func TokenCounter() (LengthFunc, error) {
	enc, err := tiktoken.GetEncoding(TokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("loading %s tokenizer: %w", TokenEncoding, err)
	}
	return func(s string) int {
		return len(enc.EncodeOrdinary(s))
	}, nil
}

// NewFromMode builds a splitter measuring length in "chars" or "tokens".
func NewFromMode(chunkSize, chunkOverlap int, mode string) (*Recursive, error) {
	s := New(chunkSize, chunkOverlap)
	switch mode {
	case "", "chars":
	case "tokens":
		count, err := TokenCounter()
		if err != nil {
			return nil, err
		}
		s.Length = count
	default:
		return nil, fmt.Errorf("%w: unknown length mode %q", ErrInvalidConfig, mode)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
