package assistant

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Sizer measures rendered context against the budget
type Sizer interface {
	Size(text string) int
	Unit() string
}

// CharSizer measures text in characters
type CharSizer struct{}

// Size returns the rune count of text
func (CharSizer) Size(text string) int {
	return utf8.RuneCountInString(text)
}

// Unit implements Sizer
func (CharSizer) Unit() string { return "chars" }

// TokenSizer measures text in cl100k_base tokens. When the encoding cannot be
// loaded it estimates four characters per token.
type TokenSizer struct {
	encoder *tiktoken.Tiktoken
	mu      sync.Mutex
}

const tokenEncoding = "cl100k_base"

// NewTokenSizer loads the token encoding, falling back to estimation on failure
func NewTokenSizer(logger *zap.Logger) *TokenSizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	encoder, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		logger.Warn("token encoding unavailable, estimating by characters",
			zap.String("encoding", tokenEncoding),
			zap.Error(err))
		return &TokenSizer{}
	}
	return &TokenSizer{encoder: encoder}
}

// Size returns the token count of text
func (t *TokenSizer) Size(text string) int {
	if t.encoder == nil {
		return (utf8.RuneCountInString(text) + 3) / 4
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.encoder.Encode(text, nil, nil))
}

// Unit implements Sizer
func (t *TokenSizer) Unit() string { return "tokens" }

// NewSizer returns the sizer for a configured unit ("chars" or "tokens")
func NewSizer(unit string, logger *zap.Logger) Sizer {
	if unit == "tokens" {
		return NewTokenSizer(logger)
	}
	return CharSizer{}
}
