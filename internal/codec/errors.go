package codec

import "errors"

// Sentinel errors for payload building and response normalization.
// Callers should use errors.Is to check.
var (
	// ErrEmptyConversation indicates the caller supplied no messages to send.
	ErrEmptyConversation = errors.New("codec: conversation is empty")
	// ErrEmptyResponse indicates the response matched its declared shape but
	// produced no usable messages. Distinct from the Unparsed fallback,
	// which covers responses matching no recognized shape at all.
	ErrEmptyResponse = errors.New("codec: response contained no messages")
)
