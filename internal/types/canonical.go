package types

import (
	"errors"
	"fmt"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is the canonical {role, content} representation used on both
// sides of the adapter, independent of any wire format.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered sequence of messages. The adapter only ever
// reads it; ordering is preserved end-to-end.
type Conversation []Message

// ErrInvalidParams indicates unusable generation parameters.
// Callers should use errors.Is to check.
var ErrInvalidParams = errors.New("types: invalid generation parameters")

// GenerationParams carries the caller-tunable generation settings for one
// endpoint call. Temperature and TopP are optional; nil means "not set" and
// the fields are withheld from the wire payload.
type GenerationParams struct {
	MaxOutputTokens int
	Stream          bool
	Temperature     *float64
	TopP            *float64
}

// Validate checks the parameters before they reach a request builder.
func (p GenerationParams) Validate() error {
	if p.MaxOutputTokens <= 0 {
		return fmt.Errorf("%w: max output tokens must be positive, got %d", ErrInvalidParams, p.MaxOutputTokens)
	}
	return nil
}

// WirePayload is the request body sent to a serving endpoint. Its shape is
// owned entirely by the task type's contract.
type WirePayload map[string]any

// WireResponse is the decoded response body from a serving endpoint.
type WireResponse map[string]any

// Result is the normalized outcome of a successful endpoint call: an
// ordered list of output messages. When the response matched no recognized
// shape, Unparsed is set, Messages holds a single best-effort rendering of
// the raw response, and Raw carries the same text for logging.
type Result struct {
	Messages []Message
	Unparsed bool
	Raw      string
}
