// Package contract is the single source of truth for the wire contracts of
// supported serving-endpoint task types. Adding a task type means adding
// one registry row here and, if it introduces a new response shape, one
// normalizer branch in codec.
package contract

import "sort"

// TaskType is the contract identifier a serving endpoint advertises.
// Only the constants below have registered contracts; any other value is
// representable but fails closed on lookup.
type TaskType string

const (
	LLMChat           TaskType = "llm/v1/chat"
	AgentChatV1       TaskType = "agent/v1/chat"
	AgentChatV2       TaskType = "agent/v2/chat"
	AgentSupervisorV1 TaskType = "agent/v1/supervisor"
	AgentSupervisorV2 TaskType = "agent/v2/supervisor"
	AgentResponsesV1  TaskType = "agent/v1/responses"
)

// ResponseShape selects the normalizer branch for a task type.
type ResponseShape int

const (
	// ShapeChoices: {"choices":[{"message":{...}}]} — choice 0's message.
	ShapeChoices ResponseShape = iota
	// ShapeMessages: {"messages":[...]} — emitted verbatim.
	ShapeMessages
	// ShapeOutputItems: {"output":[{"role":...,"content":[{"text":...}]}]}.
	ShapeOutputItems
)

// Contract describes the request field names and the expected response
// shape for one task type. The request builder emits exactly the fields
// declared here: serving endpoints validate payloads against a closed
// schema and reject extra inputs outright.
type Contract struct {
	// InputField names the conversation field ("messages" or "input").
	InputField string
	// TokenLimitField names the output token cap field.
	TokenLimitField string
	// SendsStream declares whether the payload carries a "stream" field.
	SendsStream bool
	// AllowsSampling declares whether temperature/top_p may be sent.
	AllowsSampling bool
	// Shape selects how responses from this task type are normalized.
	Shape ResponseShape
}

var contracts = map[TaskType]Contract{
	LLMChat:           {InputField: "messages", TokenLimitField: "max_tokens", AllowsSampling: true, Shape: ShapeChoices},
	AgentChatV1:       {InputField: "messages", TokenLimitField: "max_tokens", Shape: ShapeChoices},
	AgentChatV2:       {InputField: "messages", TokenLimitField: "max_tokens", Shape: ShapeChoices},
	AgentSupervisorV1: {InputField: "messages", TokenLimitField: "max_tokens", SendsStream: true, Shape: ShapeMessages},
	AgentSupervisorV2: {InputField: "messages", TokenLimitField: "max_tokens", SendsStream: true, Shape: ShapeMessages},
	AgentResponsesV1:  {InputField: "input", TokenLimitField: "max_output_tokens", SendsStream: true, Shape: ShapeOutputItems},
}

// Supported reports whether the task type has a registered contract.
func Supported(tt TaskType) bool {
	_, ok := contracts[tt]
	return ok
}

// For returns the contract for a task type. ok is false for any task type
// not in the registry; callers must treat that as unsupported, never guess.
func For(tt TaskType) (Contract, bool) {
	c, ok := contracts[tt]
	return c, ok
}

// All returns the supported task types in lexical order.
func All() []TaskType {
	out := make([]TaskType, 0, len(contracts))
	for tt := range contracts {
		out = append(out, tt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
