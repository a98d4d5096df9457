// Package codec builds contract-correct wire payloads and normalizes
// contract-specific responses back into canonical messages.
package codec

import (
	"servingbridge/internal/contract"
	"servingbridge/internal/types"
)

// BuildPayload assembles the wire payload for one endpoint call. The field
// set comes entirely from the contract: the declared input field, the
// declared token-limit field, "stream" only where the contract sends it,
// and sampling parameters only where the contract allows them. Endpoints
// reject payloads carrying anything else.
func BuildPayload(c contract.Contract, conv types.Conversation, params types.GenerationParams) (types.WirePayload, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(conv) == 0 {
		return nil, ErrEmptyConversation
	}

	payload := types.WirePayload{
		c.InputField:      wireMessages(conv),
		c.TokenLimitField: params.MaxOutputTokens,
	}
	if c.SendsStream {
		payload["stream"] = params.Stream
	}
	if c.AllowsSampling {
		if params.Temperature != nil {
			payload["temperature"] = *params.Temperature
		}
		if params.TopP != nil {
			payload["top_p"] = *params.TopP
		}
	}
	return payload, nil
}

// wireMessages copies the conversation into the list-of-maps form shared by
// every contract family. The caller's slice is never aliased.
func wireMessages(conv types.Conversation) []map[string]any {
	out := make([]map[string]any, 0, len(conv))
	for _, m := range conv {
		out = append(out, map[string]any{
			"role":    string(m.Role),
			"content": m.Content,
		})
	}
	return out
}
