package codec

import (
	"encoding/json"
	"fmt"

	"servingbridge/internal/contract"
	"servingbridge/internal/types"
)

// Normalize converts a raw endpoint response into the canonical ordered
// message list for the given response shape.
//
// A response that matches its declared shape but yields no messages fails
// with ErrEmptyResponse. A response matching no recognized shape does not
// fail: it degrades to a single stringified message tagged Unparsed, so the
// caller can still display something while monitoring catches the drift.
func Normalize(shape contract.ResponseShape, raw types.WireResponse) (types.Result, error) {
	var (
		msgs       []types.Message
		recognized bool
	)
	switch shape {
	case contract.ShapeChoices:
		msgs, recognized = parseChoices(raw)
	case contract.ShapeMessages:
		msgs, recognized = parseMessages(raw)
	case contract.ShapeOutputItems:
		msgs, recognized = parseOutputItems(raw)
	}

	if !recognized {
		// Some agent endpoints answer with a bare top-level content string
		// regardless of their declared shape; accept it before giving up.
		if content, ok := raw["content"].(string); ok && content != "" {
			return types.Result{Messages: []types.Message{{Role: types.RoleAssistant, Content: content}}}, nil
		}
		rendering := renderRaw(raw)
		return types.Result{
			Messages: []types.Message{{Role: types.RoleAssistant, Content: rendering}},
			Unparsed: true,
			Raw:      rendering,
		}, nil
	}
	if len(msgs) == 0 {
		return types.Result{}, ErrEmptyResponse
	}
	return types.Result{Messages: msgs}, nil
}

// parseChoices handles {"choices":[{"message":{"role":...,"content":...}}]}.
// Only choice 0 is consulted; role defaults to assistant when absent.
func parseChoices(raw types.WireResponse) ([]types.Message, bool) {
	choices, ok := raw["choices"].([]any)
	if !ok {
		return nil, false
	}
	if len(choices) == 0 {
		return nil, true
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return nil, true
	}
	message, ok := first["message"].(map[string]any)
	if !ok {
		return nil, true
	}
	content, ok := message["content"].(string)
	if !ok {
		return nil, true
	}
	return []types.Message{{Role: roleOrAssistant(message), Content: content}}, true
}

// parseMessages handles {"messages":[{"role":...,"content":...}, ...]} and
// emits the list verbatim. Elements without string content are skipped;
// a missing role defaults to assistant.
func parseMessages(raw types.WireResponse) ([]types.Message, bool) {
	list, ok := raw["messages"].([]any)
	if !ok {
		return nil, false
	}
	var msgs []types.Message
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		content, ok := entry["content"].(string)
		if !ok {
			continue
		}
		msgs = append(msgs, types.Message{Role: roleOrAssistant(entry), Content: content})
	}
	return msgs, true
}

// parseOutputItems handles the structured-output shape:
// {"output":[{"role":...,"content":[{"text":...}, ...]}, ...]}.
// For each output item only content block 0 is consulted; items without a
// usable text block are skipped rather than failing the whole response.
func parseOutputItems(raw types.WireResponse) ([]types.Message, bool) {
	output, ok := raw["output"].([]any)
	if !ok {
		return nil, false
	}
	var msgs []types.Message
	for _, item := range output {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		blocks, ok := entry["content"].([]any)
		if !ok || len(blocks) == 0 {
			continue
		}
		block, ok := blocks[0].(map[string]any)
		if !ok {
			continue
		}
		text, ok := block["text"].(string)
		if !ok {
			continue
		}
		msgs = append(msgs, types.Message{Role: roleOrAssistant(entry), Content: text})
	}
	return msgs, true
}

func roleOrAssistant(entry map[string]any) types.Role {
	if role, ok := entry["role"].(string); ok && role != "" {
		return types.Role(role)
	}
	return types.RoleAssistant
}

// renderRaw produces the non-empty textual rendering used by the Unparsed
// fallback message.
func renderRaw(raw types.WireResponse) string {
	if len(raw) == 0 {
		return "{}"
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(raw))
	}
	return string(data)
}
