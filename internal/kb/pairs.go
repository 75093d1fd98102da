package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"qastore/internal/llm"
)

// QAPair is one extracted question/answer pair.
type QAPair struct {
	Question string `json:"q"`
	Answer   string `json:"a"`
}

const maxPairAttempts = 3

// GenerateQAPairs extracts question/answer pairs from prose via the
// completion service. Malformed output is retried up to three times with the
// prior error fed back into the prompt; on exhaustion it returns no pairs and
// logs why instead of failing the caller. Extraction is best-effort
// enrichment, not required for core tree operations.
func (k *KB) GenerateQAPairs(ctx context.Context, inputText string) ([]QAPair, error) {
	messages := []llm.Message{
		{Role: "system", Content: qaPairsSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("[INPUT TEXT]\n%s\n\n[OUTPUT JSON]\n", inputText)},
	}

	var lastErr error
	for attempt := 1; attempt <= maxPairAttempts; attempt++ {
		content, err := k.completer.Complete(ctx, k.cfg.QAPairsModel, messages)
		if err != nil {
			lastErr = err
		} else {
			pairs, err := parseQAPairs(content)
			if err == nil {
				return pairs, nil
			}
			lastErr = err
			// Feed the parse failure back so the next attempt can correct it.
			messages = append(messages,
				llm.Message{Role: "assistant", Content: content},
				llm.Message{Role: "user", Content: fmt.Sprintf(
					"The previous response was invalid: %v. Return only a JSON array of objects with 'q' and 'a' string keys.", err)},
			)
		}
		k.log.Warn("QA pair extraction attempt failed", "attempt", attempt, "error", lastErr)

		if ctx.Err() != nil {
			break
		}
	}

	k.log.Error("giving up on QA pair extraction", "attempts", maxPairAttempts, "error", lastErr)
	return nil, nil
}

// parseQAPairs decodes completion output into pairs. Accepts a bare JSON
// array, an object wrapping a single array value, or either inside a fenced
// code block.
func parseQAPairs(content string) ([]QAPair, error) {
	raw := stripCodeFence(content)

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		// Some models wrap the array in an object with one key.
		var wrapper map[string]json.RawMessage
		if err2 := json.Unmarshal([]byte(raw), &wrapper); err2 != nil {
			return nil, ValidationError{Reason: "response is not valid JSON: " + err.Error()}
		}
		found := false
		for _, v := range wrapper {
			if json.Unmarshal(v, &items) == nil {
				found = true
				break
			}
		}
		if !found {
			return nil, ValidationError{Reason: "JSON response does not contain a list"}
		}
	}

	pairs := make([]QAPair, 0, len(items))
	for i, item := range items {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil {
			return nil, ValidationError{Reason: fmt.Sprintf("element %d is not an object", i)}
		}
		q, qok := fields["q"].(string)
		a, aok := fields["a"].(string)
		if !qok || !aok {
			return nil, ValidationError{Reason: fmt.Sprintf("element %d is missing 'q' or 'a' string keys", i)}
		}
		pairs = append(pairs, QAPair{Question: q, Answer: a})
	}
	return pairs, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
