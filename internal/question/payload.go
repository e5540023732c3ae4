package question

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parsePayload decodes the model's JSON answer and upper-cases option keys
// and the answer letter, since models occasionally emit "a".."d".
func parsePayload(content string) (questionPayload, error) {
	var payload questionPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return questionPayload{}, fmt.Errorf("unparseable response: %w", err)
	}
	options := make(map[string]string, len(payload.Options))
	for key, text := range payload.Options {
		options[strings.ToUpper(strings.TrimSpace(key))] = text
	}
	payload.Options = options
	payload.Answer = strings.ToUpper(strings.TrimSpace(payload.Answer))
	return payload, nil
}
