package ledger

import (
	"encoding/json"
	"fmt"
)

func payloadToJSON(payload map[string]interface{}) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ledger: encode payload for postgres: %w", err)
	}
	return b, nil
}

func payloadFromJSON(b []byte) (map[string]interface{}, error) {
	if len(b) == 0 {
		return map[string]interface{}{}, nil
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, fmt.Errorf("ledger: decode payload from postgres: %w", err)
	}
	return payload, nil
}
