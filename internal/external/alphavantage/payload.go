package alphavantage

import (
	"encoding/json"
	"strings"

	"github.com/wonny/sectorwatch/internal/contracts"
)

// quotaMarkers are phrases the provider uses when it refuses a call for budget reasons
var quotaMarkers = []string{
	"rate limit",
	"call frequency",
	"premium",
	"subscription",
	"requests per",
}

// decodeObject parses a JSON object body and classifies provider-level failures.
// 응답 코드가 200이어도 본문에 에러/한도 메시지가 올 수 있음
func decodeObject(function, symbol string, body []byte) (map[string]json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, &contracts.ProviderError{
			Operation: function,
			Symbol:    symbol,
			Message:   "invalid JSON response: " + err.Error(),
		}
	}

	if msg, ok := stringField(top, "Error Message"); ok {
		return nil, &contracts.ProviderError{Operation: function, Symbol: symbol, Message: msg}
	}

	for _, key := range []string{"Note", "Information"} {
		msg, ok := stringField(top, key)
		if ok && isQuotaMessage(msg) {
			return nil, &contracts.QuotaExceededError{Operation: function, Symbol: symbol, Message: msg}
		}
	}

	return top, nil
}

// missingKey builds the error for a body that lacks the expected payload
func missingKey(function, symbol string, top map[string]json.RawMessage, key string) error {
	msg := "response missing " + key
	for _, k := range []string{"Information", "Note"} {
		if info, ok := stringField(top, k); ok {
			msg += ": " + info
			break
		}
	}
	return &contracts.ProviderError{Operation: function, Symbol: symbol, Message: msg}
}

func isQuotaMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range quotaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func stringField(top map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := top[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw), true
	}
	return s, true
}

// rawString returns a JSON string value unquoted, any other value verbatim
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
