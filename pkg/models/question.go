package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Question is the inbound request body. Fields other than "question" are
// ignored.
type Question struct {
	Question string `json:"question"`
}

// AnswerPayload is the reply body. Question is only set when the worker is
// configured to echo it back.
type AnswerPayload struct {
	Answer   string `json:"answer"`
	Question string `json:"question,omitempty"`
}

// ErrorPayload is the reply body for failed questions when error replies are
// enabled.
type ErrorPayload struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// DecodeQuestion parses an inbound body. The body must be a JSON object with
// a string "question" field. Blank questions are valid and still answered.
func DecodeQuestion(body []byte) (Question, error) {
	var q Question

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return q, fmt.Errorf("body is not a JSON object")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return q, fmt.Errorf("invalid JSON: %w", err)
	}

	field, ok := raw["question"]
	if !ok {
		return q, fmt.Errorf("missing \"question\" field")
	}
	if err := json.Unmarshal(field, &q.Question); err != nil {
		return q, fmt.Errorf("\"question\" must be a string: %w", err)
	}

	return q, nil
}
