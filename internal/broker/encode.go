package broker

import (
	"encoding/json"
	"fmt"

	"toolbroker/internal/domain"
)

// encodeOutput serializes a callable's return value. json.RawMessage values
// pass through unchanged when they hold valid JSON; nil encodes as null.
func encodeOutput(v any) (json.RawMessage, error) {
	switch o := v.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if len(o) == 0 {
			return json.RawMessage("null"), nil
		}
		if !json.Valid(o) {
			return nil, fmt.Errorf("%w: raw output is not valid JSON", ErrEncode)
		}
		return o, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return b, nil
}

// errorResult wraps err into an error result for req.
func errorResult(req domain.ToolCallRequest, kind domain.ErrorKind, err error) domain.ToolCallResult {
	payload, _ := json.Marshal(domain.ErrorPayload{Error: err.Error(), Kind: kind})
	return domain.ToolCallResult{
		CallID:   req.CallID,
		ToolName: req.ToolName,
		Output:   payload,
		IsError:  true,
	}
}

// DecodeError extracts the ErrorPayload of an error result.
func DecodeError(res domain.ToolCallResult) (domain.ErrorPayload, bool) {
	if !res.IsError {
		return domain.ErrorPayload{}, false
	}
	var p domain.ErrorPayload
	if err := json.Unmarshal(res.Output, &p); err != nil {
		return domain.ErrorPayload{}, false
	}
	return p, true
}
