package entity

import (
	"encoding/json"
	"fmt"
)

// EncodeDetail serializes a kind-specific detail payload. Nil details
// encode as an empty string.
func EncodeDetail(d Detail) (string, error) {
	if d == nil {
		return "", nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode detail: %w", err)
	}
	return string(data), nil
}

// DecodeDetail deserializes a detail payload for the given kind. Generic
// entities and empty payloads decode to nil.
func DecodeDetail(kind Kind, data string) (Detail, error) {
	if data == "" || data == "null" {
		return nil, nil
	}

	var (
		d   Detail
		err error
	)
	switch kind {
	case KindFunction:
		var v FunctionDetail
		err = json.Unmarshal([]byte(data), &v)
		d = v
	case KindClass:
		var v ClassDetail
		err = json.Unmarshal([]byte(data), &v)
		d = v
	case KindFile:
		var v FileDetail
		err = json.Unmarshal([]byte(data), &v)
		d = v
	case KindInterface:
		var v InterfaceDetail
		err = json.Unmarshal([]byte(data), &v)
		d = v
	case KindGeneric:
		return nil, nil
	default:
		return nil, fmt.Errorf("decode detail: unknown kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s detail: %w", kind, err)
	}
	return d, nil
}
