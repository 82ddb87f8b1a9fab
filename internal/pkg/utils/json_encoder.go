package utils

import (
	"encoding/json"
	"fmt"
)

func JsonEncode(payload any) ([]byte, error) {
	bytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serializing %T: %w", payload, err)
	}
	return bytes, nil
}

func JsonDecodeByteStream[T any](data []byte) (*T, error) {
	var value T
	err := json.Unmarshal(data, &value)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
