package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts a JSON object into a protobuf Struct.
func ToStruct(data []byte) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode view: %w", err)
	}
	return out, nil
}

// EncodeView marshals v as a JSON object suitable for ToStruct.
func EncodeView(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode view: %w", err)
	}
	return data, nil
}

// FromStruct decodes a Struct returned by the view service into v.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return fmt.Errorf("view is nil")
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	return nil
}
