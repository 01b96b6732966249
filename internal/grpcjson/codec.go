// Package grpcjson carries the orchestrator contract over gRPC as JSON, so
// request and response messages stay plain Go structs.
package grpcjson

import (
	"encoding/json"
	"fmt"
	"sync"

	"google.golang.org/grpc/encoding"
)

const Name = "json"

type Codec struct{}

func (Codec) Name() string { return Name }

func (Codec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("grpcjson: marshal %T: %w", v, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		// A zero-length payload decodes to the zero value.
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("grpcjson: unmarshal into %T: %w", v, err)
	}
	return nil
}

var registerOnce sync.Once

// Register installs the codec in grpc's global registry. Safe to call from
// every binary and test.
func Register() {
	registerOnce.Do(func() {
		encoding.RegisterCodec(Codec{})
	})
}
