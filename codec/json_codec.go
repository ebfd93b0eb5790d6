package codec

import (
	"encoding/json"
)

// JSONCodec uses the standard library encoding/json for serialization.
// Human-readable and cross-language, which is what a debugging-heavy
// development bridge wants; numbers decode as float64 per encoding/json.
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
