// Package codec is the serialization seam between the RFC envelope types and
// their byte representation. The wire protocol fixes JSON as the encoding, so
// JSON is the only shipped implementation; the interface stays so tests can
// substitute a failing or instrumented codec without touching the transport.
package codec

// Codec encodes and decodes RFC envelopes.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// Default returns the codec used by both the client and the server.
func Default() Codec {
	return &JSONCodec{}
}
