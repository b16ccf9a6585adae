package netio

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/openr-go/sparkd/internal/spark2msg"
)

// Wire framing is gob-encoded. The teacher's BFD packets use a hand-rolled
// binary layout because RFC 5880 fixes the wire grammar byte-for-byte; the
// Spark2 envelope has no such externally-mandated layout, and the pack
// carries no generic struct-serialization library other than protobuf
// (which requires generated code this repo cannot fabricate), so this
// codec falls back to the standard library's gob package.
//
// EncodeEnvelope serializes env for transmission.
func EncodeEnvelope(env spark2msg.Envelope) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeEnvelope deserializes raw into an Envelope.
func DecodeEnvelope(raw []byte) (spark2msg.Envelope, error) {
	var env spark2msg.Envelope
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&env); err != nil {
		return spark2msg.Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}
