package store

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/aesgcm"
)

// envelopeWire is the exact wire/storage shape from spec.md §6:
// "Escrow persistence layout... {enc: hex, iv: hex, tag: hex, alg:
// 'aes-256-gcm'}". Every store-level envelope in this codebase
// (escrow blobs, L2 cache entries) shares this shape.
type envelopeWire struct {
	Enc string `json:"enc"`
	IV  string `json:"iv"`
	Tag string `json:"tag"`
	Alg string `json:"alg"`
}

const algAES256GCM = "aes-256-gcm"

// MarshalEnvelope serializes an AES-GCM envelope to the spec's wire shape.
func MarshalEnvelope(env *aesgcm.Envelope) []byte {
	wire := envelopeWire{
		Enc: hex.EncodeToString(env.Ciphertext),
		IV:  hex.EncodeToString(env.IV),
		Tag: hex.EncodeToString(env.Tag),
		Alg: algAES256GCM,
	}
	b, _ := json.Marshal(wire) // fixed shape, cannot fail
	return b
}

// UnmarshalEnvelope parses the spec's wire shape back into an envelope.
func UnmarshalEnvelope(raw []byte) (*aesgcm.Envelope, error) {
	var wire envelopeWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("store: unmarshal envelope: %w", err)
	}
	if wire.Alg != algAES256GCM {
		return nil, fmt.Errorf("store: unsupported envelope alg %q", wire.Alg)
	}
	ciphertext, err := hex.DecodeString(wire.Enc)
	if err != nil {
		return nil, fmt.Errorf("store: decode enc: %w", err)
	}
	iv, err := hex.DecodeString(wire.IV)
	if err != nil {
		return nil, fmt.Errorf("store: decode iv: %w", err)
	}
	tag, err := hex.DecodeString(wire.Tag)
	if err != nil {
		return nil, fmt.Errorf("store: decode tag: %w", err)
	}
	return &aesgcm.Envelope{IV: iv, Ciphertext: ciphertext, Tag: tag}, nil
}
