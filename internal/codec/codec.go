// Package codec provides connect-rpc codecs for the plain-struct wire messages
// in binja/ops/v1.
package codec

import (
	"fmt"

	"connectrpc.com/connect"
	"github.com/fxamacker/cbor/v2"
	"github.com/segmentio/encoding/json"
)

const (
	NameJSON = "json"
	NameCBOR = "cbor"
)

// JSON marshals messages as JSON. It replaces connect's built-in json codec,
// which only accepts protobuf messages.
type JSON struct{}

func (JSON) Name() string { return NameJSON }

func (JSON) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSON) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// CBOR marshals messages as CBOR. Field names come from the json tags.
type CBOR struct{}

var (
	cborEnc, _ = cbor.CoreDetEncOptions().EncMode()
	cborDec, _ = cbor.DecOptions{}.DecMode()
)

func (CBOR) Name() string { return NameCBOR }

func (CBOR) Marshal(msg any) ([]byte, error) {
	return cborEnc.Marshal(msg)
}

func (CBOR) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return cborDec.Unmarshal(data, msg)
}

// ByName returns the codec registered under name.
func ByName(name string) (connect.Codec, error) {
	switch name {
	case "", NameJSON:
		return JSON{}, nil
	case NameCBOR:
		return CBOR{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// All returns every codec, for handlers that accept any of them.
func All() []connect.Codec {
	return []connect.Codec{JSON{}, CBOR{}}
}
