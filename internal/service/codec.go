package service

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// jsonCodec lets Connect carry plain Go structs as application/json.
// It replaces Connect's default protojson codec under the same name.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %T", msg)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrapf(err, "decode %T", msg)
	}
	return nil
}
