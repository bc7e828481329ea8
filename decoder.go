package linktap

import (
	"fmt"

	"github.com/linktap/go-linktap-sdk/api"
	"github.com/linktap/go-linktap-sdk/util"
)

// PayloadDecoder turns the body of a "put" frame into a snapshot.
type PayloadDecoder interface {
	Decode(data string) (*api.TopLevelData, error)
}

type JSONPayloadDecoder struct {
	config *util.JSONConfig
}

func NewJSONPayloadDecoder() *JSONPayloadDecoder {
	return &JSONPayloadDecoder{config: util.DefaultConfig()}
}

func (d *JSONPayloadDecoder) Decode(data string) (*api.TopLevelData, error) {
	var streamingData api.TopLevelStreamingData
	if err := util.Decode([]byte(data), &streamingData, d.config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodePayload, err)
	}
	if err := validate.Struct(streamingData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodePayload, err)
	}
	return streamingData.Data, nil
}
