package linktap

import (
	"github.com/linktap/go-linktap-sdk/api"
	"github.com/linktap/go-linktap-sdk/util"
)

type TopLevelData = api.TopLevelData
type TopLevelStreamingData = api.TopLevelStreamingData
type Gateway = api.Gateway
type TapLinker = api.TapLinker
type WateringStatus = api.WateringStatus
type Metadata = api.Metadata
type ClientEvent = api.ClientEvent
type ClientEventType = api.ClientEventType
type UpdateRequest = api.UpdateRequest
type UpdateRequestBuilder = api.UpdateRequestBuilder
type Logger = util.Logger
type DiscardLogger = util.DiscardLogger

func NewUpdateRequestBuilder() *UpdateRequestBuilder {
	return api.NewUpdateRequestBuilder()
}

func SetLogger(log Logger) {
	util.SetLogger(log)
}
