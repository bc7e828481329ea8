package api

type ClientEvent struct {
	EventType ClientEventType `json:"eventType"`
	EventData interface{}     `json:"eventData"`
	ClientId  string          `json:"clientId"`
	Status    string          `json:"status"`
	Error     error           `json:"error"`
}

type ClientEventType string

const (
	ClientEventType_Started            ClientEventType = "started"
	ClientEventType_Stopped            ClientEventType = "stopped"
	ClientEventType_StreamOpened       ClientEventType = "streamOpened"
	ClientEventType_StreamFailure      ClientEventType = "streamFailure"
	ClientEventType_StreamReopened     ClientEventType = "streamReopened"
	ClientEventType_RealtimeUpdates    ClientEventType = "realtimeUpdates"
	ClientEventType_FrameProcessingErr ClientEventType = "frameProcessingError"
)
