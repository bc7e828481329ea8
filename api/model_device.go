package api

type Gateway struct {
	GatewayId string `json:"gatewayId"`
	Name      string `json:"name,omitempty"`
	Location  string `json:"location,omitempty"`
	Online    bool   `json:"online"`
	Version   string `json:"version,omitempty"`
}

// TapLinker readings are kept as reported by the gateway, even when out of
// their nominal range.
type TapLinker struct {
	TaplinkerId    string          `json:"taplinkerId"`
	GatewayId      string          `json:"gatewayId"`
	Name           string          `json:"name,omitempty"`
	Location       string          `json:"location,omitempty"`
	Online         bool            `json:"online"`
	SignalStrength int             `json:"signal,omitempty"`
	BatteryLevel   int             `json:"battery,omitempty"`
	WorkMode       string          `json:"workMode,omitempty"`
	Watering       *WateringStatus `json:"watering,omitempty"`
}

func (t TapLinker) IsWatering() bool {
	return t.Watering != nil && t.Watering.Active
}

// WateringStatus describes an in-progress watering slot.
type WateringStatus struct {
	Active        bool    `json:"active"`
	FlowRate      float64 `json:"vel,omitempty"`
	Volume        float64 `json:"vol,omitempty"`
	TotalDuration int     `json:"total,omitempty"`
	OnDuration    int     `json:"onDuration,omitempty"`
	Remaining     int     `json:"remaining,omitempty"`
}
