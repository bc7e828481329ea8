package api

// TopLevelStreamingData is the body of a "put" frame. Path is the subtree the
// server considers changed; Data is always the complete account snapshot.
type TopLevelStreamingData struct {
	Path string        `json:"path"`
	Data *TopLevelData `json:"data" validate:"required"`
}

// TopLevelData is the full snapshot of every gateway and tap linker visible
// to the access token.
type TopLevelData struct {
	Gateways map[string]Gateway   `json:"gateways,omitempty"`
	Devices  map[string]TapLinker `json:"devices,omitempty"`
	Metadata *Metadata            `json:"metadata,omitempty"`
}

func (t *TopLevelData) GetGateway(id string) *Gateway {
	if t == nil {
		return nil
	}
	if gateway, ok := t.Gateways[id]; ok {
		return &gateway
	}
	return nil
}

func (t *TopLevelData) GetDevice(id string) *TapLinker {
	if t == nil {
		return nil
	}
	if device, ok := t.Devices[id]; ok {
		return &device
	}
	return nil
}

// DevicesForGateway returns the tap linkers paired with the given gateway.
func (t *TopLevelData) DevicesForGateway(gatewayId string) []TapLinker {
	if t == nil {
		return nil
	}
	var devices []TapLinker
	for _, device := range t.Devices {
		if device.GatewayId == gatewayId {
			devices = append(devices, device)
		}
	}
	return devices
}

type Metadata struct {
	AccessToken   string `json:"access_token,omitempty"`
	ClientVersion int    `json:"client_version,omitempty"`
}
