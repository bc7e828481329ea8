package api

import (
	"fmt"
	"os"
	"runtime"
)

type PlatformData struct {
	SdkType         string `json:"sdkType"`
	SdkVersion      string `json:"sdkVersion"`
	PlatformVersion string `json:"platformVersion"`
	Platform        string `json:"platform"`
	Hostname        string `json:"hostname"`
}

func (pd *PlatformData) Default(sdkVersion string) *PlatformData {
	pd.Platform = "Go"
	pd.SdkType = "streaming"
	pd.PlatformVersion = runtime.Version()
	pd.Hostname, _ = os.Hostname()
	pd.SdkVersion = sdkVersion
	return pd
}

func (pd *PlatformData) UserAgent() string {
	return fmt.Sprintf("LinkTap-Go-SDK/%s (%s; %s)", pd.SdkVersion, pd.Platform, pd.PlatformVersion)
}
