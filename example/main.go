package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	linktap "github.com/linktap/go-linktap-sdk"
	"github.com/linktap/go-linktap-sdk/api"
)

func main() {
	configPath := flag.String("config", "", "optional YAML options file")
	flag.Parse()

	accessToken := os.Getenv("LINKTAP_ACCESS_TOKEN")
	if accessToken == "" {
		log.Fatal("LINKTAP_ACCESS_TOKEN is not set")
	}

	options := &linktap.Options{}
	if *configPath != "" {
		loaded, err := linktap.LoadOptions(*configPath)
		if err != nil {
			log.Fatalf("Error loading options: %v", err)
		}
		options = loaded
	}
	options.ClientEventHandler = make(chan api.ClientEvent, 100)

	client, err := linktap.NewStreamingClient(accessToken, nil, options)
	if err != nil {
		log.Fatalf("Error initializing client: %v", err)
	}

	go func() {
		for e := range options.ClientEventHandler {
			if e.EventType == api.ClientEventType_RealtimeUpdates {
				continue
			}
			log.Printf("client event: %s %s %v", e.EventType, e.Status, e.EventData)
		}
	}()

	client.AddListener(&linktap.ListenerFuncs{
		Connected:    func() { log.Println("connected") },
		Disconnected: func() { log.Println("disconnected, reopening stream") },
		AuthorizationRevoked: func(token string) {
			log.Printf("authorization revoked for %s", token)
		},
		Error: func(message string) { log.Printf("server error: %s", message) },
		NewSnapshot: func(data *api.TopLevelData) {
			for id, device := range data.Devices {
				log.Printf("%s (%s) online=%v watering=%v battery=%d%%",
					device.Name, id, device.Online, device.IsWatering(), device.BatteryLevel)
			}
		},
	})

	client.Start()
	defer client.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
