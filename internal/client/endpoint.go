package client

import "fmt"

// DefaultPort is the relay's HTTP port when none is configured.
const DefaultPort = "8080"

// emulatorHost reaches the development machine from the Android emulator.
const emulatorHost = "10.0.2.2"

// Endpoint resolves the relay URL. RELAY_URL wins; otherwise the platform
// decides the host: the Android emulator reaches the host machine through
// 10.0.2.2, every other platform uses localhost.
func Endpoint(goos string, getenv func(string) string, port string) string {
	if url := getenv("RELAY_URL"); url != "" {
		return url
	}
	if port == "" {
		port = DefaultPort
	}
	host := "localhost"
	if goos == "android" {
		host = emulatorHost
	}
	return fmt.Sprintf("ws://%s:%s/ws", host, port)
}
