package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

// Config points the scenarios at a running room.
type Config struct {
	RoomAddr string `envconfig:"ROOM_ADDR"`
	// HEALTH_ADDR is the gRPC health endpoint of the room, scenarios needing it are skipped when empty
	HealthAddr string `envconfig:"HEALTH_ADDR"`
	// METRICS_ADDR is the debug HTTP endpoint of the room
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	RoomName    string `envconfig:"ROOM_NAME" default:"lobby"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
