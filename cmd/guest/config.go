package main

import "github.com/kelseyhightower/envconfig"

type Config struct {
	RoomAddr     string `envconfig:"ROOM_ADDR" default:"127.0.0.1:5555"`
	Nick         string `envconfig:"NICK"`
	FrameSize    int    `envconfig:"FRAME_SIZE" default:"1024"`
	QuitToken    string `envconfig:"QUIT_TOKEN" default:"!q"`
	HistoryToken string `envconfig:"HISTORY_TOKEN" default:"!h"`
	// COLOURS renders sender nicks in colour
	Colours  bool   `envconfig:"COLOURS" default:"true"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"WARN"`
}

// LoadConfig reads the environment, then lets positional arguments
// "[nick] [addr]" override it.
func LoadConfig(args []string) (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if len(args) > 0 {
		cfg.Nick = args[0]
	}
	if len(args) > 1 {
		cfg.RoomAddr = args[1]
	}
	return cfg, nil
}
