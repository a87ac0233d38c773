package internal

import (
	errs "chat-relay/errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

// Config is the room configuration, read from the environment.
type Config struct {
	RoomName        string        `env:"ROOM_NAME,default=lobby" validate:"required,alphanum,max=64"`
	Host            string        `env:"HOST,default=0.0.0.0" validate:"required"`
	Port            int           `env:"PORT,default=5555" validate:"min=0,max=65535"`
	Backlog         int           `env:"BACKLOG,default=16" validate:"min=1"`
	Capacity        int           `env:"ROOM_MAX_GUEST_COUNT,default=16" validate:"min=1,max=4096"`
	FrameSize       int           `env:"FRAME_SIZE,default=1024" validate:"min=16,max=65536"`
	QuitToken       string        `env:"QUIT_TOKEN,default=!q" validate:"required,max=16"`
	HistoryToken    string        `env:"HISTORY_TOKEN,default=!h" validate:"max=16,nefield=QuitToken"`
	HistoryLimit    int           `env:"HISTORY_LIMIT,default=20" validate:"min=0"`
	WaitTimeout     time.Duration `env:"WAIT_TIMEOUT,default=1s" validate:"min=1ms"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT,default=0s" validate:"min=0"`
	Multiplexer     string        `env:"MULTIPLEXER,default=epoll" validate:"oneof=epoll poll"`
	WriteAttempts   int           `env:"WRITE_ATTEMPTS,default=3" validate:"min=1,max=64"`
	ModerationWords string        `env:"MODERATION_WORDS"`
	ModerationDir   string        `env:"MODERATION_DIR"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	MetricsPort     int           `env:"METRICS_PORT,default=0" validate:"min=0,max=65535"`
	HealthPort      int           `env:"HEALTH_PORT,default=0" validate:"min=0,max=65535"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=10s" validate:"min=100ms"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"min=10ms"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// Validate checks ranges and enumerations the environment decoder cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	return nil
}

// ModerationEnabled reports whether forbidden words were configured.
func (c Config) ModerationEnabled() bool {
	return len(c.Words()) > 0 || c.ModerationDir != ""
}

// Words splits MODERATION_WORDS on commas, dropping blanks and duplicates.
func (c Config) Words() []string {
	words := lo.FilterMap(strings.Split(c.ModerationWords, ","), func(word string, _ int) (string, bool) {
		word = strings.TrimSpace(word)
		return word, word != ""
	})
	return lo.Uniq(words)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"%w: CHARACTER_REPLACEMENT must be a single character, got %q",
			errs.ErrInvalidCharacter, str,
		)
	}
	return r[0], nil
}
