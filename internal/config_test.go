package internal

import (
	errs "chat-relay/errors"
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, set env.EnvSet) Config {
	t.Helper()
	var config Config
	require.NoError(t, env.Unmarshal(set, &config))
	return config
}

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)

	config := load(t, env.EnvSet{})

	req.NoError(config.Validate())
	req.Equal("lobby", config.RoomName)
	req.Equal(16, config.Capacity)
	req.Equal(1024, config.FrameSize)
	req.Equal("!q", config.QuitToken)
	req.Equal("!h", config.HistoryToken)
	req.Equal(time.Second, config.WaitTimeout)
	req.Equal("epoll", config.Multiplexer)
	req.False(config.ModerationEnabled())
}

func TestConfig_Overrides(t *testing.T) {
	req := require.New(t)

	config := load(t, env.EnvSet{
		"ROOM_MAX_GUEST_COUNT": "3",
		"PORT":                 "6000",
		"MULTIPLEXER":          "poll",
		"WAIT_TIMEOUT":         "250ms",
		"MODERATION_WORDS":     " badger, snake ,,badger",
	})

	req.NoError(config.Validate())
	req.Equal(3, config.Capacity)
	req.Equal(6000, config.Port)
	req.Equal("poll", config.Multiplexer)
	req.Equal(250*time.Millisecond, config.WaitTimeout)
	req.Equal([]string{"badger", "snake"}, config.Words())
	req.True(config.ModerationEnabled())
}

func TestConfig_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		set  env.EnvSet
	}{
		{name: "Unknown multiplexer", set: env.EnvSet{"MULTIPLEXER": "kqueue"}},
		{name: "Port out of range", set: env.EnvSet{"PORT": "70000"}},
		{name: "Empty room", set: env.EnvSet{"ROOM_MAX_GUEST_COUNT": "0"}},
		{name: "Tiny frame", set: env.EnvSet{"FRAME_SIZE": "4"}},
		{name: "Same tokens", set: env.EnvSet{"HISTORY_TOKEN": "!q"}},
		{name: "Room name with separator", set: env.EnvSet{"ROOM_NAME": "a:b"}},
		{name: "Zero wait timeout", set: env.EnvSet{"WAIT_TIMEOUT": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			config := load(t, tt.set)
			req.Error(config.Validate())
		})
	}
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("**")
	req.ErrorIs(err, errs.ErrInvalidCharacter)

	_, err = CharacterRune("")
	req.ErrorIs(err, errs.ErrInvalidCharacter)
}
