package moderation

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
)

// BenchmarkModerator_Censor censors one full frame against a large dictionary.
func BenchmarkModerator_Censor(b *testing.B) {
	words := make([]string, 0, 100_000)
	for i := range 100_000 {
		words = append(words, fmt.Sprintf("word%d", i))
	}
	words = append(words, "badger")

	mod, err := NewModerator(words, '*', logs.GetLoggerFromLevel(slog.LevelError))
	if err != nil {
		b.Fatal(err)
	}

	frame := "[alice] the B.4.d.g.€r crossed the road while the snake was watching"
	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		_, _ = mod.Censor(frame)
	}
}
