package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want *zapcore.Level
	}{
		{in: "debug", want: levelPtr(zapcore.DebugLevel)},
		{in: "INFO", want: levelPtr(zapcore.InfoLevel)},
		{in: "warning", want: levelPtr(zapcore.WarnLevel)},
		{in: " error ", want: levelPtr(zapcore.ErrorLevel)},
		{in: "verbose", want: nil},
		{in: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseLevel(tt.in)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("parseLevel(%q) = %v, want nil", tt.in, *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, *tt.want)
			}
		})
	}
}

func TestNopAcceptsEverything(t *testing.T) {
	log := Nop().With(Component("test"), String("k", "v"))
	log.Debug("d", Int("n", 1), Bool("b", true))
	log.Info("i", Strings("s", []string{"a"}))
	log.Warn("w", Error(errors.New("boom")))
	log.Errorf("e %d", 1)
	if err := log.Sync(); err != nil {
		t.Errorf("Sync() = %v", err)
	}
}

func levelPtr(l zapcore.Level) *zapcore.Level { return &l }
