package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewRespectsLevel(t *testing.T) {
	log, err := New("ledger-service", "prod", "warn")
	if err != nil {
		t.Fatal(err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) || !log.Core().Enabled(zapcore.WarnLevel) {
		t.Fatal("warn level should drop debug and keep warn")
	}
	if _, err := New("ledger-service", "prod", "loud"); err == nil {
		t.Fatal("unknown level should fail")
	}
}
