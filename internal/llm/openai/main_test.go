package openai

import (
	"io"
	"os"
	"testing"

	"career-curve/internal/shared/telemetry"
)

func TestMain(m *testing.M) {
	restore := telemetry.SetOutput(io.Discard)
	code := m.Run()
	restore()
	os.Exit(code)
}
