package httpapi

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo, // default
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?log=debug", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query override failed: %v", got)
	}
	r = httptest.NewRequest("GET", "/x?log=1", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("short query override failed: %v", got)
	}
	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("header override failed: %v", got)
	}
}

func TestLogRequest(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer SetLogger(zerolog.Nop())

	r := httptest.NewRequest("GET", "/plan/m", nil)
	logRequest(r, 404, time.Now(), errors.New("model not found: m"))
	out := buf.String()
	if !strings.Contains(out, `"status":404`) || !strings.Contains(out, `"component":"httpapi"`) || !strings.Contains(out, "model not found") {
		t.Fatalf("log line: %s", out)
	}

	buf.Reset()
	r = httptest.NewRequest("GET", "/models?log=error", nil)
	logRequest(r, 200, time.Now(), nil)
	if buf.Len() != 0 {
		t.Fatalf("success logged at error level: %s", buf.String())
	}

	r = httptest.NewRequest("GET", "/models?log=off", nil)
	logRequest(r, 500, time.Now(), errors.New("x"))
	if buf.Len() != 0 {
		t.Fatalf("logged with log=off: %s", buf.String())
	}
}
