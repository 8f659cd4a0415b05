package bootstrap

import (
	"os"
	"strconv"
	"time"

	"github.com/PreetKumarPanchani/voice-client/internal/capture"
	"github.com/PreetKumarPanchani/voice-client/internal/connection"
)

type Config struct {
	GatewayURL       string
	URLStyle         connection.URLStyle
	MaxAttempts      int
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration

	CaptureSampleRate int
	CaptureWindow     time.Duration

	EventBuffer int

	LogFile string
}

func LoadConfig() *Config {
	return &Config{
		// No fallback URL: an unset gateway must surface as a
		// configuration error, not a dial to a guessed host.
		GatewayURL:       getEnv("GATEWAY_URL", ""),
		URLStyle:         connection.URLStyle(getEnv("CLIENT_URL_STYLE", string(connection.URLStyleQuery))),
		MaxAttempts:      getEnvInt("RECONNECT_MAX_ATTEMPTS", connection.DefaultMaxAttempts),
		ReconnectDelay:   time.Duration(getEnvInt("RECONNECT_DELAY_MS", 3000)) * time.Millisecond,
		HandshakeTimeout: time.Duration(getEnvInt("HANDSHAKE_TIMEOUT_MS", 10000)) * time.Millisecond,

		CaptureSampleRate: getEnvInt("CAPTURE_SAMPLE_RATE", capture.DefaultSampleRate),
		CaptureWindow:     time.Duration(getEnvInt("CAPTURE_WINDOW_MS", 1000)) * time.Millisecond,

		EventBuffer: getEnvInt("EVENT_BUFFER", 64),

		LogFile: getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
