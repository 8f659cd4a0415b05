package protocol

import "fmt"

// CloseCodeNormal is the only close code treated as clean; every other
// code lets the reconnect policy run.
const CloseCodeNormal = 1000

var closeReasons = map[int]string{
	1000: "Normal closure",
	1001: "Endpoint going away",
	1002: "Protocol error",
	1003: "Unsupported data",
	1004: "Reserved",
	1005: "No status received",
	1006: "Abnormal closure",
	1007: "Invalid frame payload data",
	1008: "Policy violation",
	1009: "Message too big",
	1010: "Mandatory extension missing",
	1011: "Internal server error",
	1012: "Service restart",
	1013: "Try again later",
	1014: "Bad gateway",
	1015: "TLS handshake failure",
}

// CloseReason maps a WebSocket close code to a human-readable reason for
// status display.
func CloseReason(code int) string {
	if reason, ok := closeReasons[code]; ok {
		return reason
	}
	return fmt.Sprintf("Unknown close code %d", code)
}

// IsCleanClose reports whether a close code suppresses reconnection.
func IsCleanClose(code int) bool {
	return code == CloseCodeNormal
}
