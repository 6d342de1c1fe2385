package realtime

import "time"

// Security/performance limits for viewer connections.
const (
	// Max bytes per websocket frame read (hard limit). Viewers only send
	// handshake and watch requests, so this is generous.
	maxFrameBytes = 32 << 10 // 32 KiB
)

const (
	// Heartbeat defaults (can be overridden by env in ws_gateway.go).
	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second

	// Per-connection rate limits (events per window).
	rateLimitEvents = 60
	rateLimitWindow = 10 * time.Second
)
