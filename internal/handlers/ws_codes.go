// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the battle handler.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError websocket.StatusCode = 3001 // Auth token was invalid or expired.
	NotBattleOwnerError   websocket.StatusCode = 3002 // Authenticated user does not own the battle.
	BattleClosedError     websocket.StatusCode = 3003 // Battle was swept for inactivity.
)
