package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"trackserver/internal/logger"
	"trackserver/internal/model"
	wshub "trackserver/internal/service/websocket"
)

const (
	clientReadLimit    = 512
	clientWriteTimeout = 2 * time.Second
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsWebsocketHandler sends the current status to a new viewer, then
// registers it in the hub for status and sighting events. Viewers only listen;
// incoming messages are discarded.
func EventsWebsocketHandler(hub *wshub.HubService, status func() model.StreamStatus, logger logger.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(clientReadLimit)

		// written before Register so the hub is the only writer afterwards
		_ = connection.SetWriteDeadline(time.Now().Add(clientWriteTimeout))
		if err := connection.WriteJSON(wshub.Event{Type: wshub.EventStatus, Data: status()}); err != nil {
			logger.Warning("Failed to send initial status: %v", err)
			connection.Close()
			return
		}
		_ = connection.SetWriteDeadline(time.Time{})

		hub.Register(connection)
		defer hub.Unregister(connection)

		logger.Info("Viewer connected from %s", r.RemoteAddr)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected: %v", err)
				}
				return
			}
		}
	}
}
