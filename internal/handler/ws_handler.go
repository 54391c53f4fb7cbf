/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which upgrades the HTTP connection, attaches
the new connection to the hub and runs its read and write loops.
*/
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"roomrelay/internal/app/chat"
	"roomrelay/internal/app/socket"
	"roomrelay/internal/pkg/errs"
	"roomrelay/internal/pkg/logx"
	"roomrelay/internal/pkg/randx"
	"roomrelay/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// The handler blocks for the lifetime of the connection.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := logx.AnonymizeIP(r.RemoteAddr)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket", "ip", ip)
			return
		}

		client := socket.NewClient(randx.ConnectionID(), conn)

		session, err := deps.Hub.Attach(client)
		if err != nil {
			if errors.Is(err, chat.ErrHubClosed) {
				logx.Info("WebSocket connection refused: server shutting down.", "ip", ip)
			} else {
				logx.Error(err, "Failed to attach WebSocket connection", "ip", ip)
			}
			closeMsg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server unavailable")
			_ = conn.WriteMessage(websocket.CloseMessage, closeMsg)
			_ = conn.Close()
			return
		}

		go client.WritePump()

		logx.Info("WebSocket connection established", "conn_id", client.ID(), "ip", ip)

		// The request context is cancelled once the handler returns, which is after the
		// read loop has ended; events in flight keep running to completion.
		client.ReadPump(context.WithoutCancel(r.Context()), session)

		logx.Info("WebSocket connection closed", "conn_id", client.ID())
	}
}

// HandleHealth reports liveness and the current number of connections.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status":      "ok",
			"service":     "roomrelay",
			"connections": deps.Hub.Len(),
			"users":       deps.Hub.Registry().Len(),
		})
	}
}

// HandleRoot answers the plain liveness probe at "/".
func HandleRoot(w http.ResponseWriter, r *http.Request) {
	resp.RespondText(w, r, "Server is up and running.")
}

// HandleNotFound reports unknown routes in the standard JSON envelope.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	customErr := errs.NewError(errs.ErrInvalidParams)
	customErr.Status = http.StatusNotFound
	resp.RespondError(w, r, customErr)
}
