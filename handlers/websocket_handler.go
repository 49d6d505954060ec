package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/courtclub/competition-system/brackets"
	"github.com/courtclub/competition-system/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// в продакшене ограничить доверенными доменами фронтенда
		return true
	},
}

type WebSocketHandler struct {
	hub            *brackets.Hub
	contestService services.ContestService
	logger         *slog.Logger
}

func NewWebSocketHandler(hub *brackets.Hub, contestService services.ContestService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, contestService: contestService, logger: logger}
}

// ServeWs подключает клиента к комнате соревнования /ws/contests/{contestID}.
// Клиент получает события MATCH_UPDATED, BRACKET_UPDATED, CONTEST_FINISHED.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	contestID, err := idParam(r, "contestID")
	if err != nil {
		http.Error(w, "invalid contestID", http.StatusBadRequest)
		return
	}

	if _, err := h.contestService.GetByID(r.Context(), contestID); err != nil {
		http.NotFound(w, r)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой
		h.logger.Error("websocket upgrade failed",
			slog.Int("contest_id", contestID),
			slog.Any("error", err))
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: services.ContestRoom(contestID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("websocket client connected",
		slog.Int("contest_id", contestID),
		slog.String("remote", r.RemoteAddr))
}
