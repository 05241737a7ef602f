package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"feedgate/internal/http/middleware"
	"feedgate/internal/http/response"
	"feedgate/internal/observability"
	"feedgate/internal/realtime"
)

// EventBusHandler streams real-time events over SSE. Every requested
// channel must pass the ACL for the mediated identity; there is no
// allow-all default.
type EventBusHandler struct {
	broker *realtime.Broker
	acl    realtime.ChannelACL
}

func NewEventBusHandler(broker *realtime.Broker, acl realtime.ChannelACL) *EventBusHandler {
	return &EventBusHandler{broker: broker, acl: acl}
}

func (h *EventBusHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	channels := r.URL.Query()["channel"]
	if len(channels) == 0 {
		response.Error(w, r, http.StatusBadRequest, "INVALID_INPUT", "at least one channel is required", nil)
		return
	}
	for _, channel := range channels {
		allowed, err := h.acl.AllowOutbound(r.Context(), identity, channel)
		if err != nil {
			response.Error(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "a backing store is unavailable, retry later", nil)
			return
		}
		if !allowed {
			observability.Audit(r, "eventbus.denied", "login", identity.Login, "channel", channel)
			response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "channel not permitted", nil)
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "streaming unsupported", nil)
		return
	}

	events, cancel := h.broker.Subscribe(channels)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-events:
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}
