package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"feedgate/internal/http/middleware"
	"feedgate/internal/http/response"
	"feedgate/internal/service"
)

// FeedHandler executes feed CRUD for the identity bound by the token
// gate. Identity presence is a routing precondition; ownership of the
// individual feed is checked per operation by the service.
type FeedHandler struct {
	feeds *service.FeedService
}

func NewFeedHandler(feeds *service.FeedService) *FeedHandler {
	return &FeedHandler{feeds: feeds}
}

func (h *FeedHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	var in service.FeedInput
	if err := decodeJSON(r, &in); err != nil {
		response.Error(w, r, http.StatusBadRequest, "INVALID_INPUT", "malformed request body", nil)
		return
	}
	feed, err := h.feeds.Create(r.Context(), identity, in)
	if err != nil {
		response.ServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, feed)
}

func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	feeds, err := h.feeds.List(r.Context(), identity)
	if err != nil {
		response.ServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, feeds)
}

func (h *FeedHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	feed, err := h.feeds.Get(r.Context(), identity, chi.URLParam(r, "feedID"))
	if err != nil {
		response.ServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, feed)
}

func (h *FeedHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	var in service.FeedInput
	if err := decodeJSON(r, &in); err != nil {
		response.Error(w, r, http.StatusBadRequest, "INVALID_INPUT", "malformed request body", nil)
		return
	}
	feed, err := h.feeds.Update(r.Context(), identity, chi.URLParam(r, "feedID"), in)
	if err != nil {
		response.ServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, feed)
}

func (h *FeedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	if err := h.feeds.Delete(r.Context(), identity, chi.URLParam(r, "feedID")); err != nil {
		response.ServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *FeedHandler) Entries(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	entries, err := h.feeds.Entries(r.Context(), identity, chi.URLParam(r, "feedID"), limit)
	if err != nil {
		response.ServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, entries)
}
