package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hollowaydev/fieldops/internal/fault"
	"github.com/hollowaydev/fieldops/internal/notify"
)

const (
	maxTitleLen = 100
	maxBodyLen  = 500
)

type SendHandler struct {
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
	timeout    time.Duration
}

func NewSendHandler(dispatcher *notify.Dispatcher, timeout time.Duration, logger *slog.Logger) *SendHandler {
	return &SendHandler{dispatcher: dispatcher, logger: logger, timeout: timeout}
}

type sendRequest struct {
	UserIDs  []int64           `json:"user_ids"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data"`
	ImageURL string            `json:"image_url"`
}

func (req *sendRequest) validate() error {
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)

	if req.Title == "" || len(req.Title) > maxTitleLen {
		return fault.New(fault.Validation, "title must be 1-%d characters", maxTitleLen)
	}
	if req.Body == "" || len(req.Body) > maxBodyLen {
		return fault.New(fault.Validation, "body must be 1-%d characters", maxBodyLen)
	}
	if req.ImageURL != "" {
		u, err := url.ParseRequestURI(req.ImageURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fault.New(fault.Validation, "image_url must be a valid http(s) URL")
		}
	}
	return nil
}

// Send handles POST /api/send. A dispatch that ran always answers 200 with the
// delivery report; per-endpoint failures are inside the report, not the status.
func (h *SendHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, h.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.dispatcher.Dispatch(ctx, req.UserIDs, notify.Notification{
		Title:    req.Title,
		Body:     req.Body,
		Data:     req.Data,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
