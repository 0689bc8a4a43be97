package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/domain"
	"padel-telegram-notifier/internal/infra/logging"
	"padel-telegram-notifier/internal/usecase"
)

type messageRef struct {
	ChatID    int64 `json:"chatId"`
	MessageID int64 `json:"messageId"`
}

type successBody struct {
	Success bool `json:"success"`
}

type errorBody struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

type messageHandlers struct {
	messages usecase.MessageUseCase
	sync     usecase.SyncUseCase
	log      *zerolog.Logger
}

func (h *messageHandlers) updateMessage(w http.ResponseWriter, r *http.Request) {
	ref, ok := decodeMessageRef(w, r)
	if !ok {
		return
	}
	ctx := logging.WithChatID(r.Context(), ref.ChatID)
	l := logging.With(ctx, h.log)

	res, err := h.messages.RefreshByMessage(ctx, ref.ChatID, ref.MessageID)
	switch {
	case err == nil:
		l.Info().Str("booking_id", res.BookingID).Str("action", string(res.Action)).Msg("message refreshed")
		writeJSON(w, http.StatusOK, successBody{Success: true})
	case errors.Is(err, domain.ErrMessageNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "message not found"})
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		l.Error().Err(err).Int64("message_id", ref.MessageID).Msg("message refresh failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func (h *messageHandlers) deleteMessage(w http.ResponseWriter, r *http.Request) {
	ref, ok := decodeMessageRef(w, r)
	if !ok {
		return
	}
	ctx := logging.WithChatID(r.Context(), ref.ChatID)

	if err := h.messages.DeleteMessage(ctx, ref.ChatID, ref.MessageID); err != nil {
		l := logging.With(ctx, h.log)
		l.Warn().Err(err).Int64("message_id", ref.MessageID).Msg("message delete failed")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

// syncBooking is the hook the booking subsystem calls after every mutation.
func (h *messageHandlers) syncBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	ctx := logging.WithBookingID(r.Context(), bookingID)

	res, err := h.sync.Reconcile(ctx, bookingID)
	if err == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}

	code := statusForSyncError(err)
	body := errorBody{Error: err.Error()}
	var se *usecase.SyncError
	if errors.As(err, &se) {
		body.Stage = string(se.Stage)
	}
	if code >= http.StatusInternalServerError {
		l := logging.With(ctx, h.log)
		l.Error().Err(err).Int("status", code).Msg("booking sync failed")
	}
	writeJSON(w, code, body)
}

func statusForSyncError(err error) int {
	switch {
	case errors.Is(err, domain.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrTransientUpstream):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeMessageRef(w http.ResponseWriter, r *http.Request) (messageRef, bool) {
	var ref messageRef
	if r.Body == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing body"})
		return ref, false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&ref); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return ref, false
	}
	if ref.ChatID == 0 || ref.MessageID == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "chatId and messageId are required"})
		return ref, false
	}
	return ref, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
