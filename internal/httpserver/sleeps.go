package httpserver

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sleepadvice/internal/advice"
	"sleepadvice/internal/llm"
	"sleepadvice/internal/middleware"
	"sleepadvice/internal/sleep"
)

const maxBodyBytes = 1 << 16

var errInvalidJSON = errors.New("invalid json")

// SleepHandler serves CRUD over sleep records and the advice endpoint.
type SleepHandler struct {
	store  sleep.Store
	advice *advice.Service
	logger *slog.Logger
}

func NewSleepHandler(store sleep.Store, adviceService *advice.Service, logger *slog.Logger) *SleepHandler {
	return &SleepHandler{
		store:  store,
		advice: adviceService,
		logger: logger,
	}
}

func (h *SleepHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/advice", h.advise)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *SleepHandler) list(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if records == nil {
		records = []sleep.Record{}
	}
	WriteJSON(w, http.StatusOK, records)
}

func (h *SleepHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

func (h *SleepHandler) create(w http.ResponseWriter, r *http.Request) {
	var in sleep.NewRecord
	if !decodeBody(w, r, &in) {
		return
	}
	rec, err := h.store.Create(r.Context(), in)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, rec)
}

func (h *SleepHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in sleep.NewRecord
	if !decodeBody(w, r, &in) {
		return
	}
	rec, err := h.store.Update(r.Context(), id, in)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

func (h *SleepHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adviceRequest struct {
	Days *int `json:"days"`
}

type adviceResponse struct {
	Advice string `json:"advice"`
}

func (h *SleepHandler) advise(w http.ResponseWriter, r *http.Request) {
	var in adviceRequest
	if !decodeBody(w, r, &in) {
		return
	}
	days := advice.DefaultDays
	if in.Days != nil {
		days = *in.Days
	}
	if days <= 0 {
		WriteJSONError(w, http.StatusBadRequest, "invalid_days", "days must be positive")
		return
	}

	text, err := h.advice.AdviseFromStore(r.Context(), h.store, days)
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, adviceResponse{Advice: text})
	case errors.Is(err, advice.ErrNoRecords):
		WriteJSONError(w, http.StatusUnprocessableEntity, "no_records", err.Error())
	default:
		var te *llm.TransportError
		if errors.As(err, &te) {
			h.logger.Error("advice generation failed",
				slog.String("error", err.Error()),
				slog.String("request_id", middleware.GetRequestID(r.Context())))
			WriteJSONError(w, http.StatusBadGateway, "generation_failed", "advice generation failed")
			return
		}
		h.serverError(w, r, err)
	}
}

func (h *SleepHandler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sleep.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, sleep.ErrInvalidRecord):
		WriteJSONError(w, http.StatusBadRequest, "invalid_record", err.Error())
	default:
		h.serverError(w, r, err)
	}
}

func (h *SleepHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("sleep api error",
		slog.String("error", err.Error()),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetRequestID(r.Context())))
	WriteJSONError(w, http.StatusInternalServerError, "internal", "server error")
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteJSONError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// decodeBody treats an empty body as an empty object.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeBodyFrom(r.Body, v); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return false
	}
	return true
}

func decodeBodyFrom(r io.Reader, v any) error {
	body, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	// the streaming decoder reports truncated input as io.EOF
	if !json.Valid(body) {
		return errInvalidJSON
	}
	return json.Unmarshal(body, v)
}
