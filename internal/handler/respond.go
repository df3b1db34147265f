package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// fieldErrors carries per-field validation messages, rendered as the 400
// response body.
type fieldErrors map[string][]string

func (fe fieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("write response", zap.Error(err))
	}
}

func (h *Handler) writeDetail(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"detail": msg})
}

func (h *Handler) writeFieldErrors(w http.ResponseWriter, fe fieldErrors) {
	h.writeJSON(w, http.StatusBadRequest, fe)
}

func (h *Handler) internal(w http.ResponseWriter, op string, err error) {
	h.log.Error(op, zap.Error(err))
	h.writeDetail(w, http.StatusInternalServerError, "internal error")
}

// pathID parses the {id} segment. A non-numeric id behaves like an absent
// resource, not a validation failure.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
