package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"appointment-api/internal/middleware"
	"appointment-api/internal/store"
)

// Languages have no create endpoint: they come into existence only through
// appointment reconciliation.

func (h *Handler) ListLanguages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	langs, err := h.store.ListLanguages(r.Context(), userID)
	if err != nil {
		h.internal(w, "list languages", err)
		return
	}

	out := make([]languageJSON, 0, len(langs))
	for _, l := range langs {
		out = append(out, languageJSON{ID: l.ID, Name: l.Name})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) UpdateLanguage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id, ok := pathID(r)
	if !ok {
		h.writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	var in languageInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if in.Name == "" {
		h.writeFieldErrors(w, fieldErrors{"name": {"this field is required"}})
		return
	}

	lang, err := h.store.UpdateLanguage(r.Context(), userID, id, in.Name)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			h.writeDetail(w, http.StatusNotFound, "not found")
		case errors.Is(err, store.ErrDuplicate):
			h.writeFieldErrors(w, fieldErrors{"name": {"language with this name already exists"}})
		default:
			h.internal(w, "update language", err)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, languageJSON{ID: lang.ID, Name: lang.Name})
}

func (h *Handler) DeleteLanguage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id, ok := pathID(r)
	if !ok {
		h.writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.store.DeleteLanguage(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeDetail(w, http.StatusNotFound, "not found")
			return
		}
		h.internal(w, "delete language", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
