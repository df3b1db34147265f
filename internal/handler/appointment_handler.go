package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/shopspring/decimal"

	"appointment-api/internal/middleware"
	"appointment-api/internal/model"
	"appointment-api/internal/store"
)

type languageInput struct {
	Name string `json:"name"`
}

// appointmentInput uses pointers so PATCH can tell "absent" from "zero".
// There is deliberately no owner field: the owner always comes from the
// authenticated identity and a "user" key in the payload is ignored.
type appointmentInput struct {
	Title       *string          `json:"title"`
	TimeMinutes *int             `json:"time_minutes"`
	Price       *decimal.Decimal `json:"price"`
	Link        *string          `json:"link"`
	Description *string          `json:"description"`
	Languages   *[]languageInput `json:"languages"`
}

// maxPrice is the ceiling of the price column, numeric(5,2). Values past
// it are a predictable range rejection, not a store failure.
var maxPrice = decimal.New(99999, -2)

// validate checks the supplied fields; with required set (POST and PUT) the
// scalar fields title, time_minutes and price must all be present.
func (in *appointmentInput) validate(required bool) fieldErrors {
	fe := fieldErrors{}
	if in.Title == nil {
		if required {
			fe.add("title", "this field is required")
		}
	} else if *in.Title == "" {
		fe.add("title", "may not be blank")
	}
	if in.TimeMinutes == nil {
		if required {
			fe.add("time_minutes", "this field is required")
		}
	} else if *in.TimeMinutes < 0 {
		fe.add("time_minutes", "must be non-negative")
	} else if *in.TimeMinutes > math.MaxInt32 {
		fe.add("time_minutes", "ensure this value is at most 2147483647")
	}
	if in.Price == nil {
		if required {
			fe.add("price", "this field is required")
		}
	} else if in.Price.IsNegative() {
		fe.add("price", "must be non-negative")
	} else if in.Price.GreaterThan(maxPrice) {
		fe.add("price", "ensure this value is at most 999.99")
	}
	if in.Languages != nil {
		for _, l := range *in.Languages {
			if l.Name == "" {
				fe.add("languages", "language name may not be blank")
				break
			}
		}
	}
	return fe
}

func (in *appointmentInput) languageNames() []string {
	if in.Languages == nil {
		return nil
	}
	names := make([]string, 0, len(*in.Languages))
	for _, l := range *in.Languages {
		names = append(names, l.Name)
	}
	return names
}

// Response shapes: the list endpoint serves the summary, everything else
// the detail. Same stored entity, description included only in the detail.

type languageJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type appointmentSummary struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	TimeMinutes int             `json:"time_minutes"`
	Price       decimal.Decimal `json:"price"`
	Link        string          `json:"link"`
	Languages   []languageJSON  `json:"languages"`
}

type appointmentDetail struct {
	appointmentSummary
	Description string `json:"description"`
}

func toSummary(a *model.Appointment) appointmentSummary {
	langs := make([]languageJSON, 0, len(a.Languages))
	for _, l := range a.Languages {
		langs = append(langs, languageJSON{ID: l.ID, Name: l.Name})
	}
	return appointmentSummary{
		ID:          a.ID,
		Title:       a.Title,
		TimeMinutes: a.TimeMinutes,
		Price:       a.Price,
		Link:        a.Link,
		Languages:   langs,
	}
}

func toDetail(a *model.Appointment) appointmentDetail {
	return appointmentDetail{
		appointmentSummary: toSummary(a),
		Description:        a.Description,
	}
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	apts, err := h.store.ListAppointments(r.Context(), userID)
	if err != nil {
		h.internal(w, "list appointments", err)
		return
	}

	out := make([]appointmentSummary, 0, len(apts))
	for i := range apts {
		out = append(out, toSummary(&apts[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var in appointmentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if fe := in.validate(true); len(fe) > 0 {
		h.writeFieldErrors(w, fe)
		return
	}

	a := &model.Appointment{
		UserID:      userID,
		Title:       *in.Title,
		TimeMinutes: *in.TimeMinutes,
		Price:       *in.Price,
	}
	if in.Link != nil {
		a.Link = *in.Link
	}
	if in.Description != nil {
		a.Description = *in.Description
	}

	if err := h.store.CreateAppointment(r.Context(), a, in.languageNames()); err != nil {
		h.internal(w, "create appointment", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toDetail(a))
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id, ok := pathID(r)
	if !ok {
		h.writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	a, err := h.store.GetAppointment(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeDetail(w, http.StatusNotFound, "not found")
			return
		}
		h.internal(w, "get appointment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toDetail(a))
}

func (h *Handler) PutAppointment(w http.ResponseWriter, r *http.Request) {
	h.updateAppointment(w, r, false)
}

func (h *Handler) PatchAppointment(w http.ResponseWriter, r *http.Request) {
	h.updateAppointment(w, r, true)
}

// updateAppointment handles both modes: partial leaves absent fields alone,
// full requires the scalar fields up front. Either way the languages field
// is full-replacement when present and untouched when absent.
func (h *Handler) updateAppointment(w http.ResponseWriter, r *http.Request, partial bool) {
	userID := middleware.UserID(r.Context())
	id, ok := pathID(r)
	if !ok {
		h.writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	var in appointmentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if fe := in.validate(!partial); len(fe) > 0 {
		h.writeFieldErrors(w, fe)
		return
	}

	// the merge runs inside the store's transaction, under a row lock, so
	// concurrent partial updates cannot lose each other's fields
	a, err := h.store.UpdateAppointment(r.Context(), userID, id, func(a *model.Appointment) {
		if in.Title != nil {
			a.Title = *in.Title
		}
		if in.TimeMinutes != nil {
			a.TimeMinutes = *in.TimeMinutes
		}
		if in.Price != nil {
			a.Price = *in.Price
		}
		if in.Link != nil {
			a.Link = *in.Link
		}
		if in.Description != nil {
			a.Description = *in.Description
		}
	}, in.languageNames(), in.Languages != nil)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeDetail(w, http.StatusNotFound, "not found")
			return
		}
		h.internal(w, "update appointment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toDetail(a))
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id, ok := pathID(r)
	if !ok {
		h.writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.store.DeleteAppointment(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeDetail(w, http.StatusNotFound, "not found")
			return
		}
		h.internal(w, "delete appointment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
