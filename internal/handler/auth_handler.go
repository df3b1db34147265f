package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"appointment-api/internal/auth"
	"appointment-api/internal/model"
	"appointment-api/internal/store"
)

const refreshTTL = 30 * 24 * time.Hour

type registerInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	fe := fieldErrors{}
	if in.Email == "" {
		fe.add("email", "this field is required")
	} else if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		// reject malformed addresses and display-name forms alike
		fe.add("email", "enter a valid email address")
	}
	if in.Name == "" {
		fe.add("name", "this field is required")
	}
	if in.Password == "" {
		fe.add("password", "this field is required")
	} else if len(in.Password) < 8 {
		fe.add("password", "must be at least 8 characters")
	}
	if len(fe) > 0 {
		h.writeFieldErrors(w, fe)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.internal(w, "hash password", err)
		return
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// dup email, but don't spell that out
			h.writeDetail(w, http.StatusConflict, "registration failed")
			return
		}
		h.internal(w, "create user", err)
		return
	}

	pair, err := h.issueTokens(r, u.ID)
	if err != nil {
		h.internal(w, "issue tokens", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{
		"user_id":       u.ID,
		"token":         pair.access,
		"refresh_token": pair.refresh,
	})
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if in.Email == "" || in.Password == "" {
		h.writeDetail(w, http.StatusBadRequest, "email and password required")
		return
	}

	u, err := h.store.UserByEmail(r.Context(), in.Email)
	if err != nil || !auth.CheckPassword(u.PasswordHash, in.Password) {
		h.writeDetail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	pair, err := h.issueTokens(r, u.ID)
	if err != nil {
		h.internal(w, "issue tokens", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"user_id":       u.ID,
		"name":          u.Name,
		"token":         pair.access,
		"refresh_token": pair.refresh,
	})
}

type refreshInput struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.RefreshToken == "" {
		h.writeDetail(w, http.StatusBadRequest, "refresh_token required")
		return
	}

	rt, err := h.store.RefreshTokenByHash(r.Context(), auth.HashRefreshToken(in.RefreshToken))
	if err != nil {
		h.writeDetail(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if rt.Revoked {
		// reuse of a rotated token: assume theft, kill the whole family
		if err := h.store.RevokeAllRefreshTokens(r.Context(), rt.UserID); err != nil {
			h.log.Error("revoke refresh tokens", zap.Error(err))
		}
		h.writeDetail(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if time.Now().After(rt.ExpiresAt) {
		h.writeDetail(w, http.StatusUnauthorized, "refresh token expired")
		return
	}

	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		h.internal(w, "generate refresh token", err)
		return
	}
	newID := uuid.New().String()
	if err := h.store.RotateRefreshToken(r.Context(), rt.ID, newID, rt.UserID, hash, time.Now().Add(refreshTTL)); err != nil {
		h.internal(w, "rotate refresh token", err)
		return
	}

	access, err := auth.MakeToken(rt.UserID, h.secret, h.accessTTL)
	if err != nil {
		h.internal(w, "make token", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"token":         access,
		"refresh_token": raw,
	})
}

type tokenPair struct {
	access  string
	refresh string
}

func (h *Handler) issueTokens(r *http.Request, userID string) (tokenPair, error) {
	access, err := auth.MakeToken(userID, h.secret, h.accessTTL)
	if err != nil {
		return tokenPair{}, err
	}
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return tokenPair{}, err
	}
	if _, err := h.store.CreateRefreshToken(r.Context(), userID, hash, time.Now().Add(refreshTTL)); err != nil {
		return tokenPair{}, err
	}
	return tokenPair{access: access, refresh: raw}, nil
}
