package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/apperr"
	"github.com/alfredjeanlab/pharmacy/internal/auth"
	"github.com/alfredjeanlab/pharmacy/internal/events"
	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

type loginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      *model.SystemUser `json:"user"`
	Role      *model.Role       `json:"role"`
}

// handleLogin handles POST /v1/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in loginInput
	if err := s.decode(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}

	// Unknown users, inactive users and wrong passwords are
	// indistinguishable to the client.
	denied := apperr.Unauthenticated("%s", auth.ErrBadCredentials.Error())
	user, err := s.store.GetUserByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, r, denied)
			return
		}
		writeErr(w, r, err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, in.Password); err != nil || !user.IsActive {
		slog.Info("login rejected", "username", in.Username, "active", user.IsActive)
		writeErr(w, r, denied)
		return
	}
	role, err := s.store.Roles().Get(ctx, user.RoleID)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	token, expires, err := s.tokens.Issue(user, role)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	now := time.Now().UTC()
	if err := s.store.SetUserLastLogin(ctx, user.ID, now); err != nil {
		slog.Warn("failed to record last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	ctx = auth.WithClaims(ctx, &auth.Claims{Username: user.Username})
	s.recordAndPublish(ctx, events.TopicUserLogin, model.SystemUserSchema.Entity(), user.ID.String(),
		events.UserLogin{UserID: user.ID.String(), Username: user.Username})

	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, User: user, Role: role})
}

type meResponse struct {
	User        *model.SystemUser `json:"user"`
	Role        string            `json:"role"`
	Permissions []string          `json:"permissions"`
}

// handleMe handles GET /v1/auth/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		writeErr(w, r, apperr.Unauthenticated("invalid token subject"))
		return
	}
	user, err := s.store.Users().Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, r, apperr.Unauthenticated("account no longer exists"))
			return
		}
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: user, Role: claims.Role, Permissions: claims.Permissions})
}

type passwordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

// handleChangePassword handles PUT /v1/users/{id}/password. Users may change
// their own password by proving the current one; users:write may reset
// anyone else's.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	claims := auth.ClaimsFromContext(ctx)
	self := claims.Subject == id.String()
	if !self && !claims.Can("users", actionWrite) {
		writeErr(w, r, apperr.Denied("permission users:write required"))
		return
	}

	var in passwordInput
	if err := s.decode(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}
	user, err := s.store.Users().Get(ctx, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if self {
		if err := auth.CheckPassword(user.PasswordHash, in.CurrentPassword); err != nil {
			writeErr(w, r, apperr.Invalid("current password is incorrect"))
			return
		}
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		writeErr(w, r, apperr.Invalid("%s", err))
		return
	}
	if err := s.store.SetUserPassword(ctx, id, hash); err != nil {
		writeErr(w, r, err)
		return
	}

	s.recordAndPublish(ctx, events.TopicPasswordChanged, model.SystemUserSchema.Entity(), id.String(),
		events.PasswordChanged{UserID: id.String()})
	w.WriteHeader(http.StatusNoContent)
}
