// internal/app/features/accounts/login.go
package accounts

import (
	"context"
	"errors"
	"net/http"

	apierrors "github.com/dalemusser/animelist/internal/app/features/errors"
	"github.com/dalemusser/animelist/internal/app/system/inputval"
	"github.com/dalemusser/animelist/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const msgBadCredentials = "Invalid email or password"

type loginInput struct {
	Email    string `json:"email" validate:"required" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type loginResponse struct {
	Message        string `json:"message"`
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture"`
	Token          string `json:"token"`
}

// Login handles POST /login and issues a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "login: bad body", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierrors.WriteMessage(w, http.StatusBadRequest, res.First())
		return
	}

	if ok, msg := h.Limiter.CheckLogin(r, in.Email); !ok {
		apierrors.WriteMessage(w, http.StatusTooManyRequests, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.WriteMessage(w, http.StatusBadRequest, msgBadCredentials)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "login: user lookup failed", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		h.Log.Debug("login: wrong password", zap.String("user_id", u.ID.Hex()))
		apierrors.WriteMessage(w, http.StatusBadRequest, msgBadCredentials)
		return
	}

	token, err := h.Tokens.Issue(u.ID.Hex(), u.Email)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "login: issue token failed", err)
		return
	}
	h.Limiter.ResetEmail(ctx, in.Email)
	if err := h.Logins.CreateFrom(ctx, r, u.ID); err != nil {
		h.Log.Warn("login: record login failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	}

	apierrors.WriteJSON(w, http.StatusOK, loginResponse{
		Message:        "Login successful",
		UserID:         u.ID.Hex(),
		Username:       u.Username,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		Token:          token,
	})
}
