package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/diogopython/Nuvemhost/internal/config"
	"github.com/diogopython/Nuvemhost/internal/logging"
	"github.com/diogopython/Nuvemhost/internal/middleware"
	"github.com/diogopython/Nuvemhost/internal/model"
	"github.com/diogopython/Nuvemhost/internal/queue"
	"github.com/diogopython/Nuvemhost/internal/repository"
	"github.com/diogopython/Nuvemhost/internal/utils"
)

// UserStore is satisfied by *repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, username, email, password string, cost int) (uint64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// SessionStore is satisfied by *repository.SessionRepo.
type SessionStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Revoke(ctx context.Context, tokenHash string) error
}

// RegistrationNotifier is satisfied by *service.EventPublisher.
type RegistrationNotifier interface {
	PublishUserRegisteredAsync(ctx context.Context, ev queue.UserRegisteredEvent)
}

// AuthHandler bundles dependencies for account endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Sessions SessionStore
	Events   RegistrationNotifier
	Log      logging.Logger
}

func NewAuthHandler(cfg config.Config, u UserStore, s SessionStore, ev RegistrationNotifier, log logging.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s, Events: ev, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type loginReq struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// RegisterPage describes the registration form.
func (h *AuthHandler) RegisterPage(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"page":    "register",
		"fields":  []string{"username", "email", "password", "confirm_password"},
		"flashes": flashes(c),
	})
}

// Register validates the form, creates the account and queues the welcome
// notification.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	switch {
	case req.Username == "" || req.Email == "" || req.Password == "":
		return badRequest(c, "All fields are required.")
	case !utils.ValidUsername(req.Username):
		return badRequest(c, "Username must be 3-20 characters long and contain only letters, numbers, and underscores.")
	case !utils.ValidEmail(req.Email):
		return badRequest(c, "Please enter a valid email address.")
	case len(req.Password) < utils.MinPasswordLen:
		return badRequest(c, "Password must be at least 6 characters long.")
	case req.Password != req.ConfirmPassword:
		return badRequest(c, "Passwords do not match.")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "Username or email already exists."})
		}
		h.Log.Error(ctx, "register: create user failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Registration failed. Please try again."})
	}
	h.Log.Info(ctx, "user registered", "user_id", uid)

	h.Events.PublishUserRegisteredAsync(c.Request().Context(), queue.UserRegisteredEvent{
		UserID:       uid,
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		RegisteredAt: time.Now().UTC().Format(time.RFC3339),
	})

	flash(c, "success", "Registration successful! Please log in.")
	return c.Redirect(http.StatusSeeOther, "/login")
}

// LoginPage describes the login form.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"page":    "login",
		"fields":  []string{"username", "password"},
		"flashes": flashes(c),
	})
}

// Login verifies the credentials, records a session and sets the session
// cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required.")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(req.Password)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid username or password."})
		}
		h.Log.Error(ctx, "login: query failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Login failed. Please try again."})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid username or password."})
	}

	tok, err := utils.NewSessionToken(h.Cfg.SecretKey, u.ID, u.Username, h.Cfg.SessionTTL())
	if err != nil {
		h.Log.Error(ctx, "login: issue token failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Login failed. Please try again."})
	}
	if err := h.Sessions.Store(ctx, u.ID, utils.HashTokenID(tok.ID), tok.Exp); err != nil {
		h.Log.Error(ctx, "login: save session failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Login failed. Please try again."})
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    tok.Token,
		Path:     "/",
		Expires:  tok.Exp,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	flash(c, "success", "Login successful!")
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Logout revokes the current session, if any, and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	if hash := middleware.SessionHash(c); hash != "" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := h.Sessions.Revoke(ctx, hash); err != nil && !errors.Is(err, repository.ErrNotFound) {
			h.Log.Warn(ctx, "logout: revoke failed", "err", err)
		}
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	flash(c, "info", "You have been logged out.")
	return c.Redirect(http.StatusSeeOther, "/")
}
