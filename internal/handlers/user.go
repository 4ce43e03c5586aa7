package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/taskdeck/apiserver/internal/notify"
	"github.com/taskdeck/apiserver/internal/services"
	"github.com/taskdeck/apiserver/internal/store"
	"github.com/taskdeck/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 7

// userUpdateFields is the whitelist for PATCH /users/me.
var userUpdateFields = []string{"name", "email", "password", "age"}

// UserHandler provides registration, session, and profile endpoints.
type UserHandler struct {
	userService *services.UserService
	sessions    *services.SessionService
	auth        *Authenticator
	notifier    *notify.AccountNotifier
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(
	userService *services.UserService,
	sessions *services.SessionService,
	auth *Authenticator,
	notifier *notify.AccountNotifier,
) *UserHandler {
	return &UserHandler{
		userService: userService,
		sessions:    sessions,
		auth:        auth,
		notifier:    notifier,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(
	r chi.Router,
	userService *services.UserService,
	sessions *services.SessionService,
	auth *Authenticator,
	notifier *notify.AccountNotifier,
) {
	handler := NewUserHandler(userService, sessions, auth, notifier)

	r.Post("/", handler.Register)
	r.Post("/login", handler.Login)
	r.With(auth.Middleware).Post("/logout", handler.Logout)
	r.With(auth.Middleware).Post("/logout-all", handler.LogoutAll)
	r.Route("/me", func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Get("/", handler.Me)
		r.Patch("/", handler.UpdateMe)
		r.Delete("/", handler.DeleteMe)
		r.Post("/avatar", handler.UploadAvatar)
		r.Delete("/avatar", handler.DeleteAvatar)
	})
	r.Get("/{userID}/avatar", handler.GetAvatar)
}

// Register creates a new account and returns the user plus a session token.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	if err := validatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Age < 0 {
		writeError(w, http.StatusBadRequest, "age must not be negative")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Name:         req.Name,
		Email:        req.Email,
		Age:          req.Age,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "email already in use")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := h.auth.Issue(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	h.notifier.UserRegistered(user)

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login verifies credentials and returns the user plus a new session token.
// The same generic failure is returned for an unknown email and a wrong
// password.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "unable to login")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "unable to login")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusBadRequest, "unable to login")
		return
	}

	token, err := h.auth.Issue(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Logout revokes exactly the presenting session token.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	token, err := tokenFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.sessions.Revoke(r.Context(), user.ID, token); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// LogoutAll revokes every session token the user holds.
func (h *UserHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.sessions.RevokeAll(r.Context(), user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out from all devices"})
}

// Me returns the current authenticated user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe applies whitelisted profile updates to the current user.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	fields, err := decodeWhitelisted(r, userUpdateFields...)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if raw, ok := fields["name"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil || strings.TrimSpace(name) == "" {
			writeError(w, http.StatusBadRequest, "invalid name")
			return
		}
		user.Name = strings.TrimSpace(name)
	}
	if raw, ok := fields["email"]; ok {
		var email string
		if err := json.Unmarshal(raw, &email); err != nil || !validEmail(strings.TrimSpace(email)) {
			writeError(w, http.StatusBadRequest, "invalid email")
			return
		}
		user.Email = strings.TrimSpace(email)
	}
	if raw, ok := fields["age"]; ok {
		var age int
		if err := json.Unmarshal(raw, &age); err != nil || age < 0 {
			writeError(w, http.StatusBadRequest, "invalid age")
			return
		}
		user.Age = age
	}
	if raw, ok := fields["password"]; ok {
		var password string
		if err := json.Unmarshal(raw, &password); err != nil {
			writeError(w, http.StatusBadRequest, "invalid password")
			return
		}
		if err := validatePassword(password); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
		user.PasswordHash = string(hashed)
	}

	updated, err := h.userService.Update(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "email already in use")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteMe deletes the current account, cascading to its tasks and
// session tokens, and returns the removed profile.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.userService.DeleteAccount(r.Context(), user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	h.notifier.UserCancelled(user)

	writeJSON(w, http.StatusOK, user)
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	if dot < 1 || dot == len(domain)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t")
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return errors.New("password is too short")
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return errors.New("password must not contain \"password\"")
	}
	return nil
}
