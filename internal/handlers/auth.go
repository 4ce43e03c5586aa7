package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/taskdeck/apiserver/internal/services"
	"github.com/taskdeck/apiserver/types"
)

// Authenticator issues session tokens and validates bearer tokens on
// protected routes. A token passes only when its signature verifies,
// the embedded user exists, and the exact token string is still in the
// user's active session set. Callers are never told which check failed.
// Tokens carry no expiry; a session ends only through logout.
type Authenticator struct {
	users    *services.UserService
	sessions *services.SessionService
	secret   []byte
}

// NewAuthenticator constructs an Authenticator with the provided dependencies.
func NewAuthenticator(users *services.UserService, sessions *services.SessionService, jwtSecret string) *Authenticator {
	return &Authenticator{
		users:    users,
		sessions: sessions,
		secret:   []byte(jwtSecret),
	}
}

// Issue signs a new session token for the user and records it in the
// active session set.
func (a *Authenticator) Issue(ctx context.Context, userID int) (string, error) {
	token, err := issueToken(userID, a.secret)
	if err != nil {
		return "", err
	}
	if err := a.sessions.Record(ctx, userID, token); err != nil {
		return "", err
	}
	return token, nil
}

// Middleware enforces bearer authentication and injects the resolved
// user and the presented token into the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := a.authenticate(r.Context(), tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), contextUserKey, user)
		ctx = context.WithValue(ctx, contextTokenKey, tokenString)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) authenticate(ctx context.Context, tokenString string) (types.User, error) {
	subject, err := parseTokenSubject(tokenString, a.secret)
	if err != nil {
		return types.User{}, err
	}

	userID, err := strconv.Atoi(subject)
	if err != nil || userID < 1 {
		return types.User{}, errors.New("invalid subject")
	}

	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}

	active, err := a.sessions.IsActive(ctx, user.ID, tokenString)
	if err != nil {
		return types.User{}, err
	}
	if !active {
		return types.User{}, errors.New("token revoked")
	}

	return user, nil
}

func issueToken(userID int, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  strconv.Itoa(userID),
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// parseTokenSubject verifies the signature and extracts the subject.
// Time-based claims are not validated: only membership in the session
// set decides whether a token is still good.
func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
