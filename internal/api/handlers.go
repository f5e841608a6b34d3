package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"memochat/internal/auth"
	"memochat/internal/core"
	"memochat/internal/store"
)

type APIHandler struct {
	chatService   *core.ChatService
	memoryService *core.MemoryService
	streamer      core.Streamer
}

func NewAPIHandler(cs *core.ChatService, ms *core.MemoryService, streamer core.Streamer) *APIHandler {
	return &APIHandler{
		chatService:   cs,
		memoryService: ms,
		streamer:      streamer,
	}
}

// AuthMiddleware validates the bearer token and stashes the caller's user
// id in the request context. Missing, malformed, forged and expired tokens
// all read the same to the client.
func (h *APIHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := auth.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func toUserResponse(u *store.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Missing credentials", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		// Default the display name to the email's local part.
		req.Name, _, _ = strings.Cut(req.Email, "@")
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		logrus.WithError(err).Error("Failed to hash password")
		http.Error(w, "Signup failed", http.StatusInternalServerError)
		return
	}

	user, err := h.chatService.CreateUser(req.Email, passwordHash, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Failed to create user")
		http.Error(w, "Signup failed", http.StatusInternalServerError)
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		logrus.WithError(err).Error("Failed to generate token")
		http.Error(w, "Signup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(authResponse{User: toUserResponse(user), Token: token})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Missing credentials", http.StatusBadRequest)
		return
	}

	user, err := h.chatService.GetUserByEmail(req.Email)
	if err != nil {
		logrus.WithError(err).WithField("email", req.Email).Error("Failed to look up user")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}
	// Unknown email and wrong password are indistinguishable to the caller.
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		logrus.WithError(err).Error("Failed to generate token")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authResponse{User: toUserResponse(user), Token: token})
}

func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	user, err := h.chatService.GetUserByID(userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to load user")
		http.Error(w, "Auth failed", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]userResponse{"user": toUserResponse(user)})
}
