package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"ipsentry/internal/api/dto"
	"ipsentry/internal/auth"
	"ipsentry/internal/database"
	"ipsentry/internal/domain"
	"ipsentry/internal/support"
)

func checkLogin(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserIDFromRequest(r)
	if err != nil {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint{"user_id": userID})
}

func registerUser(w http.ResponseWriter, r *http.Request) {
	var credentials dto.Credentials
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !auth.IsValidEmail(credentials.Email) {
		writeError(w, "Invalid email format", http.StatusBadRequest)
		return
	}

	if len(credentials.Password) < 8 {
		writeError(w, "Password must be at least 8 characters long", http.StatusBadRequest)
		return
	}

	hashedPassword, err := support.HashPassword(credentials.Password)
	if err != nil {
		writeError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	if _, err := database.GetUserByEmail(r.Context(), credentials.Email); err == nil {
		writeError(w, "Email already in use", http.StatusConflict)
		return
	} else if !errors.Is(err, database.ErrUserNotFound) {
		writeError(w, "Failed to query database", http.StatusInternalServerError)
		return
	}

	user := domain.User{
		Email:    credentials.Email,
		Password: hashedPassword,
		Role:     "user",
	}

	// First account becomes the administrator.
	count, err := database.CountUsers(r.Context())
	if err != nil {
		writeError(w, "Failed to query database", http.StatusInternalServerError)
		return
	}
	if count == 0 {
		user.Role = "admin"
	}

	if err := database.CreateUser(r.Context(), &user); err != nil {
		writeError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Role)
	if err != nil {
		writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func loginUser(w http.ResponseWriter, r *http.Request) {
	var credentials dto.Credentials
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	user, err := database.GetUserByEmail(r.Context(), credentials.Email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			writeError(w, "Invalid credentials", http.StatusBadRequest)
			return
		}
		writeError(w, "Failed to query database", http.StatusInternalServerError)
		return
	}

	if !support.CheckPasswordHash(credentials.Password, user.Password) {
		writeError(w, "Invalid credentials", http.StatusBadRequest)
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Role)
	if err != nil {
		writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token, "role": user.Role})
}
