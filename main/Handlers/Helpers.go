package Handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
)

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

func ArrayContains(array []string, value string) bool {
	for _, v := range array {
		if v == value {
			return true
		}
	}
	return false
}

// ArrayUnion appends value unless it is already present.
func ArrayUnion(array []string, value string) []string {
	if ArrayContains(array, value) {
		return array
	}
	return append(array, value)
}

// ArrayRemove drops every occurrence of value; never returns nil.
func ArrayRemove(array []string, value string) []string {
	out := make([]string, 0, len(array))
	for _, v := range array {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

func AuthorizationWrapper(w http.ResponseWriter, r *http.Request, authHandler TokenVerifier) (bool, *auth.Token) {
	if r.Method == http.MethodOptions {
		_, _ = w.Write([]byte("OK"))
		return false, nil
	} else if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false, nil
	}
	idToken := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if idToken == "" {
		log.Println("No token found")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false, nil
	}
	token, err := authHandler.VerifyIDToken(r.Context(), idToken)
	if err != nil {
		log.Printf("error verifying ID token: %v\n", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false, nil
	}

	return true, token
}

func WriteJSON(w http.ResponseWriter, code int, value interface{}) {
	jsonResponse, err := json.Marshal(value)
	if err != nil {
		log.Println("Failed to marshal JSON response:", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err = w.Write(jsonResponse)
	if err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// ReadJSON decodes the request body into value, answering 400 on failure.
func ReadJSON(w http.ResponseWriter, r *http.Request, value interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(value); err != nil {
		log.Printf("Failed to decode request body: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
