package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// respondWithError logs the error and sends a JSON error response
// Use this to avoid exposing internal errors while still logging them
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil {
		log.Printf("API Error [%d]: %s - %v", code, message, err)
	} else {
		log.Printf("API Error [%d]: %s", code, message)
	}
	respondJSON(w, code, map[string]string{"error": message})
}

// getFloatPtrParam retrieves an optional float query parameter. Nil
// means the parameter was absent or unparsable.
func getFloatPtrParam(r *http.Request, key string) *float64 {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return nil
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return nil
	}
	return &val
}

// getIntParam retrieves an integer query parameter with a default
func getIntParam(r *http.Request, key string, defaultVal int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
