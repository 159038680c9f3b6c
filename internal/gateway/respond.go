package gateway

import (
	"encoding/json"
	"net/http"
)

const (
	msgMethod      = "Only POST allowed"
	msgInvalidJSON = "Invalid JSON"
	msgTooLarge    = "Request body too large"
	msgPrompt      = "Prompt is required"
	msgRateLimited = "Rate limit exceeded. Try again later."
	msgLimiter     = "Rate limiter unavailable"
	msgUpstream    = "Failed to fetch response from OpenAI."
	msgInternal    = "Internal server error"
)

type errorBody struct {
	Error string `json:"error"`
}

type replyBody struct {
	Reply string `json:"reply"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}
