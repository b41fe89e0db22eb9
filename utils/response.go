package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"linkedevents/apierr"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// RespondFilterError maps parameter errors to 400 and everything else to 500.
func RespondFilterError(w http.ResponseWriter, err error) {
	var pe *apierr.ParamError
	if errors.As(err, &pe) {
		RespondWithJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]string{
				"parameter": pe.Param,
				"value":     pe.Value,
				"detail":    pe.Detail,
			},
		})
		return
	}
	RespondWithError(w, http.StatusInternalServerError, err.Error())
}
