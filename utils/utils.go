package utils

import (
	"net/http"
	"regexp"
	"strings"

	"linkedevents/globals"

	"github.com/google/uuid"
)

func GetUUID() string {
	return uuid.New().String()
}

// GetUserIDFromRequest returns the authenticated user id, or "".
func GetUserIDFromRequest(r *http.Request) string {
	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetDataSourceFromRequest returns the api-key authenticated data source id, or "".
func GetDataSourceFromRequest(r *http.Request) string {
	ds, ok := r.Context().Value(globals.DataSourceKey).(string)
	if !ok {
		return ""
	}
	return ds
}

// SplitCommaList splits a comma-separated parameter into trimmed,
// deduplicated values, preserving order.
func SplitCommaList(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	seen := make(map[string]bool, len(parts))
	var out []string
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// RegexEscape quotes user input for use inside a Mongo $regex.
func RegexEscape(s string) string {
	return regexp.QuoteMeta(s)
}

// Contains reports slice membership.
func Contains(slice []string, value string) bool {
	for _, s := range slice {
		if s == value {
			return true
		}
	}
	return false
}
