package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"linkedevents/db"
	"linkedevents/globals"
	"linkedevents/models"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

// ResolveAPIKey checks an `apikey` header of the form
// "<data source id>:<secret>" against the stored bcrypt hash and returns the
// data source id the caller acts as.
func ResolveAPIKey(ctx context.Context, key string) (string, error) {
	dsID, secret, ok := strings.Cut(key, ":")
	if !ok || dsID == "" || secret == "" {
		return "", fmt.Errorf("malformed api key")
	}

	var ds models.DataSource
	err := db.DataSourcesCollection.FindOne(ctx, bson.M{"_id": dsID}).Decode(&ds)
	if err != nil {
		return "", fmt.Errorf("unknown data source")
	}
	if ds.APIKeyHash == "" {
		return "", fmt.Errorf("data source accepts no api key")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ds.APIKeyHash), []byte(secret)); err != nil {
		return "", fmt.Errorf("api key mismatch")
	}
	return ds.ID, nil
}

func authenticateAPIKey(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		dsID, err := ResolveAPIKey(r.Context(), r.Header.Get("apikey"))
		if err != nil {
			http.Error(w, "Invalid api key", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), globals.DataSourceKey, dsID)
		next(w, r.WithContext(ctx), ps)
	}
}
