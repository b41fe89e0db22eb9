package globals

import "os"

var JwtSecret = []byte(EnvOr("JWT_SECRET", "dev_only_secret"))

// Context keys
type ContextKey string

const UserIDKey ContextKey = "userId"
const DataSourceKey ContextKey = "dataSource"

func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
