package rdx

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed cache keys for the ongoing-event text blobs. Populated by
// counters.RefreshOngoing, read by the event filter builder.
const (
	OngoingLocalKey    = "local_ids"
	OngoingInternetKey = "internet_ids"
)

var Conn *redis.Client

// Connect initializes the shared Redis client.
func Connect() {
	uri := os.Getenv("REDIS_URI")
	if uri == "" {
		uri = "redis://localhost:6379"
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		opts = &redis.Options{Addr: "localhost:6379"}
	}
	Conn = redis.NewClient(opts)
}

// OngoingLookup is the read side of the ongoing-event cache: a fixed key
// resolves to an event-id -> free-text mapping. The filter builder depends on
// this interface rather than the Redis client so tests can fake it.
type OngoingLookup interface {
	Get(ctx context.Context, key string) (map[string]string, error)
}

// RedisOngoing reads the id->text hashes from Redis.
type RedisOngoing struct {
	Client *redis.Client
}

func (r RedisOngoing) Get(ctx context.Context, key string) (map[string]string, error) {
	return r.Client.HGetAll(ctx, key).Result()
}

// ReplaceOngoing atomically swaps an ongoing hash with fresh contents.
func ReplaceOngoing(ctx context.Context, key string, entries map[string]string) error {
	pipe := Conn.TxPipeline()
	pipe.Del(ctx, key)
	if len(entries) > 0 {
		flat := make([]interface{}, 0, len(entries)*2)
		for id, text := range entries {
			flat = append(flat, id, text)
		}
		pipe.HSet(ctx, key, flat...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Seat reservation holds. A hold is a short-lived counter key; expiry
// releases the seats without any cleanup job.

func reservationKey(registrationID, code string) string {
	return "reservation:" + registrationID + ":" + code
}

// HoldSeats records a seat reservation that expires on its own.
func HoldSeats(ctx context.Context, registrationID, code string, seats int, ttl time.Duration) error {
	return Conn.Set(ctx, reservationKey(registrationID, code), seats, ttl).Err()
}

// HeldSeats sums the live holds for one registration.
func HeldSeats(ctx context.Context, registrationID string) (int, error) {
	var total int
	iter := Conn.Scan(ctx, 0, "reservation:"+registrationID+":*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := Conn.Get(ctx, iter.Val()).Int()
		if err == nil {
			total += n
		}
	}
	return total, iter.Err()
}

// ClaimHold consumes a reservation; returns the held seat count, 0 if the
// hold expired or never existed. GETDEL makes the claim single-shot, so two
// concurrent sign-ups cannot both redeem the same hold.
func ClaimHold(ctx context.Context, registrationID, code string) (int, error) {
	n, err := Conn.GetDel(ctx, reservationKey(registrationID, code)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}
