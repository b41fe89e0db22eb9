package registrations

import (
	"context"
	"time"

	"linkedevents/rdx"
)

// holdStore abstracts the Redis seat holds so the capacity logic stays
// testable.
type holdStore interface {
	Hold(ctx context.Context, registrationID, code string, seats int, ttl time.Duration) error
	Held(ctx context.Context, registrationID string) (int, error)
	Claim(ctx context.Context, registrationID, code string) (int, error)
}

type redisHolds struct{}

func (redisHolds) Hold(ctx context.Context, registrationID, code string, seats int, ttl time.Duration) error {
	return rdx.HoldSeats(ctx, registrationID, code, seats, ttl)
}

func (redisHolds) Held(ctx context.Context, registrationID string) (int, error) {
	return rdx.HeldSeats(ctx, registrationID)
}

func (redisHolds) Claim(ctx context.Context, registrationID, code string) (int, error) {
	return rdx.ClaimHold(ctx, registrationID, code)
}

var seatHolds holdStore = redisHolds{}
