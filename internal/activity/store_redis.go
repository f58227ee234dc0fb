package activity

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ttlActivity is a backstop; Sweep normally removes activities long before.
const ttlActivity = 10 * time.Minute

type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) keyMeta(id string) string    { return "ga:" + strings.TrimSpace(id) }
func (s *Store) keyInvites(id string) string { return s.keyMeta(id) + ":invites" }
func (s *Store) keyKind(kind string) string  { return "ga:kind:" + kind }
func score(t time.Time) float64              { return float64(t.UnixMilli()) }
func scoreArg(t time.Time) string            { return strconv.FormatInt(t.UnixMilli(), 10) }

// Save writes the activity, its invitees and its index entry in one
// transaction.
func (s *Store) Save(ctx context.Context, a *Activity, invitees []string) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keyMeta(a.ID), raw, ttlActivity)
	if len(invitees) > 0 {
		members := make([]any, len(invitees))
		for i, id := range invitees {
			members[i] = id
		}
		pipe.SAdd(ctx, s.keyInvites(a.ID), members...)
		pipe.Expire(ctx, s.keyInvites(a.ID), ttlActivity)
	}
	pipe.ZAdd(ctx, s.keyKind(a.Kind), redis.Z{Score: score(a.CreatedAt), Member: a.ID})
	_, err = pipe.Exec(ctx)
	return err
}

// Load returns nil, nil when the activity is gone.
func (s *Store) Load(ctx context.Context, id string) (*Activity, error) {
	raw, err := s.rdb.Get(ctx, s.keyMeta(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a Activity
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) Invitees(ctx context.Context, id string) ([]string, error) {
	return s.rdb.SMembers(ctx, s.keyInvites(id)).Result()
}

// ByKind lists pending activities of kind, oldest first. Index entries whose
// activity expired are dropped.
func (s *Store) ByKind(ctx context.Context, kind string) ([]*Activity, error) {
	ids, err := s.rdb.ZRange(ctx, s.keyKind(kind), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	var out []*Activity
	for _, id := range ids {
		a, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if a == nil {
			_ = s.rdb.ZRem(ctx, s.keyKind(kind), id).Err()
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// CreatedBefore returns ids of activities of kind created before cutoff.
func (s *Store) CreatedBefore(ctx context.Context, kind string, cutoff time.Time) ([]string, error) {
	return s.rdb.ZRangeByScore(ctx, s.keyKind(kind), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + scoreArg(cutoff),
	}).Result()
}

// Claim deletes the activity record and reports whether this call removed
// it. Only the claimant may fan out.
func (s *Store) Claim(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Del(ctx, s.keyMeta(id)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete removes every key of the activity.
func (s *Store) Delete(ctx context.Context, kind, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.keyMeta(id), s.keyInvites(id))
	pipe.ZRem(ctx, s.keyKind(kind), id)
	_, err := pipe.Exec(ctx)
	return err
}
