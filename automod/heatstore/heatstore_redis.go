package heatstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/langwarden/langwarden/automod/heat"
)

var redisHeatPrefix string = "heat/"
var redisHeatIndex string = "heat-players"

// RedisHeatStore keeps each record in a hash, plus a set of player names.
type RedisHeatStore struct {
	Client *redis.Client
}

func NewRedisHeatStore(redisURL string) (*RedisHeatStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisHeatStore{Client: rdb}, nil
}

func (s *RedisHeatStore) Load(ctx context.Context) ([]heat.Record, error) {
	names, err := s.Client.SMembers(ctx, redisHeatIndex).Result()
	if err != nil {
		return nil, err
	}

	multi := s.Client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(names))
	for i, name := range names {
		cmds[i] = multi.HGetAll(ctx, redisHeatPrefix+name)
	}
	if _, err := multi.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	out := make([]heat.Record, 0, len(names))
	for i, name := range names {
		vals := cmds[i].Val()
		if len(vals) == 0 {
			continue
		}
		h, err := strconv.ParseFloat(vals["heat"], 64)
		if err != nil {
			return nil, fmt.Errorf("heat record %s: %w", name, err)
		}
		ticks, err := strconv.ParseInt(vals["ticks"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("heat record %s: %w", name, err)
		}
		out = append(out, heat.Record{
			Name:       vals["name"],
			Heat:       h,
			LastAction: FromTicks(ticks),
			StableID:   vals["id"],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *RedisHeatStore) Save(ctx context.Context, recs []heat.Record) error {
	old, err := s.Client.SMembers(ctx, redisHeatIndex).Result()
	if err != nil {
		return err
	}

	// replace everything in a single transaction
	multi := s.Client.TxPipeline()
	for _, name := range old {
		multi.Del(ctx, redisHeatPrefix+name)
	}
	multi.Del(ctx, redisHeatIndex)
	for _, r := range recs {
		multi.HSet(ctx, redisHeatPrefix+r.Name,
			"name", r.Name,
			"heat", strconv.FormatFloat(r.Heat, 'f', 4, 64),
			"ticks", strconv.FormatInt(ToTicks(r.LastAction), 10),
			"id", r.StableID,
		)
		multi.SAdd(ctx, redisHeatIndex, r.Name)
	}
	_, err = multi.Exec(ctx)
	return err
}
