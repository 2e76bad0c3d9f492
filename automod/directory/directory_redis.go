package directory

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

var (
	redisPlayerPrefix = "directory/player/"
	redisNamesKey     = "directory/names"
	redisAdminsKey    = "directory/admins"
)

// RedisDirectory shares the directory between processes through redis, with
// a small local cache in front of per-player reads.
type RedisDirectory struct {
	Client  *redis.Client
	Data    *cache.Cache
	TTL     time.Duration
	Timeout time.Duration
	Logger  *slog.Logger
}

var _ Directory = (*RedisDirectory)(nil)
var _ Writer = (*RedisDirectory)(nil)

func NewRedisDirectory(redisURL string, ttl time.Duration) (*RedisDirectory, error) {
	ctx := context.Background()
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	data := cache.New(&cache.Options{
		Redis:      rdb,
		LocalCache: cache.NewTinyLFU(10_000, time.Minute),
	})
	return &RedisDirectory{
		Client:  rdb,
		Data:    data,
		TTL:     ttl,
		Timeout: 2 * time.Second,
		Logger:  slog.Default().With("component", "directory"),
	}, nil
}

func (d *RedisDirectory) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.Timeout)
}

func (d *RedisDirectory) player(name string) (Player, bool) {
	ctx, cancel := d.ctx()
	defer cancel()
	var p Player
	err := d.Data.Get(ctx, redisPlayerPrefix+key(name), &p)
	if err == cache.ErrCacheMiss {
		return Player{}, false
	}
	if err != nil {
		d.Logger.Warn("directory lookup failed", "player", name, "err", err)
		return Player{}, false
	}
	return p, true
}

func (d *RedisDirectory) StableID(name string) (string, bool) {
	p, ok := d.player(name)
	if !ok || p.StableID == "" {
		return "", false
	}
	return p.StableID, true
}

func (d *RedisDirectory) Country(name string) (string, bool) {
	p, ok := d.player(name)
	if !ok || p.Country == "" {
		return "", false
	}
	return p.Country, true
}

func (d *RedisDirectory) IsAdmin(name string) bool {
	if name == ServerName {
		return true
	}
	ctx, cancel := d.ctx()
	defer cancel()
	ok, err := d.Client.SIsMember(ctx, redisAdminsKey, key(name)).Result()
	if err != nil {
		d.Logger.Warn("admin lookup failed", "player", name, "err", err)
		return false
	}
	return ok
}

func (d *RedisDirectory) Names() []string {
	ctx, cancel := d.ctx()
	defer cancel()
	names, err := d.Client.SMembers(ctx, redisNamesKey).Result()
	if err != nil {
		d.Logger.Warn("directory listing failed", "err", err)
		return nil
	}
	sort.Strings(names)
	return names
}

func (d *RedisDirectory) SetPlayer(p Player) {
	if p.Name == "" {
		return
	}
	if old, ok := d.player(p.Name); ok {
		if p.StableID == "" {
			p.StableID = old.StableID
		}
		if p.Country == "" {
			p.Country = old.Country
		}
	}
	ctx, cancel := d.ctx()
	defer cancel()
	err := d.Data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisPlayerPrefix + key(p.Name),
		Value: p,
		TTL:   d.TTL,
	})
	if err == nil {
		err = d.Client.SAdd(ctx, redisNamesKey, key(p.Name)).Err()
	}
	if err != nil {
		d.Logger.Warn("directory update failed", "player", p.Name, "err", err)
	}
}

func (d *RedisDirectory) Forget(name string) {
	ctx, cancel := d.ctx()
	defer cancel()
	if err := d.Data.Delete(ctx, redisPlayerPrefix+key(name)); err != nil && err != cache.ErrCacheMiss {
		d.Logger.Warn("directory delete failed", "player", name, "err", err)
	}
	d.Client.SRem(ctx, redisNamesKey, key(name))
}

func (d *RedisDirectory) SetAdmins(names []string) {
	ctx, cancel := d.ctx()
	defer cancel()
	multi := d.Client.TxPipeline()
	multi.Del(ctx, redisAdminsKey)
	for _, n := range names {
		multi.SAdd(ctx, redisAdminsKey, key(n))
	}
	if _, err := multi.Exec(ctx); err != nil {
		d.Logger.Warn("admin list update failed", "err", err)
	}
}

func (d *RedisDirectory) Clear() {
	for _, name := range d.Names() {
		d.Forget(name)
	}
}
