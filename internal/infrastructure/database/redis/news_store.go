package redis

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/haebom/tariff/internal/domain/news"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/pkg/errors"
)

// NewsStore keeps news items as JSON strings under news:<id> with three
// indexes:
//
//	news:all             zset, member id, score publish time (ms)
//	news:date:<day>      set of ids published on day (UTC)
//	news:source:<key>    set of ids per source key
//
// news:sources lists every source key that has an index.
type NewsStore struct {
	client *Client
	logger logging.Logger
}

var _ news.Repository = (*NewsStore)(nil)

func NewNewsStore(client *Client, log logging.Logger) *NewsStore {
	return &NewsStore{client: client, logger: log}
}

func (s *NewsStore) itemKey(id string) string       { return s.client.Key("news", id) }
func (s *NewsStore) allKey() string                 { return s.client.Key("news", "all") }
func (s *NewsStore) dateKey(day string) string      { return s.client.Key("news", "date", day) }
func (s *NewsStore) sourceKey(source string) string { return s.client.Key("news", "source", source) }
func (s *NewsStore) sourcesKey() string             { return s.client.Key("news", "sources") }

func score(it news.Item) float64 {
	if !it.PublishDate.IsZero() {
		return float64(it.PublishDate.UnixMilli())
	}
	return float64(it.Timestamp)
}

func storeErr(err error, msg string) error {
	return errors.Wrap(err, errors.ErrCodeNewsStore, msg)
}

func (s *NewsStore) Exists(ctx context.Context, id string) (bool, error) {
	rdb, err := s.client.conn()
	if err != nil {
		return false, err
	}
	n, err := rdb.Exists(ctx, s.itemKey(id)).Result()
	if err != nil {
		return false, storeErr(err, "failed to check item")
	}
	return n > 0, nil
}

// Save writes the item and all of its index entries in one transaction.
func (s *NewsStore) Save(ctx context.Context, it news.Item) error {
	rdb, err := s.client.conn()
	if err != nil {
		return err
	}
	data, err := json.Marshal(it)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	src := news.SourceKey(it.Source)

	_, err = rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.itemKey(it.ID), data, 0)
		p.ZAdd(ctx, s.allKey(), redis.Z{Score: score(it), Member: it.ID})
		if it.DateStr != "" {
			p.SAdd(ctx, s.dateKey(it.DateStr), it.ID)
		}
		if src != "" {
			p.SAdd(ctx, s.sourceKey(src), it.ID)
			p.SAdd(ctx, s.sourcesKey(), src)
		}
		return nil
	})
	if err != nil {
		return storeErr(err, "failed to save item")
	}
	return nil
}

func (s *NewsStore) Get(ctx context.Context, id string) (*news.Item, error) {
	rdb, err := s.client.conn()
	if err != nil {
		return nil, err
	}
	data, err := rdb.Get(ctx, s.itemKey(id)).Bytes()
	if err == redis.Nil {
		return nil, errors.NotFound("news item not found").WithDetail(id)
	}
	if err != nil {
		return nil, storeErr(err, "failed to read item")
	}
	var it news.Item
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, ErrSerializationFailed.WithCause(err)
	}
	return &it, nil
}

func (s *NewsStore) GetMany(ctx context.Context, ids []string) ([]news.Item, error) {
	if len(ids) == 0 {
		return []news.Item{}, nil
	}
	rdb, err := s.client.conn()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.itemKey(id)
	}
	vals, err := rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storeErr(err, "failed to read items")
	}
	items := make([]news.Item, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var it news.Item
		if err := json.Unmarshal([]byte(str), &it); err != nil {
			s.logger.Warn("skipping unreadable news item", logging.String("id", ids[i]), logging.Err(err))
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// Delete removes the item and its index entries.  Source keys whose index
// became empty are dropped from news:sources.
func (s *NewsStore) Delete(ctx context.Context, it news.Item) error {
	rdb, err := s.client.conn()
	if err != nil {
		return err
	}
	src := news.SourceKey(it.Source)

	var remaining *redis.IntCmd
	_, err = rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.itemKey(it.ID))
		p.ZRem(ctx, s.allKey(), it.ID)
		if it.DateStr != "" {
			p.SRem(ctx, s.dateKey(it.DateStr), it.ID)
		}
		if src != "" {
			p.SRem(ctx, s.sourceKey(src), it.ID)
			remaining = p.SCard(ctx, s.sourceKey(src))
		}
		return nil
	})
	if err != nil {
		return storeErr(err, "failed to delete item")
	}
	if remaining != nil && remaining.Val() == 0 {
		if err := rdb.SRem(ctx, s.sourcesKey(), src).Err(); err != nil {
			return storeErr(err, "failed to drop source index")
		}
	}
	return nil
}

func (s *NewsStore) IDs(ctx context.Context) ([]string, error) {
	rdb, err := s.client.conn()
	if err != nil {
		return nil, err
	}
	ids, err := rdb.ZRevRange(ctx, s.allKey(), 0, -1).Result()
	if err != nil {
		return nil, storeErr(err, "failed to list items")
	}
	return ids, nil
}

func (s *NewsStore) IDsOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	rdb, err := s.client.conn()
	if err != nil {
		return nil, err
	}
	ids, err := rdb.ZRangeByScore(ctx, s.allKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, storeErr(err, "failed to list expired items")
	}
	return ids, nil
}

func (s *NewsStore) IDsByDate(ctx context.Context, day string) ([]string, error) {
	return s.members(ctx, s.dateKey(day))
}

func (s *NewsStore) IDsBySource(ctx context.Context, sourceKey string) ([]string, error) {
	return s.members(ctx, s.sourceKey(strings.ToLower(sourceKey)))
}

func (s *NewsStore) SourceKeys(ctx context.Context) ([]string, error) {
	keys, err := s.members(ctx, s.sourcesKey())
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *NewsStore) members(ctx context.Context, key string) ([]string, error) {
	rdb, err := s.client.conn()
	if err != nil {
		return nil, err
	}
	ids, err := rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, storeErr(err, "failed to read index")
	}
	return ids, nil
}
