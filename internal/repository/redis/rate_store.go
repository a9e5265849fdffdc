package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/config"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/domain"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/repository"
	goredis "github.com/redis/go-redis/v9"
)

// RateStore - курсы в hash <prefix>rates, отметка в <prefix>last_request.
// Замена идёт одной транзакцией MULTI/EXEC.
type RateStore struct {
	client *goredis.Client
	prefix string
}

func NewClient(cfg config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRateStore(client *goredis.Client, prefix string) *RateStore {
	return &RateStore{client: client, prefix: prefix}
}

func (r *RateStore) ratesKey() string { return r.prefix + "rates" }
func (r *RateStore) stampKey() string { return r.prefix + "last_request" }

func (r *RateStore) ReadStamp(ctx context.Context) (domain.RefreshStamp, error) {
	millis, err := r.client.Get(ctx, r.stampKey()).Int64()
	if errors.Is(err, goredis.Nil) {
		return domain.RefreshStamp{}, nil
	}
	if err != nil {
		return domain.RefreshStamp{}, repository.Wrap("read stamp", err)
	}
	return domain.RefreshStamp{LastRequestMillis: millis, Present: true}, nil
}

func (r *RateStore) ReadAll(ctx context.Context) (map[string]float64, error) {
	raw, err := r.client.HGetAll(ctx, r.ratesKey()).Result()
	if err != nil {
		return nil, repository.Wrap("read all", err)
	}
	out := make(map[string]float64, len(raw))
	for code, v := range raw {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, repository.Wrap("read all", err)
		}
		out[code] = rate
	}
	return out, nil
}

func (r *RateStore) ReadSubset(ctx context.Context, codes []string) (map[string]float64, error) {
	out := make(map[string]float64, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	vals, err := r.client.HMGet(ctx, r.ratesKey(), codes...).Result()
	if err != nil {
		return nil, repository.Wrap("read subset", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// nil - кода нет
			continue
		}
		rate, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, repository.Wrap("read subset", err)
		}
		out[codes[i]] = rate
	}
	return out, nil
}

func (r *RateStore) ReplaceAll(ctx context.Context, rates map[string]float64, atMillis int64) error {
	fields := make(map[string]any, len(rates))
	for code, rate := range rates {
		fields[code] = strconv.FormatFloat(rate, 'g', -1, 64)
	}

	_, err := r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, r.ratesKey())
		if len(fields) > 0 {
			p.HSet(ctx, r.ratesKey(), fields)
		}
		p.Set(ctx, r.stampKey(), atMillis, 0)
		return nil
	})
	if err != nil {
		return repository.Wrap("replace all", err)
	}
	return nil
}
