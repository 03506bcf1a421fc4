package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const (
	resultsKeyPrefix = "results:"
	statsKey         = "results:stats"

	maxResultsPerRoom = 50

	statsGames = "games"
	statsXWins = "x_wins"
	statsOWins = "o_wins"
	statsDraws = "draws"
)

type ResultRepository interface {
	Record(ctx context.Context, result *entity.Result) error
	Recent(ctx context.Context, code string, limit int) ([]*entity.Result, error)
	Stats(ctx context.Context) (*entity.Stats, error)
}

type dbResult struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultRepository - results kept in redis; per-room lists expire after ttl, the
// aggregate counters never expire.
func NewResultRepository(client *redis.Client, ttl time.Duration) ResultRepository {
	return &dbResult{
		client: client,
		ttl:    ttl,
	}
}

func (that *dbResult) Record(ctx context.Context, result *entity.Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal result: %w", err)
	}

	resultKey := resultsKeyPrefix + result.RoomCode

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, resultKey, resultJSON)
		pipe.LTrim(ctx, resultKey, 0, maxResultsPerRoom-1)
		if that.ttl > 0 {
			pipe.Expire(ctx, resultKey, that.ttl)
		}

		pipe.HIncrBy(ctx, statsKey, statsGames, 1)
		pipe.HIncrBy(ctx, statsKey, statsField(result), 1)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	return nil
}

func (that *dbResult) Recent(ctx context.Context, code string, limit int) ([]*entity.Result, error) {
	if limit <= 0 {
		return []*entity.Result{}, nil
	}

	response, err := that.client.LRange(ctx, resultsKeyPrefix+code, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}

	results := make([]*entity.Result, 0, len(response))
	for _, raw := range response {
		var result entity.Result
		if err = json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		results = append(results, &result)
	}

	return results, nil
}

func (that *dbResult) Stats(ctx context.Context) (*entity.Stats, error) {
	response, err := that.client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	var stats entity.Stats
	for field, target := range map[string]*int64{
		statsGames: &stats.Games,
		statsXWins: &stats.XWins,
		statsOWins: &stats.OWins,
		statsDraws: &stats.Draws,
	} {
		raw, ok := response[field]
		if !ok {
			continue
		}

		if *target, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid %s counter: %w", field, err)
		}
	}

	return &stats, nil
}

func statsField(result *entity.Result) string {
	switch result.Winner {
	case entity.PlayerX:
		return statsXWins
	case entity.PlayerO:
		return statsOWins
	default:
		return statsDraws
	}
}
