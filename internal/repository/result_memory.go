package repository

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// memoryResults - used when redis is disabled; lost on restart.
type memoryResults struct {
	mu      sync.Mutex
	results map[string][]*entity.Result
	stats   entity.Stats
}

func NewMemoryResultRepository() ResultRepository {
	return &memoryResults{
		results: make(map[string][]*entity.Result),
	}
}

func (that *memoryResults) Record(_ context.Context, result *entity.Result) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	list := append([]*entity.Result{result}, that.results[result.RoomCode]...)
	if len(list) > maxResultsPerRoom {
		list = list[:maxResultsPerRoom]
	}
	that.results[result.RoomCode] = list

	that.stats.Games++
	switch statsField(result) {
	case statsXWins:
		that.stats.XWins++
	case statsOWins:
		that.stats.OWins++
	default:
		that.stats.Draws++
	}

	return nil
}

func (that *memoryResults) Recent(_ context.Context, code string, limit int) ([]*entity.Result, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	list := that.results[code]
	if limit < 0 {
		limit = 0
	}
	if limit < len(list) {
		list = list[:limit]
	}

	return append([]*entity.Result{}, list...), nil
}

func (that *memoryResults) Stats(_ context.Context) (*entity.Stats, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	stats := that.stats

	return &stats, nil
}
