package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/courtclub/competition-system/models"
	"github.com/courtclub/competition-system/repositories"
)

// TeamCache — read-through кэш команд поверх TeamRepository. Им владеет
// оркестратор этапов и делится с финишером; никакого глобального состояния.
type TeamCache struct {
	mu       sync.RWMutex
	teamRepo repositories.TeamRepository
	byID     map[int]models.Team
}

func NewTeamCache(teamRepo repositories.TeamRepository) *TeamCache {
	return &TeamCache{
		teamRepo: teamRepo,
		byID:     make(map[int]models.Team),
	}
}

func (c *TeamCache) Get(ctx context.Context, id int) (models.Team, error) {
	c.mu.RLock()
	team, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		return team, nil
	}

	loaded, err := c.teamRepo.GetByID(ctx, id)
	if err != nil {
		return models.Team{}, err
	}
	c.mu.Lock()
	c.byID[id] = *loaded
	c.mu.Unlock()
	return *loaded, nil
}

// GetMany возвращает команды в порядке переданных id, дозагружая недостающие
// одним запросом.
func (c *TeamCache) GetMany(ctx context.Context, ids []int) ([]models.Team, error) {
	missing := make([]int, 0)
	c.mu.RLock()
	for _, id := range ids {
		if _, ok := c.byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	c.mu.RUnlock()

	if len(missing) > 0 {
		loaded, err := c.teamRepo.ListByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to load teams into cache: %w", err)
		}
		c.mu.Lock()
		for _, t := range loaded {
			c.byID[t.ID] = *t
		}
		c.mu.Unlock()
	}

	out := make([]models.Team, 0, len(ids))
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range ids {
		team, ok := c.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrTeamNotFound, id)
		}
		out = append(out, team)
	}
	return out, nil
}

// Prime кладёт уже загруженные команды в кэш.
func (c *TeamCache) Prime(teams []*models.Team) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range teams {
		c.byID[t.ID] = *t
	}
}

func (c *TeamCache) Invalidate(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
}
