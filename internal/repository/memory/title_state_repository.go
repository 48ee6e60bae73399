package memory

import (
	"time"

	"github.com/patrickmn/go-cache"

	"ai-counselor-be/pkg/store"
)

type TitleStateRepository struct {
	cache *cache.Cache
}

func NewTitleStateRepository() *TitleStateRepository {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &TitleStateRepository{
		cache: c,
	}
}

func (r *TitleStateRepository) Save(state *store.TitleState) {
	r.cache.Set(state.SessionID, state, cache.DefaultExpiration)
}

func (r *TitleStateRepository) Get(sessionID string) (*store.TitleState, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.TitleState), true
	}
	return nil, false
}

func (r *TitleStateRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
