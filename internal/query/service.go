// Package query serves read-only views of an event's registrations: the live
// count shown as "X/150 registered" and the full record list.
package query

import (
	"context"
	"fmt"
	"sync"

	"github.com/geocoder89/confreg/internal/cache"
	"github.com/geocoder89/confreg/internal/domain/registration"
	"github.com/geocoder89/confreg/internal/repo/kv"
)

type Lister interface {
	All(ctx context.Context) ([]registration.Registration, error)
}

// Service optionally caches per-event lists. Cached entries live at most one TTL
// and are dropped as soon as the admission engine commits a record for the event.
// The admission engine never reads from this cache.
type Service struct {
	repo  Lister
	cache *cache.Cache

	// generations is bumped by Invalidate; a scan that overlapped a bump is not cached.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewService(repo Lister, c *cache.Cache) *Service {
	return &Service{repo: repo, cache: c, generations: make(map[string]uint64)}
}

func cacheKey(eventID string) string {
	return "registrations:event:v1:" + eventID
}

// ListFor returns the event's registrations in the order the store scan yields them.
func (s *Service) ListFor(ctx context.Context, eventID string) ([]registration.Registration, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(cacheKey(eventID)); ok {
			if regs, ok := v.([]registration.Registration); ok {
				return regs, nil
			}
		}
	}

	gen := s.generation(eventID)

	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, registration.StorageError("list registrations", fmt.Errorf("event %s: %w", eventID, err))
	}

	regs := kv.FilterByEvent(all, eventID)

	if s.cache != nil {
		s.mu.Lock()
		if s.generations[eventID] == gen {
			s.cache.Set(cacheKey(eventID), regs)
		}
		s.mu.Unlock()
	}
	return regs, nil
}

func (s *Service) CountFor(ctx context.Context, eventID string) (int, error) {
	regs, err := s.ListFor(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return len(regs), nil
}

// Invalidate drops the cached view of one event.
func (s *Service) Invalidate(eventID string) {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generations[eventID]++
	s.cache.Delete(cacheKey(eventID))
}

func (s *Service) generation(eventID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[eventID]
}
