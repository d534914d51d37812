package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/souzalinux78/gestao-organista/internal/cycle"
	"github.com/souzalinux78/gestao-organista/internal/persistence"
	"github.com/souzalinux78/gestao-organista/internal/rotation"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// CycleService edits the working copy of cycles and persists it on request.
type CycleService struct {
	churches  persistence.ChurchRepository
	services  persistence.ServiceRepository
	musicians persistence.MusicianRepository
	cycles    persistence.CycleRepository
	store     *cycle.Store
	logger    *slog.Logger

	loadMu sync.Mutex
}

// NewCycleService wires dependencies for cycle editing. A nil store starts empty.
func NewCycleService(churches persistence.ChurchRepository, services persistence.ServiceRepository, musicians persistence.MusicianRepository, cycles persistence.CycleRepository, store *cycle.Store, logger *slog.Logger) *CycleService {
	if store == nil {
		store = cycle.NewStore()
	}
	return &CycleService{
		churches:  churches,
		services:  services,
		musicians: musicians,
		cycles:    cycles,
		store:     store,
		logger:    defaultLogger(logger),
	}
}

func (s *CycleService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CycleService", operation, attrs...)
}

// Current returns the working copy of a cycle, loading it from persistence on
// first use.
func (s *CycleService) Current(ctx context.Context, churchID string, number int) (CycleView, error) {
	key, err := s.ensureLoaded(ctx, churchID, number)
	if err != nil {
		return CycleView{}, err
	}
	items, err := s.store.Get(key)
	if err != nil {
		return CycleView{}, err
	}
	return s.view(ctx, key, items)
}

// Add appends a musician of the church to the cycle.
func (s *CycleService) Add(ctx context.Context, churchID string, number int, musicianID string) (CycleView, error) {
	logger := s.log(ctx, "Add", "church_id", churchID, "cycle", number, "musician_id", musicianID)

	key, err := s.ensureLoaded(ctx, churchID, number)
	if err != nil {
		return CycleView{}, err
	}
	if err := s.ensureMusician(ctx, churchID, musicianID); err != nil {
		return CycleView{}, err
	}
	items, err := s.store.Add(key, musicianID)
	if err != nil {
		logger.WarnContext(ctx, "failed to add musician to cycle", "error", err, "error_kind", ErrorKind(err))
		return CycleView{}, err
	}
	return s.view(ctx, key, items)
}

// Move reorders the cycle by moving the entry at from to the insertion point to.
func (s *CycleService) Move(ctx context.Context, churchID string, number, from, to int) (CycleView, error) {
	key, err := s.ensureLoaded(ctx, churchID, number)
	if err != nil {
		return CycleView{}, err
	}
	items, err := s.store.Reorder(key, from, to)
	if err != nil {
		return CycleView{}, err
	}
	return s.view(ctx, key, items)
}

// Remove deletes the entry at index.
func (s *CycleService) Remove(ctx context.Context, churchID string, number, index int) (CycleView, error) {
	key, err := s.ensureLoaded(ctx, churchID, number)
	if err != nil {
		return CycleView{}, err
	}
	items, err := s.store.RemoveAt(key, index)
	if err != nil {
		return CycleView{}, err
	}
	return s.view(ctx, key, items)
}

// Save persists the working copy. Edits applied while saving keep the cycle dirty.
func (s *CycleService) Save(ctx context.Context, churchID string, number int) (CycleView, error) {
	logger := s.log(ctx, "Save", "church_id", churchID, "cycle", number)

	key, err := s.ensureLoaded(ctx, churchID, number)
	if err != nil {
		return CycleView{}, err
	}
	ids, version, err := s.store.Snapshot(key)
	if err != nil {
		return CycleView{}, err
	}
	if err := s.cycles.ReplaceCycle(ctx, churchID, number, ids); err != nil {
		mapped := mapRepoError(err, "musician_id")
		logger.ErrorContext(ctx, "failed to save cycle", "error", err, "error_kind", ErrorKind(mapped))
		return CycleView{}, mapped
	}
	s.store.MarkSaved(key, version)
	logger.InfoContext(ctx, "cycle saved", "size", len(ids))

	return s.Current(ctx, churchID, number)
}

// RotationCycles returns the cycle of every service of the church keyed by
// service ID, preferring unsaved working copies over persisted order. Unknown
// and inactive musicians are left out.
func (s *CycleService) RotationCycles(ctx context.Context, churchID string, services []scheduler.ServiceDefinition) (map[string]rotation.Cycle, error) {
	persisted, err := s.cycles.ListCycles(ctx, churchID)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	musicians, err := s.musicianIndex(ctx, churchID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]rotation.Cycle, len(services))
	for serviceID, number := range scheduler.CycleNumbers(services) {
		ids, ok := persisted[number]
		if working, _, err := s.store.Snapshot(cycle.Key{ChurchID: churchID, Number: number}); err == nil {
			ids, ok = working, true
		}
		if !ok {
			continue
		}
		members := make([]rotation.Member, 0, len(ids))
		for _, id := range ids {
			m, found := musicians[id]
			if !found || !m.Active {
				continue
			}
			members = append(members, rotation.Member{
				MusicianID: m.ID,
				Name:       m.Name,
				Phone:      m.Phone,
				Certified:  m.Certified,
			})
		}
		out[serviceID] = rotation.Cycle{Number: number, Members: members}
	}
	return out, nil
}

func (s *CycleService) ensureLoaded(ctx context.Context, churchID string, number int) (cycle.Key, error) {
	key := cycle.Key{ChurchID: churchID, Number: number}
	if err := s.validateCycle(ctx, churchID, number); err != nil {
		return key, err
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.store.Loaded(key) {
		return key, nil
	}
	ids, err := s.cycles.ListCycle(ctx, churchID, number)
	if err != nil {
		return key, fmt.Errorf("load cycle: %w", err)
	}
	s.store.Load(key, ids)
	return key, nil
}

// validateCycle checks that the church exists and that number is one of its
// cycles. A church with N services has cycles 1..N.
func (s *CycleService) validateCycle(ctx context.Context, churchID string, number int) error {
	if _, err := s.churches.GetChurch(ctx, churchID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return newValidationError("church_id", "church not found")
		}
		return err
	}
	services, err := s.services.ListServices(ctx, churchID)
	if err != nil {
		return fmt.Errorf("list services: %w", err)
	}
	if number < 1 || number > len(scheduler.CycleNumbers(services)) {
		return newValidationError("cycle", "cycle not found")
	}
	return nil
}

func (s *CycleService) ensureMusician(ctx context.Context, churchID, musicianID string) error {
	musician, err := s.musicians.GetMusician(ctx, musicianID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return newValidationError("musician_id", "musician not found")
		}
		return err
	}
	if musician.ChurchID != churchID {
		return newValidationError("musician_id", "musician belongs to another church")
	}
	return nil
}

func (s *CycleService) musicianIndex(ctx context.Context, churchID string) (map[string]scheduler.Musician, error) {
	musicians, err := s.musicians.ListMusicians(ctx, churchID)
	if err != nil {
		return nil, fmt.Errorf("list musicians: %w", err)
	}
	index := make(map[string]scheduler.Musician, len(musicians))
	for _, m := range musicians {
		index[m.ID] = m
	}
	return index, nil
}

func (s *CycleService) view(ctx context.Context, key cycle.Key, items []cycle.Item) (CycleView, error) {
	musicians, err := s.musicianIndex(ctx, key.ChurchID)
	if err != nil {
		return CycleView{}, err
	}
	entries := make([]CycleEntry, 0, len(items))
	for _, item := range items {
		m := musicians[item.MusicianID]
		entries = append(entries, CycleEntry{
			Position:   item.Position,
			MusicianID: item.MusicianID,
			Name:       m.Name,
			Certified:  m.Certified,
			Active:     m.Active,
		})
	}
	return CycleView{
		ChurchID: key.ChurchID,
		Number:   key.Number,
		Dirty:    s.store.Dirty(key),
		Entries:  entries,
	}, nil
}
