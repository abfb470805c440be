package worker

// orphan_sweeper.go
// Blobs whose delete failed after their rows were committed away are kept in
// an orphan set. The sweeper retries those deletes on a cron schedule and from
// `certctl sweep-orphans`.

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/ishpreet160/CertFlow/internal/storage"
)

const OrphanSetKey = "blobs:orphaned"

// OrphanSet stores references of blobs awaiting deletion.
type OrphanSet interface {
	Add(ctx context.Context, ref string) error
	Members(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, ref string) error
}

// RedisOrphanSet keeps the set in Redis so it survives restarts.
type RedisOrphanSet struct {
	rdb *redis.Client
}

func NewRedisOrphanSet(rdb *redis.Client) *RedisOrphanSet { return &RedisOrphanSet{rdb: rdb} }

func (s *RedisOrphanSet) Add(ctx context.Context, ref string) error {
	return s.rdb.SAdd(ctx, OrphanSetKey, ref).Err()
}

func (s *RedisOrphanSet) Members(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, OrphanSetKey).Result()
}

func (s *RedisOrphanSet) Remove(ctx context.Context, ref string) error {
	return s.rdb.SRem(ctx, OrphanSetKey, ref).Err()
}

// MemoryOrphanSet is the process-local fallback when Redis is not configured.
type MemoryOrphanSet struct {
	mu   sync.Mutex
	refs map[string]struct{}
}

func NewMemoryOrphanSet() *MemoryOrphanSet {
	return &MemoryOrphanSet{refs: make(map[string]struct{})}
}

func (s *MemoryOrphanSet) Add(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[ref] = struct{}{}
	return nil
}

func (s *MemoryOrphanSet) Members(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.refs))
	for r := range s.refs {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryOrphanSet) Remove(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refs, ref)
	return nil
}

type OrphanSweeper struct {
	set   OrphanSet
	store storage.BlobStore
}

func NewOrphanSweeper(set OrphanSet, store storage.BlobStore) *OrphanSweeper {
	return &OrphanSweeper{set: set, store: store}
}

// RecordOrphan implements binding.OrphanRecorder.
func (s *OrphanSweeper) RecordOrphan(ctx context.Context, ref string) error {
	return s.set.Add(ctx, ref)
}

// Sweep retries every recorded delete and returns how many succeeded.
func (s *OrphanSweeper) Sweep(ctx context.Context) (int, error) {
	refs, err := s.set.Members(ctx)
	if err != nil {
		return 0, fmt.Errorf("list orphans: %w", err)
	}
	deleted := 0
	for _, ref := range refs {
		if err := s.store.Delete(ctx, ref); err != nil {
			log.Warn().Err(err).Str("blob_ref", ref).Msg("orphan_sweeper: delete failed, keeping")
			continue
		}
		if err := s.set.Remove(ctx, ref); err != nil {
			log.Error().Err(err).Str("blob_ref", ref).Msg("orphan_sweeper: failed to unrecord")
			continue
		}
		deleted++
	}
	if len(refs) > 0 {
		log.Info().Int("found", len(refs)).Int("deleted", deleted).Msg("orphan_sweeper: sweep done")
	}
	return deleted, nil
}

// Start schedules Sweep with a cron spec such as "@every 10m" and stops the
// scheduler when ctx is done.
func (s *OrphanSweeper) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			log.Error().Err(err).Msg("orphan_sweeper: sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("orphan sweeper schedule %q: %w", schedule, err)
	}
	c.Start()
	log.Info().Str("schedule", schedule).Msg("orphan_sweeper: started")
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		log.Info().Msg("orphan_sweeper: shutting down")
	}()
	return nil
}
