package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/lumikids/radiogen-backend/internal/platform/gcp"
	"github.com/lumikids/radiogen-backend/internal/platform/logger"
	"github.com/lumikids/radiogen-backend/internal/program"
)

// DefaultLockTimeout is how long a lock record stays authoritative before
// any caller may reclaim it.
const DefaultLockTimeout = 5 * time.Minute

const lockStatusGenerating = "generating"

// GenerationLockService is the advisory, storage-object-backed mutual
// exclusion for one program key. It serializes concurrent generations as a
// liveness/efficiency optimization; output integrity is guaranteed by the
// publisher's idempotent overwrite, not by this lock. Storage failures
// therefore degrade to "proceed" rather than failing the job.
type GenerationLockService interface {
	// Acquire returns true when the caller may generate. A stale lock (older
	// than the timeout) is removed and acquisition retried once.
	Acquire(ctx context.Context, id program.Identity, snapshot []string, requestID string) bool
	// Release removes the lock record; releasing an absent lock is not an
	// error.
	Release(ctx context.Context, id program.Identity)
	// CheckStatus is a non-mutating read; (nil, nil) means unlocked.
	CheckStatus(ctx context.Context, id program.Identity) (*program.LockRecord, error)
	// HasSnapshotChanged compares the current recording set against the
	// snapshot taken at lock time, after applying the same identity-scoping
	// predicate and sorting both sides.
	HasSnapshotChanged(current []string, rec *program.LockRecord, keep func(string) bool) bool
}

type generationLockService struct {
	log     *logger.Logger
	store   gcp.ObjectStore
	timeout time.Duration
	now     func() time.Time
}

func NewGenerationLockService(log *logger.Logger, store gcp.ObjectStore, timeout time.Duration) GenerationLockService {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &generationLockService{
		log:     log.With("service", "GenerationLockService"),
		store:   store,
		timeout: timeout,
		now:     time.Now,
	}
}

func (s *generationLockService) Acquire(ctx context.Context, id program.Identity, snapshot []string, requestID string) bool {
	key := program.LockKey(id)
	log := s.log.With("lock_key", key, "request_id", requestID)

	for attempt := 0; attempt < 2; attempt++ {
		rec, err := s.read(ctx, key)
		if err != nil {
			log.Warn("lock read failed, proceeding without lock", "error", err)
			return true
		}
		if rec != nil {
			age := rec.Age(s.now())
			if age <= s.timeout {
				log.Info("lock held by another generation", "age_seconds", int(age.Seconds()), "owner_request_id", rec.RequestID)
				return false
			}
			log.Warn("removing expired lock", "age_seconds", int(age.Seconds()), "owner_request_id", rec.RequestID)
			if err := s.store.Delete(ctx, key); err != nil {
				log.Warn("expired lock delete failed, proceeding without lock", "error", err)
				return true
			}
			continue
		}

		record := program.LockRecord{
			Key:               id.String(),
			CreatedAt:         s.now().UTC(),
			Status:            lockStatusGenerating,
			RecordingSnapshot: sortedCopy(snapshot),
			RequestID:         requestID,
		}
		err = s.write(ctx, key, record)
		if errors.Is(err, gcp.ErrObjectExists) {
			// Lost the conditional-create race; the winner's fresh lock will
			// be seen on the retry read.
			continue
		}
		if err != nil {
			log.Warn("lock write failed, proceeding without lock", "error", err)
			return true
		}
		return true
	}
	return false
}

func (s *generationLockService) Release(ctx context.Context, id program.Identity) {
	key := program.LockKey(id)
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("lock release failed; expiry will reclaim it", "lock_key", key, "error", err)
	}
}

func (s *generationLockService) CheckStatus(ctx context.Context, id program.Identity) (*program.LockRecord, error) {
	return s.read(ctx, program.LockKey(id))
}

func (s *generationLockService) HasSnapshotChanged(current []string, rec *program.LockRecord, keep func(string) bool) bool {
	if rec == nil {
		return true
	}
	filtered := make([]string, 0, len(current))
	for _, f := range current {
		if keep == nil || keep(f) {
			filtered = append(filtered, f)
		}
	}
	sort.Strings(filtered)
	locked := sortedCopy(rec.RecordingSnapshot)
	if len(filtered) != len(locked) {
		return true
	}
	for i := range filtered {
		if filtered[i] != locked[i] {
			return true
		}
	}
	return false
}

func (s *generationLockService) read(ctx context.Context, key string) (*program.LockRecord, error) {
	r, err := s.store.Get(ctx, key)
	if errors.Is(err, gcp.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var rec program.LockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *generationLockService) write(ctx context.Context, key string, rec program.LockRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, key, bytes.NewReader(data), gcp.PutOptions{
		ContentType:  "application/json",
		CacheControl: "no-store",
		IfAbsent:     true,
	})
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
