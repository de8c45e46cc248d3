package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/lumikids/radiogen-backend/internal/platform/gcp"
	"github.com/lumikids/radiogen-backend/internal/platform/logger"
	"github.com/lumikids/radiogen-backend/internal/program"
)

// Stored objects carry cache-defeating headers; the served URL additionally
// gets a per-response version parameter so stale CDN entries never surface.
const publishCacheControl = "no-cache, no-store, must-revalidate"

// PublishService uploads finished tracks and their manifests. Track keys are
// derived deterministically from identity, so repeat generations overwrite
// rather than accumulate.
type PublishService interface {
	// PublishTrack uploads the rendered track and returns the client-facing
	// URL (cache-busted).
	PublishTrack(ctx context.Context, id program.Identity, trackPath string) (string, error)
	// PublishManifest merges this generation's entry into the stored
	// manifest. Best-effort: failures are logged and never fail the job.
	PublishManifest(ctx context.Context, id program.Identity, entry program.ManifestEntry)
	// LoadManifest reads the stored manifest; (nil, nil) when none exists.
	LoadManifest(ctx context.Context, id program.Identity) (*program.StoredManifest, error)
}

type publishService struct {
	log   *logger.Logger
	store gcp.ObjectStore
	now   func() time.Time
}

func NewPublishService(log *logger.Logger, store gcp.ObjectStore) PublishService {
	return &publishService{
		log:   log.With("service", "PublishService"),
		store: store,
		now:   time.Now,
	}
}

func (s *publishService) PublishTrack(ctx context.Context, id program.Identity, trackPath string) (string, error) {
	key := program.TrackKey(id)

	f, err := os.Open(trackPath)
	if err != nil {
		return "", &program.PublishError{Key: key, Err: err}
	}
	defer f.Close()

	err = s.store.Put(ctx, key, f, gcp.PutOptions{
		ContentType:  "audio/mpeg",
		CacheControl: publishCacheControl,
	})
	if err != nil {
		return "", &program.PublishError{Key: key, Err: err}
	}

	url := fmt.Sprintf("%s?v=%s", s.store.PublicURL(key), strconv.FormatInt(s.now().Unix(), 10))
	s.log.Info("track published", "key", key, "url", url)
	return url, nil
}

func (s *publishService) PublishManifest(ctx context.Context, id program.Identity, entry program.ManifestEntry) {
	key := program.ManifestKey(id)
	log := s.log.With("manifest_key", key)

	existing, err := s.LoadManifest(ctx, id)
	if err != nil {
		log.Warn("manifest read failed, writing fresh", "error", err)
	}
	merged := program.MergeManifest(existing, id, entry)

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		log.Warn("manifest marshal failed", "error", err)
		return
	}
	err = s.store.Put(ctx, key, bytes.NewReader(data), gcp.PutOptions{
		ContentType:  "application/json",
		CacheControl: publishCacheControl,
	})
	if err != nil {
		log.Warn("manifest write failed", "error", err)
		return
	}
	log.Info("manifest updated", "variant", id.Variant, "recording_count", entry.RecordingCount)
}

func (s *publishService) LoadManifest(ctx context.Context, id program.Identity) (*program.StoredManifest, error) {
	r, err := s.store.Get(ctx, program.ManifestKey(id))
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
	var m program.StoredManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
