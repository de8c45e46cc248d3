package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lumikids/radiogen-backend/internal/platform/logger"
	"github.com/lumikids/radiogen-backend/internal/program"
)

// ScratchService hands out job-exclusive scratch directories, namespaced by
// identity and a fresh uuid so concurrent jobs never share one.
type ScratchService interface {
	// Create returns the directory and a cleanup func the caller must run on
	// every exit path.
	Create(id program.Identity) (string, func(), error)
	// SweepStale removes scratch directories abandoned by crashed jobs.
	SweepStale(maxAge time.Duration)
}

type scratchService struct {
	log  *logger.Logger
	root string
}

func NewScratchService(log *logger.Logger, root string) ScratchService {
	if root == "" {
		root = filepath.Join(os.TempDir(), "radiogen")
	}
	return &scratchService{
		log:  log.With("service", "ScratchService"),
		root: root,
	}
}

func (s *scratchService) Create(id program.Identity) (string, func(), error) {
	dir := filepath.Join(s.root, fmt.Sprintf("%s-%s-%s-%s", id.World, id.LMID, id.Variant, uuid.NewString()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("create scratch dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn("scratch cleanup failed", "dir", dir, "error", err)
		}
	}
	return dir, cleanup, nil
}

func (s *scratchService) SweepStale(maxAge time.Duration) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("scratch sweep failed", "root", s.root, "error", err)
		}
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		dir := filepath.Join(s.root, e.Name())
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn("stale scratch removal failed", "dir", dir, "error", err)
			continue
		}
		s.log.Info("removed stale scratch dir", "dir", dir)
	}
}
