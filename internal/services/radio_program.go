package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lumikids/radiogen-backend/internal/platform/logger"
	"github.com/lumikids/radiogen-backend/internal/program"
)

type GenerateRequest struct {
	Identity   program.Identity
	Recordings []program.Recording
}

type GenerateResult struct {
	URL      string
	Manifest program.ManifestEntry
	// SkippedFiles lists recordings dropped during resolution (unparseable
	// question id).
	SkippedFiles []string
}

// ProgramStatus reports on a possibly in-flight generation for a key.
type ProgramStatus struct {
	InProgress bool
	AgeSeconds int
	RequestID  string
	// SnapshotChanged is true when the caller's current recording set
	// differs from the one captured at lock time, i.e. a rerun after the
	// current generation finishes would produce different output.
	SnapshotChanged bool
}

// RadioProgramService runs the whole generation pipeline: resolve → lock →
// fetch → mix → publish, with the lock released on every exit path.
type RadioProgramService interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	Status(ctx context.Context, id program.Identity, recordings []program.Recording) (*ProgramStatus, error)
}

type radioProgramService struct {
	log       *logger.Logger
	assets    program.AssetLocator
	fetcher   AssetFetchService
	mixer     MixingService
	lock      GenerationLockService
	publisher PublishService
	scratch   ScratchService
	now       func() time.Time
}

func NewRadioProgramService(
	log *logger.Logger,
	assets program.AssetLocator,
	fetcher AssetFetchService,
	mixer MixingService,
	lock GenerationLockService,
	publisher PublishService,
	scratch ScratchService,
) RadioProgramService {
	return &radioProgramService{
		log:       log.With("service", "RadioProgramService"),
		assets:    assets,
		fetcher:   fetcher,
		mixer:     mixer,
		lock:      lock,
		publisher: publisher,
		scratch:   scratch,
		now:       time.Now,
	}
}

func (s *radioProgramService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := req.Identity.Validate(); err != nil {
		return nil, err
	}
	id := req.Identity
	requestID := uuid.NewString()
	log := s.log.With("program_key", id.String(), "request_id", requestID)

	res, err := program.ResolvePlan(program.ResolveInput{
		Identity:   id,
		Recordings: req.Recordings,
		Assets:     s.assets,
	})
	if err != nil {
		return nil, err
	}
	for _, f := range res.Skipped {
		log.Warn("recording skipped: no question id", "filename", f)
	}
	plan := res.Plan

	snapshot := snapshotFilenames(req.Recordings, program.VariantFilter(id.Variant))
	if !s.lock.Acquire(ctx, id, snapshot, requestID) {
		return nil, program.ErrGenerationInProgress
	}
	// Release must run even when ctx is already canceled by a failure.
	defer s.lock.Release(context.WithoutCancel(ctx), id)

	scratchDir, cleanup, err := s.scratch.Create(id)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	log.Info("generation started",
		"segments", len(plan.Segments),
		"recordings", plan.RecordingCount(),
	)

	fetched, err := s.fetcher.FetchPlan(ctx, plan, scratchDir)
	if err != nil {
		return nil, err
	}

	rendered, err := s.renderSegments(ctx, fetched, scratchDir)
	if err != nil {
		return nil, err
	}

	finalPath, err := s.mixer.AssembleFinal(ctx, rendered, filepath.Join(scratchDir, "radio-program.mp3"))
	if err != nil {
		return nil, err
	}

	url, err := s.publisher.PublishTrack(ctx, id, finalPath)
	if err != nil {
		return nil, err
	}

	entry := program.ManifestEntry{
		GeneratedAt:    s.now().UTC(),
		OutputURL:      url,
		RecordingCount: plan.RecordingCount(),
		RequestID:      requestID,
	}
	s.publisher.PublishManifest(context.WithoutCancel(ctx), id, entry)

	log.Info("generation finished", "url", url)
	return &GenerateResult{
		URL:          url,
		Manifest:     entry,
		SkippedFiles: res.Skipped,
	}, nil
}

// renderSegments turns each fetched segment into one local audio file,
// returning paths in plan order. The original plan index travels with every
// segment, so a mapping mismatch is a bug worth failing loudly on.
func (s *radioProgramService) renderSegments(ctx context.Context, fetched []FetchedSegment, scratchDir string) ([]string, error) {
	rendered := make([]string, len(fetched))
	for i, seg := range fetched {
		if seg.Index != i {
			return nil, fmt.Errorf("segment order corrupted: position %d holds plan index %d", i, seg.Index)
		}
		switch seg.Kind {
		case program.SegmentSingle, program.SegmentSilence:
			rendered[i] = seg.LocalPath
		case program.SegmentCombine:
			out := filepath.Join(scratchDir, fmt.Sprintf("render%03d.mp3", seg.Index))
			path, err := s.mixer.ConcatWithBackground(ctx, seg.AnswerPaths, seg.BackgroundPath, out)
			if err != nil {
				return nil, err
			}
			rendered[i] = path
		default:
			return nil, fmt.Errorf("unknown segment kind %q at index %d", seg.Kind, i)
		}
		if rendered[i] == "" {
			return nil, fmt.Errorf("segment %d (%s) produced no local file", i, seg.Label)
		}
	}
	return rendered, nil
}

func (s *radioProgramService) Status(ctx context.Context, id program.Identity, recordings []program.Recording) (*ProgramStatus, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.lock.CheckStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &ProgramStatus{}, nil
	}
	filter := program.VariantFilter(id.Variant)
	return &ProgramStatus{
		InProgress:      true,
		AgeSeconds:      int(rec.Age(s.now()).Seconds()),
		RequestID:       rec.RequestID,
		SnapshotChanged: s.lock.HasSnapshotChanged(filenamesOf(recordings), rec, filter),
	}, nil
}

func snapshotFilenames(recordings []program.Recording, keep func(string) bool) []string {
	out := make([]string, 0, len(recordings))
	for _, r := range recordings {
		if keep == nil || keep(r.Filename) {
			out = append(out, r.Filename)
		}
	}
	return out
}

func filenamesOf(recordings []program.Recording) []string {
	out := make([]string, 0, len(recordings))
	for _, r := range recordings {
		out = append(out, r.Filename)
	}
	return out
}
