package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lumikids/radiogen-backend/internal/platform/logger"
	"github.com/lumikids/radiogen-backend/internal/program"
)

// FetchedSegment is a plan segment with its remote references replaced by
// local scratch paths. Index is the segment's position in the original plan
// and is carried explicitly so later stages never depend on filesystem or
// completion order.
type FetchedSegment struct {
	Index int
	Kind  program.SegmentKind
	Label string

	LocalPath      string   // single / silence
	AnswerPaths    []string // combine, in answer order
	BackgroundPath string   // combine
}

// AssetFetchService materializes a segment plan into a scratch directory.
// Missing system assets degrade to synthesized silence; a missing user
// recording fails the job.
type AssetFetchService interface {
	FetchPlan(ctx context.Context, plan program.SegmentPlan, scratchDir string) ([]FetchedSegment, error)
}

type assetFetchService struct {
	log         *logger.Logger
	client      *http.Client
	mixer       MixingService
	concurrency int
}

func NewAssetFetchService(log *logger.Logger, client *http.Client, mixer MixingService, concurrency int) AssetFetchService {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &assetFetchService{
		log:         log.With("service", "AssetFetchService"),
		client:      client,
		mixer:       mixer,
		concurrency: concurrency,
	}
}

func (s *assetFetchService) FetchPlan(ctx context.Context, plan program.SegmentPlan, scratchDir string) ([]FetchedSegment, error) {
	out := make([]FetchedSegment, len(plan.Segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, seg := range plan.Segments {
		out[i] = FetchedSegment{Index: i, Kind: seg.Kind, Label: seg.Label}

		switch seg.Kind {
		case program.SegmentSingle:
			fs := &out[i]
			url := seg.SourceURL
			dest := filepath.Join(scratchDir, segmentFileName(i, "single", url))
			g.Go(func() error {
				local, err := s.fetchOne(gctx, url, dest)
				if err != nil {
					return err
				}
				fs.LocalPath = local
				return nil
			})

		case program.SegmentCombine:
			fs := &out[i]
			fs.AnswerPaths = make([]string, len(seg.AnswerURLs))
			for ai, answerURL := range seg.AnswerURLs {
				dest := filepath.Join(scratchDir, segmentFileName(i, fmt.Sprintf("answer%02d", ai), answerURL))
				g.Go(func() error {
					local, err := s.fetchOne(gctx, answerURL, dest)
					if err != nil {
						return err
					}
					fs.AnswerPaths[ai] = local
					return nil
				})
			}
			bgURL := seg.BackgroundURL
			bgDest := filepath.Join(scratchDir, segmentFileName(i, "background", bgURL))
			g.Go(func() error {
				local, err := s.fetchOne(gctx, bgURL, bgDest)
				if err != nil {
					return err
				}
				fs.BackgroundPath = local
				return nil
			})

		case program.SegmentSilence:
			fs := &out[i]
			seconds := seg.DurationSeconds
			dest := filepath.Join(scratchDir, fmt.Sprintf("seg%03d_silence.mp3", i))
			g.Go(func() error {
				local, err := s.mixer.SynthesizeSilence(gctx, seconds, dest)
				if err != nil {
					return err
				}
				fs.LocalPath = local
				return nil
			})

		default:
			return nil, fmt.Errorf("unknown segment kind %q at index %d", seg.Kind, i)
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// fetchOne downloads url to dest. A failed system-asset fetch is replaced by
// a type-appropriate silent clip; a failed user-recording fetch is fatal.
func (s *assetFetchService) fetchOne(ctx context.Context, url, dest string) (string, error) {
	err := s.download(ctx, url, dest)
	if err == nil {
		return dest, nil
	}

	if !program.IsSystemAssetURL(url) {
		return "", err
	}

	seconds := program.SilenceDurationFor(url)
	s.log.Warn("system asset unavailable, substituting silence",
		"url", url,
		"silence_seconds", seconds,
		"error", err,
	)
	silencePath := strings.TrimSuffix(dest, filepath.Ext(dest)) + "_silence.mp3"
	local, synthErr := s.mixer.SynthesizeSilence(ctx, seconds, silencePath)
	if synthErr != nil {
		return "", fmt.Errorf("silence substitution for %s: %w", url, synthErr)
	}
	return local, nil
}

func (s *assetFetchService) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &program.FetchError{URL: url, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &program.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &program.FetchError{URL: url, Status: resp.StatusCode}
	}

	f, err := os.Create(dest)
	if err != nil {
		return &program.FetchError{URL: url, Err: err}
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return &program.FetchError{URL: url, Err: err}
	}
	if err := f.Close(); err != nil {
		return &program.FetchError{URL: url, Err: err}
	}
	return nil
}

func segmentFileName(index int, role, url string) string {
	ext := path.Ext(strings.SplitN(path.Base(url), "?", 2)[0])
	if ext == "" || len(ext) > 5 {
		ext = ".mp3"
	}
	return fmt.Sprintf("seg%03d_%s%s", index, role, ext)
}
