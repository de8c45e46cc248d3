package program

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// System assets (jingles, prompts, backgrounds) all live under this path
// marker; the fetcher keys its silence-substitution behavior off it.
const systemAssetPathMarker = "/program-assets/"

// AssetLocator derives the URLs of the fixed system assets for an identity.
type AssetLocator struct {
	BaseURL string
}

func (a AssetLocator) url(parts ...string) string {
	base := strings.TrimRight(a.BaseURL, "/")
	return base + systemAssetPathMarker + strings.Join(parts, "/")
}

func (a AssetLocator) OpeningJingle(id Identity) string {
	return a.url(id.Language, "jingles", "opening.mp3")
}

func (a AssetLocator) Intro(id Identity) string {
	return a.url(id.Language, "jingles", fmt.Sprintf("intro-%s.mp3", id.Variant))
}

func (a AssetLocator) QuestionPrompt(id Identity, questionID int) string {
	return a.url(id.Language, "prompts", fmt.Sprintf("question-%d.mp3", questionID))
}

func (a AssetLocator) Background(id Identity) string {
	return a.url("music", fmt.Sprintf("background-%s.mp3", id.World))
}

func (a AssetLocator) Outro(id Identity) string {
	return a.url(id.Language, "jingles", fmt.Sprintf("outro-%s.mp3", id.Variant))
}

func (a AssetLocator) ClosingJingle(id Identity) string {
	return a.url(id.Language, "jingles", "closing.mp3")
}

// IsSystemAssetURL reports whether a URL refers to a system asset, judged by
// path convention rather than by segment type.
func IsSystemAssetURL(raw string) bool {
	return strings.Contains(raw, systemAssetPathMarker)
}

// Silence substitution durations, by asset class.
const (
	silenceBackgroundSeconds = 30
	silencePromptSeconds     = 5
	silenceJingleSeconds     = 3
)

// SilenceDurationFor picks a type-appropriate replacement duration for a
// system asset that could not be fetched.
func SilenceDurationFor(raw string) float64 {
	switch {
	case strings.Contains(raw, "/music/"), strings.Contains(raw, "background"):
		return silenceBackgroundSeconds
	case strings.Contains(raw, "/prompts/"):
		return silencePromptSeconds
	case strings.Contains(raw, "/jingles/"):
		return silenceJingleSeconds
	default:
		return silencePromptSeconds
	}
}

var (
	questionIDPattern = regexp.MustCompile(`(?i)(?:^|[_\-.])q(?:uestion)?[_\-]?(\d{1,4})(?:[_\-.]|$)`)
	timestampPattern  = regexp.MustCompile(`\d{10,13}`)
)

// parseQuestionID extracts a question number from a filename like
// "kids_question3_1712345678901.webm". Second return is false when nothing
// recognizable is present.
func parseQuestionID(filename string) (int, bool) {
	m := questionIDPattern.FindStringSubmatch(filename)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// noTimestamp sorts after every real timestamp: files without a parseable
// creation time are treated as latest and keep their arrival order, instead
// of being shoved to the front by an epoch-zero default.
const noTimestamp = int64(1<<63 - 1)

// parseTimestamp extracts a unix creation timestamp (millis) embedded in the
// filename. A 13-digit run reads as millis, a 10-digit run as seconds.
func parseTimestamp(filename string) int64 {
	matches := timestampPattern.FindAllString(filename, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		switch len(m) {
		case 13:
			v, err := strconv.ParseInt(m, 10, 64)
			if err == nil {
				return v
			}
		case 10:
			v, err := strconv.ParseInt(m, 10, 64)
			if err == nil {
				return v * 1000
			}
		}
	}
	return noTimestamp
}

type ResolveInput struct {
	Identity   Identity
	Recordings []Recording
	Assets     AssetLocator
}

type ResolveResult struct {
	Plan SegmentPlan
	// Skipped lists filenames dropped because no question id could be
	// derived. Skipping is a warning, not a failure.
	Skipped []string
}

type resolvedRecording struct {
	rec       Recording
	timestamp int64
	arrival   int
}

// ResolvePlan turns raw recordings plus identity into the ordered segment
// plan: opening jingle, intro, then per question (ascending) a prompt and a
// combine-with-background group (answers first-recorded-first), then outro
// and closing jingle.
func ResolvePlan(in ResolveInput) (ResolveResult, error) {
	if len(in.Recordings) == 0 {
		return ResolveResult{}, ErrNoRecordings
	}

	groups := map[int][]resolvedRecording{}
	skipped := []string{}
	for i, rec := range in.Recordings {
		qid, ok := questionIDOf(rec)
		if !ok {
			skipped = append(skipped, rec.Filename)
			continue
		}
		groups[qid] = append(groups[qid], resolvedRecording{
			rec:       rec,
			timestamp: timestampOf(rec),
			arrival:   i,
		})
	}
	if len(groups) == 0 {
		return ResolveResult{Skipped: skipped}, ErrNoRecordings
	}

	questionIDs := make([]int, 0, len(groups))
	for qid := range groups {
		questionIDs = append(questionIDs, qid)
	}
	sort.Ints(questionIDs)

	id := in.Identity
	segments := []Segment{
		{Kind: SegmentSingle, Label: "opening_jingle", SourceURL: in.Assets.OpeningJingle(id)},
		{Kind: SegmentSingle, Label: "intro", SourceURL: in.Assets.Intro(id)},
	}

	for _, qid := range questionIDs {
		group := groups[qid]
		sort.SliceStable(group, func(a, b int) bool {
			return group[a].timestamp < group[b].timestamp
		})
		answers := make([]string, 0, len(group))
		for _, rr := range group {
			answers = append(answers, rr.rec.URL)
		}
		segments = append(segments,
			Segment{
				Kind:      SegmentSingle,
				Label:     fmt.Sprintf("question_%d_prompt", qid),
				SourceURL: in.Assets.QuestionPrompt(id, qid),
			},
			Segment{
				Kind:          SegmentCombine,
				Label:         fmt.Sprintf("question_%d_answers", qid),
				AnswerURLs:    answers,
				BackgroundURL: in.Assets.Background(id),
			},
		)
	}

	segments = append(segments,
		Segment{Kind: SegmentSingle, Label: "outro", SourceURL: in.Assets.Outro(id)},
		Segment{Kind: SegmentSingle, Label: "closing_jingle", SourceURL: in.Assets.ClosingJingle(id)},
	)

	return ResolveResult{
		Plan:    SegmentPlan{Identity: id, Segments: segments},
		Skipped: skipped,
	}, nil
}

func questionIDOf(rec Recording) (int, bool) {
	if q := strings.TrimSpace(rec.QuestionID); q != "" {
		n, err := strconv.Atoi(q)
		if err == nil {
			return n, true
		}
	}
	return parseQuestionID(rec.Filename)
}

func timestampOf(rec Recording) int64 {
	if rec.Timestamp > 0 {
		return rec.Timestamp
	}
	return parseTimestamp(rec.Filename)
}
