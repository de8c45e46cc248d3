package program

import (
	"errors"
	"strings"
	"testing"
)

var testIdentity = Identity{
	World:    "spookyland",
	LMID:     "32",
	Variant:  VariantKids,
	Language: "en",
}

var testAssets = AssetLocator{BaseURL: "https://cdn.example.com"}

func TestResolvePlanEmptyInput(t *testing.T) {
	_, err := ResolvePlan(ResolveInput{Identity: testIdentity, Assets: testAssets})
	if !errors.Is(err, ErrNoRecordings) {
		t.Fatalf("err=%v, want ErrNoRecordings", err)
	}
}

func TestResolvePlanShape(t *testing.T) {
	res, err := ResolvePlan(ResolveInput{
		Identity: testIdentity,
		Assets:   testAssets,
		Recordings: []Recording{
			{Filename: "kids_q2_1712345678901.webm", URL: "https://u.example.com/r1"},
			{Filename: "kids_q1_1712345678000.webm", URL: "https://u.example.com/r2"},
			{Filename: "kids_q1_1712345679000.webm", URL: "https://u.example.com/r3"},
		},
	})
	if err != nil {
		t.Fatalf("ResolvePlan: %v", err)
	}

	wantLabels := []string{
		"opening_jingle",
		"intro",
		"question_1_prompt",
		"question_1_answers",
		"question_2_prompt",
		"question_2_answers",
		"outro",
		"closing_jingle",
	}
	if got := len(res.Plan.Segments); got != len(wantLabels) {
		t.Fatalf("segment count=%d, want %d", got, len(wantLabels))
	}
	for i, seg := range res.Plan.Segments {
		if seg.Label != wantLabels[i] {
			t.Fatalf("segment[%d].Label=%q, want %q", i, seg.Label, wantLabels[i])
		}
	}

	q1 := res.Plan.Segments[3]
	if q1.Kind != SegmentCombine {
		t.Fatalf("segment[3].Kind=%q, want combine", q1.Kind)
	}
	if len(q1.AnswerURLs) != 2 || q1.AnswerURLs[0] != "https://u.example.com/r2" || q1.AnswerURLs[1] != "https://u.example.com/r3" {
		t.Fatalf("q1 answers out of order: %v", q1.AnswerURLs)
	}
	if !strings.Contains(q1.BackgroundURL, "background-spookyland") {
		t.Fatalf("background URL=%q, want world-specific track", q1.BackgroundURL)
	}
	if res.Plan.RecordingCount() != 3 {
		t.Fatalf("RecordingCount=%d, want 3", res.Plan.RecordingCount())
	}
}

func TestResolvePlanExplicitFieldsWinOverFilename(t *testing.T) {
	res, err := ResolvePlan(ResolveInput{
		Identity: testIdentity,
		Assets:   testAssets,
		Recordings: []Recording{
			{Filename: "kids_q9_1712345678901.webm", URL: "https://u.example.com/a", QuestionID: "1", Timestamp: 2000},
			{Filename: "kids_q9_1712345678902.webm", URL: "https://u.example.com/b", QuestionID: "1", Timestamp: 1000},
		},
	})
	if err != nil {
		t.Fatalf("ResolvePlan: %v", err)
	}
	var combine *Segment
	for i := range res.Plan.Segments {
		if res.Plan.Segments[i].Kind == SegmentCombine {
			combine = &res.Plan.Segments[i]
			break
		}
	}
	if combine == nil {
		t.Fatal("no combine segment emitted")
	}
	if combine.Label != "question_1_answers" {
		t.Fatalf("label=%q, want question_1_answers (explicit id should win)", combine.Label)
	}
	if combine.AnswerURLs[0] != "https://u.example.com/b" {
		t.Fatalf("answers=%v, want explicit-timestamp order b,a", combine.AnswerURLs)
	}
}

func TestResolvePlanUnparseableTimestampSortsLast(t *testing.T) {
	// One dated file, two undatable files in arrival order. The undatable
	// pair must come after the dated one and keep their relative order.
	res, err := ResolvePlan(ResolveInput{
		Identity: testIdentity,
		Assets:   testAssets,
		Recordings: []Recording{
			{Filename: "kids_q1_copy.webm", URL: "https://u.example.com/first-arrival"},
			{Filename: "kids_q1_1712345678901.webm", URL: "https://u.example.com/dated"},
			{Filename: "kids_q1_retake.webm", URL: "https://u.example.com/second-arrival"},
		},
	})
	if err != nil {
		t.Fatalf("ResolvePlan: %v", err)
	}
	var answers []string
	for _, seg := range res.Plan.Segments {
		if seg.Kind == SegmentCombine {
			answers = seg.AnswerURLs
		}
	}
	want := []string{
		"https://u.example.com/dated",
		"https://u.example.com/first-arrival",
		"https://u.example.com/second-arrival",
	}
	if len(answers) != len(want) {
		t.Fatalf("answers=%v, want %v", answers, want)
	}
	for i := range want {
		if answers[i] != want[i] {
			t.Fatalf("answers[%d]=%q, want %q (full: %v)", i, answers[i], want[i], answers)
		}
	}
}

func TestResolvePlanSkipsUnparseableQuestionID(t *testing.T) {
	res, err := ResolvePlan(ResolveInput{
		Identity: testIdentity,
		Assets:   testAssets,
		Recordings: []Recording{
			{Filename: "kids_q1_1712345678901.webm", URL: "https://u.example.com/good"},
			{Filename: "mystery-noise.webm", URL: "https://u.example.com/bad"},
		},
	})
	if err != nil {
		t.Fatalf("ResolvePlan: %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "mystery-noise.webm" {
		t.Fatalf("Skipped=%v, want the unparseable filename", res.Skipped)
	}
	if res.Plan.RecordingCount() != 1 {
		t.Fatalf("RecordingCount=%d, want 1", res.Plan.RecordingCount())
	}
}

func TestResolvePlanAllUnparseableIsNoInput(t *testing.T) {
	_, err := ResolvePlan(ResolveInput{
		Identity: testIdentity,
		Assets:   testAssets,
		Recordings: []Recording{
			{Filename: "noise.webm", URL: "https://u.example.com/x"},
		},
	})
	if !errors.Is(err, ErrNoRecordings) {
		t.Fatalf("err=%v, want ErrNoRecordings", err)
	}
}

func TestQuestionGroupsSortNumerically(t *testing.T) {
	res, err := ResolvePlan(ResolveInput{
		Identity: testIdentity,
		Assets:   testAssets,
		Recordings: []Recording{
			{Filename: "kids_q10_1712345678901.webm", URL: "https://u.example.com/q10"},
			{Filename: "kids_q2_1712345678901.webm", URL: "https://u.example.com/q2"},
		},
	})
	if err != nil {
		t.Fatalf("ResolvePlan: %v", err)
	}
	var labels []string
	for _, seg := range res.Plan.Segments {
		if seg.Kind == SegmentCombine {
			labels = append(labels, seg.Label)
		}
	}
	if len(labels) != 2 || labels[0] != "question_2_answers" || labels[1] != "question_10_answers" {
		t.Fatalf("group order=%v, want numeric ascending (2 before 10)", labels)
	}
}

func TestSystemAssetClassification(t *testing.T) {
	cases := []struct {
		name     string
		url      string
		isSystem bool
		duration float64
	}{
		{"background", testAssets.Background(testIdentity), true, 30},
		{"prompt", testAssets.QuestionPrompt(testIdentity, 3), true, 5},
		{"jingle", testAssets.OpeningJingle(testIdentity), true, 3},
		{"intro", testAssets.Intro(testIdentity), true, 3},
		{"user recording", "https://u.example.com/recordings/kids_q1_1712345678901.webm", false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSystemAssetURL(tc.url); got != tc.isSystem {
				t.Fatalf("IsSystemAssetURL(%q)=%v, want %v", tc.url, got, tc.isSystem)
			}
			if !tc.isSystem {
				return
			}
			if got := SilenceDurationFor(tc.url); got != tc.duration {
				t.Fatalf("SilenceDurationFor(%q)=%v, want %v", tc.url, got, tc.duration)
			}
		})
	}
}
