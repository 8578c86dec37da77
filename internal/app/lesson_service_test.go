package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eduscroll-service/internal/app"
	"eduscroll-service/internal/domain"
	"eduscroll-service/internal/infra/memory"
)

func TestOpenLoadsOrderedContent(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewStaticContentSource(lessonFixture()))

	snap, err := service.Open(ctx, 7, 1)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if snap.Step != domain.StepMaterials {
		t.Fatalf("expected materials step, got %s", snap.Step)
	}
	if snap.Quiz != nil || snap.Summary != nil {
		t.Fatalf("expected no quiz/summary state on a fresh session")
	}
	if len(snap.Materials) != 2 {
		t.Fatalf("expected 2 materials, got %d", len(snap.Materials))
	}
	first := snap.Materials[0].Paragraphs
	if len(first) != 2 || first[0].ParagraphNumber != 1 || first[1].ParagraphNumber != 2 {
		t.Fatalf("expected paragraphs sorted by number, got %+v", first)
	}
	if len(snap.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(snap.Questions))
	}
}

func TestConcurrentOpensDoNotMutateCachedContent(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewContentCache(memory.NewStaticContentSource(lessonFixture()), time.Minute)
	service := app.NewLessonService(memory.NewSessionStore(), cache)

	// Several learners open the same lesson at once; every session must
	// see sorted paragraphs without touching the shared cached slice.
	var wg sync.WaitGroup
	for user := 1; user <= 4; user++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			snap, err := service.Open(ctx, userID, 1)
			if err != nil {
				t.Errorf("open for user %d failed: %v", userID, err)
				return
			}
			first := snap.Materials[0].Paragraphs
			if len(first) != 2 || first[0].ParagraphNumber != 1 || first[1].ParagraphNumber != 2 {
				t.Errorf("user %d saw unsorted paragraphs: %+v", userID, first)
			}
		}(user)
	}
	wg.Wait()

	// The cache still holds the source order; sessions sort copies.
	cached, err := cache.Paragraphs(ctx, 10)
	if err != nil {
		t.Fatalf("paragraphs failed: %v", err)
	}
	if len(cached) != 2 || cached[0].ID != 102 {
		t.Fatalf("expected cached paragraphs unmodified, got %+v", cached)
	}
}

func TestOpenLoadFailureIsTerminal(t *testing.T) {
	ctx := context.Background()
	service := newTestService(failingMaterials{memory.NewStaticContentSource(lessonFixture())})

	snap, err := service.Open(ctx, 7, 1)
	if err == nil {
		t.Fatalf("expected load error")
	}
	if snap.LoadError == "" {
		t.Fatalf("expected load error on snapshot, got %+v", snap)
	}
	if len(snap.Materials) != 0 {
		t.Fatalf("expected no partial content, got %d materials", len(snap.Materials))
	}

	if _, err := service.Advance(7, 1); !errors.Is(err, domain.ErrSessionNotLoaded) {
		t.Fatalf("expected ErrSessionNotLoaded, got %v", err)
	}
	if _, err := service.SelectAnswer(7, 1, 1, "A"); !errors.Is(err, domain.ErrSessionNotLoaded) {
		t.Fatalf("expected ErrSessionNotLoaded, got %v", err)
	}
}

func TestAdvanceRequiresAnswerForCurrentQuestion(t *testing.T) {
	service := newTestService(memory.NewStaticContentSource(lessonFixture()))
	mustOpen(t, service, 7, 1)

	snap, err := service.Advance(7, 1)
	if err != nil {
		t.Fatalf("advance to quiz failed: %v", err)
	}
	if snap.Step != domain.StepQuiz || snap.Quiz == nil || snap.Quiz.CurrentQuestion != 0 {
		t.Fatalf("expected quiz at question 0, got %+v", snap)
	}

	if _, err := service.Advance(7, 1); !errors.Is(err, domain.ErrQuestionUnanswered) {
		t.Fatalf("expected ErrQuestionUnanswered, got %v", err)
	}

	if _, err := service.SelectAnswer(7, 1, 1, "B"); err != nil {
		t.Fatalf("select answer failed: %v", err)
	}
	snap, err = service.Advance(7, 1)
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if snap.Quiz.CurrentQuestion != 1 {
		t.Fatalf("expected question index 1, got %d", snap.Quiz.CurrentQuestion)
	}

	// At the last question advance clamps instead of overrunning.
	if _, err := service.SelectAnswer(7, 1, 2, "A"); err != nil {
		t.Fatalf("select answer failed: %v", err)
	}
	snap, err = service.Advance(7, 1)
	if err != nil {
		t.Fatalf("advance at last question failed: %v", err)
	}
	if snap.Quiz.CurrentQuestion != 1 {
		t.Fatalf("expected index to stay at 1, got %d", snap.Quiz.CurrentQuestion)
	}
}

func TestSelectAnswerGuards(t *testing.T) {
	service := newTestService(memory.NewStaticContentSource(lessonFixture()))
	mustOpen(t, service, 7, 1)

	if _, err := service.SelectAnswer(7, 1, 1, "A"); !errors.Is(err, domain.ErrStepMismatch) {
		t.Fatalf("expected ErrStepMismatch before quiz, got %v", err)
	}
	if _, err := service.Advance(7, 1); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	if _, err := service.SelectAnswer(7, 1, 2, "A"); !errors.Is(err, domain.ErrNotCurrentQuestion) {
		t.Fatalf("expected ErrNotCurrentQuestion, got %v", err)
	}
	// Question 1 offers only A and B.
	if _, err := service.SelectAnswer(7, 1, 1, "C"); !errors.Is(err, domain.ErrOptionNotOffered) {
		t.Fatalf("expected ErrOptionNotOffered, got %v", err)
	}
}

func TestSelectAnswerOverwrites(t *testing.T) {
	service := newTestService(memory.NewStaticContentSource(lessonFixture()))
	mustOpen(t, service, 7, 1)
	if _, err := service.Advance(7, 1); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	if _, err := service.SelectAnswer(7, 1, 1, "A"); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	snap, err := service.SelectAnswer(7, 1, 1, "b")
	if err != nil {
		t.Fatalf("re-select failed: %v", err)
	}
	if len(snap.Quiz.SelectedAnswers) != 1 {
		t.Fatalf("expected single entry after overwrite, got %v", snap.Quiz.SelectedAnswers)
	}
	if snap.Quiz.SelectedAnswers[1] != "B" {
		t.Fatalf("expected overwritten answer B, got %q", snap.Quiz.SelectedAnswers[1])
	}
}

func TestFinishScoresAndSubmits(t *testing.T) {
	ctx := context.Background()
	source := memory.NewStaticContentSource(lessonFixture())
	service := newTestService(source)
	mustOpen(t, service, 7, 1)

	answerAll(t, service, 7, 1)

	updates, cancel, err := service.Subscribe(7, 1)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	snap, err := service.Finish(ctx, 7, 1)
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if snap.Step != domain.StepSummary || snap.Summary == nil {
		t.Fatalf("expected summary step, got %+v", snap)
	}
	// Question 1's correct letter is stored lowercase; scoring is case-insensitive.
	if snap.Summary.CorrectCount != 2 || snap.Summary.TotalQuestions != 2 {
		t.Fatalf("expected 2/2 correct, got %d/%d", snap.Summary.CorrectCount, snap.Summary.TotalQuestions)
	}

	final := waitForSubmission(t, updates)
	if !final.Summary.Submitted || final.Summary.SubmissionError != "" {
		t.Fatalf("expected acknowledged submission, got %+v", final.Summary)
	}

	records, err := source.Progress(ctx, 7)
	if err != nil {
		t.Fatalf("progress failed: %v", err)
	}
	if len(records) != 1 || records[0].LessonID != 1 || records[0].CorrectAnswers != 2 {
		t.Fatalf("expected record {1 2}, got %+v", records)
	}
}

func TestFinishGuards(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewStaticContentSource(lessonFixture()))
	mustOpen(t, service, 7, 1)

	if _, err := service.Finish(ctx, 7, 1); !errors.Is(err, domain.ErrStepMismatch) {
		t.Fatalf("expected ErrStepMismatch in materials, got %v", err)
	}
	if _, err := service.Advance(7, 1); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if _, err := service.Finish(ctx, 7, 1); !errors.Is(err, domain.ErrQuizNotAtEnd) {
		t.Fatalf("expected ErrQuizNotAtEnd at first question, got %v", err)
	}

	if _, err := service.SelectAnswer(7, 1, 1, "B"); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if _, err := service.Advance(7, 1); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if _, err := service.Finish(ctx, 7, 1); !errors.Is(err, domain.ErrQuestionUnanswered) {
		t.Fatalf("expected ErrQuestionUnanswered at unanswered last question, got %v", err)
	}
}

func TestStepNeverRegresses(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewStaticContentSource(lessonFixture()))
	mustOpen(t, service, 7, 1)
	answerAll(t, service, 7, 1)
	if _, err := service.Finish(ctx, 7, 1); err != nil {
		t.Fatalf("finish failed: %v", err)
	}

	if _, err := service.Advance(7, 1); !errors.Is(err, domain.ErrStepMismatch) {
		t.Fatalf("expected ErrStepMismatch after summary, got %v", err)
	}
	if _, err := service.SelectAnswer(7, 1, 2, "A"); !errors.Is(err, domain.ErrStepMismatch) {
		t.Fatalf("expected ErrStepMismatch after summary, got %v", err)
	}
}

func TestSubmissionFailureKeepsLocalScore(t *testing.T) {
	ctx := context.Background()
	service := newTestService(failingSaves{memory.NewStaticContentSource(lessonFixture())})
	mustOpen(t, service, 7, 1)
	answerAll(t, service, 7, 1)

	updates, cancel, err := service.Subscribe(7, 1)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	snap, err := service.Finish(ctx, 7, 1)
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if snap.Summary.CorrectCount != 2 {
		t.Fatalf("expected local score despite failing backend, got %d", snap.Summary.CorrectCount)
	}

	final := waitForSubmission(t, updates)
	if final.Summary.Submitted {
		t.Fatalf("expected submitted=false after failed save")
	}
	if final.Summary.SubmissionError == "" {
		t.Fatalf("expected submission error message")
	}
	if final.Summary.CorrectCount != 2 {
		t.Fatalf("local score must survive a failed save, got %d", final.Summary.CorrectCount)
	}
}

func TestSubscribeDuringSubmissionNeverRegresses(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewStaticContentSource(lessonFixture()))
	mustOpen(t, service, 7, 1)
	answerAll(t, service, 7, 1)
	if _, err := service.Finish(ctx, 7, 1); err != nil {
		t.Fatalf("finish failed: %v", err)
	}

	// Subscriptions race the background save acknowledgement; the initial
	// snapshot must never arrive after a newer broadcast, so submitted
	// must not flip back to false once observed.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			updates, cancel, err := service.Subscribe(7, 1)
			if err != nil {
				t.Errorf("subscribe failed: %v", err)
				return
			}
			defer cancel()

			deadline := time.After(2 * time.Second)
			for {
				select {
				case snap := <-updates:
					if snap.Summary != nil && snap.Summary.Submitted {
						// Drain what is buffered; nothing older may follow.
						for {
							select {
							case late := <-updates:
								if late.Summary == nil || !late.Summary.Submitted {
									t.Errorf("stale snapshot after acknowledgement: %+v", late)
								}
							default:
								return
							}
						}
					}
				case <-deadline:
					t.Errorf("timed out waiting for submission")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestReopenStartsFreshSession(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewStaticContentSource(lessonFixture()))
	mustOpen(t, service, 7, 1)
	if _, err := service.Advance(7, 1); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if _, err := service.SelectAnswer(7, 1, 1, "A"); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	snap, err := service.Open(ctx, 7, 1)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if snap.Step != domain.StepMaterials || snap.Quiz != nil {
		t.Fatalf("expected fresh session after reopen, got %+v", snap)
	}
}

func TestLessonOverviewsMarkCompleted(t *testing.T) {
	ctx := context.Background()
	source := memory.NewStaticContentSource(lessonFixture())
	service := newTestService(source)

	if err := source.SaveProgress(ctx, 7, domain.ProgressRecord{LessonID: 1, CorrectAnswers: 2}); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	overviews, err := service.LessonOverviews(ctx, 7, 1)
	if err != nil {
		t.Fatalf("overviews failed: %v", err)
	}
	if len(overviews) != 2 {
		t.Fatalf("expected 2 lessons, got %d", len(overviews))
	}
	if !overviews[0].Completed || overviews[1].Completed {
		t.Fatalf("expected only lesson 1 completed, got %+v", overviews)
	}
}

func newTestService(content app.ContentRepository) *app.LessonService {
	return app.NewLessonService(memory.NewSessionStore(), content)
}

func mustOpen(t *testing.T, service *app.LessonService, userID, lessonID int) {
	t.Helper()
	if _, err := service.Open(context.Background(), userID, lessonID); err != nil {
		t.Fatalf("open failed: %v", err)
	}
}

// answerAll walks the quiz answering both fixture questions correctly.
func answerAll(t *testing.T, service *app.LessonService, userID, lessonID int) {
	t.Helper()
	if _, err := service.Advance(userID, lessonID); err != nil {
		t.Fatalf("advance to quiz failed: %v", err)
	}
	if _, err := service.SelectAnswer(userID, lessonID, 1, "B"); err != nil {
		t.Fatalf("answer q1 failed: %v", err)
	}
	if _, err := service.Advance(userID, lessonID); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if _, err := service.SelectAnswer(userID, lessonID, 2, "A"); err != nil {
		t.Fatalf("answer q2 failed: %v", err)
	}
}

func waitForSubmission(t *testing.T, updates <-chan domain.SessionSnapshot) domain.SessionSnapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-updates:
			if snap.Summary != nil && (snap.Summary.Submitted || snap.Summary.SubmissionError != "") {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for submission result")
		}
	}
}

func lessonFixture() memory.ContentFixture {
	return memory.ContentFixture{
		Categories: []domain.Category{{ID: 1, Name: "Online Safety"}},
		Lessons: map[int][]domain.Lesson{
			1: {
				{ID: 1, Name: "Recognizing Phishing", CategoryID: 1},
				{ID: 2, Name: "Strong Passwords", CategoryID: 1},
			},
		},
		Materials: map[int][]domain.Material{
			1: {{ID: 10, Title: "Intro"}, {ID: 11, Title: "Deep dive"}},
		},
		Paragraphs: map[int][]domain.Paragraph{
			10: {
				{ID: 102, ParagraphNumber: 2, Header: "Second", Content: "more text"},
				{ID: 101, ParagraphNumber: 1, Header: "First", Content: "text"},
			},
			11: {{ID: 111, ParagraphNumber: 1, Header: "Only", Content: "text"}},
		},
		Questions: map[int][]domain.Question{
			1: {
				{ID: 1, Prompt: "Pick B", OptionA: "wrong", OptionB: "right", CorrectOption: "b", ExpGain: 10},
				{ID: 2, Prompt: "Pick A", OptionA: "right", OptionB: "wrong", OptionC: "also wrong", CorrectOption: "A", ExpGain: 10},
			},
		},
	}
}

type failingMaterials struct {
	app.ContentRepository
}

func (f failingMaterials) Materials(context.Context, int) ([]domain.Material, error) {
	return nil, errors.New("backend unavailable")
}

type failingSaves struct {
	app.ContentRepository
}

func (f failingSaves) SaveProgress(context.Context, int, domain.ProgressRecord) error {
	return errors.New("progress save rejected")
}
