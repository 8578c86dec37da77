package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"eduscroll-service/internal/domain"
)

// ContentRepository loads lesson content and progress records (from
// cache/backing store) and accepts progress submissions.
type ContentRepository interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	Lessons(ctx context.Context, categoryID int) ([]domain.Lesson, error)
	Materials(ctx context.Context, lessonID int) ([]domain.Material, error)
	Paragraphs(ctx context.Context, materialID int) ([]domain.Paragraph, error)
	Questions(ctx context.Context, lessonID int) ([]domain.Question, error)
	Progress(ctx context.Context, userID int) ([]domain.ProgressRecord, error)
	SaveProgress(ctx context.Context, userID int, record domain.ProgressRecord) error
}

// SessionRepository abstracts how lesson sessions are stored (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(userID, lessonID int, session *Session)
	Get(userID, lessonID int) (*Session, bool)
	Delete(userID, lessonID int)
}

// Preferences is the narrow capability for the client's session flags
// (guest registration, preferred category).
type Preferences interface {
	SetGuest(ctx context.Context, userID int) error
	Guest(ctx context.Context) (int, bool, error)
	SetPreferredCategory(ctx context.Context, categoryID int) error
	PreferredCategory(ctx context.Context) (int, bool, error)
	Clear(ctx context.Context) error
}

// submitTimeout bounds the background progress save after a session
// reaches its summary.
const submitTimeout = 10 * time.Second

// LessonService contains the lesson progression, leaderboard, and profile
// use cases.
type LessonService struct {
	sessions SessionRepository
	content  ContentRepository
}

func NewLessonService(sessions SessionRepository, content ContentRepository) *LessonService {
	return &LessonService{sessions: sessions, content: content}
}

// Open loads a lesson and starts a fresh session for the learner,
// replacing any previous session for the same lesson. The load runs
// materials, then paragraphs per material (concurrently across materials),
// then questions; the first failure aborts the load and leaves a terminal
// failed session behind, with the error returned verbatim. No retry is
// attempted here; the client retries by re-opening.
func (s *LessonService) Open(ctx context.Context, userID, lessonID int) (domain.SessionSnapshot, error) {
	materials, questions, err := s.loadContent(ctx, lessonID)
	if err != nil {
		failed := newFailedSession(userID, lessonID, err)
		s.sessions.Put(userID, lessonID, failed)
		return failed.Snapshot(), err
	}

	session := newSession(userID, lessonID, materials, questions)
	s.sessions.Put(userID, lessonID, session)
	return session.Snapshot(), nil
}

func (s *LessonService) loadContent(ctx context.Context, lessonID int) ([]domain.Material, []domain.Question, error) {
	materials, err := s.content.Materials(ctx, lessonID)
	if err != nil {
		return nil, nil, fmt.Errorf("load materials: %w", err)
	}

	loaded := make([]domain.Material, len(materials))
	g, gctx := errgroup.WithContext(ctx)
	for i, material := range materials {
		i, material := i, material
		g.Go(func() error {
			fetched, err := s.content.Paragraphs(gctx, material.ID)
			if err != nil {
				return fmt.Errorf("load paragraphs for material %d: %w", material.ID, err)
			}
			// The cache hands out shared slices; sort a copy so concurrent
			// opens of the same lesson never touch the same array.
			paragraphs := append([]domain.Paragraph(nil), fetched...)
			sort.Slice(paragraphs, func(a, b int) bool {
				return paragraphs[a].ParagraphNumber < paragraphs[b].ParagraphNumber
			})
			material.Paragraphs = paragraphs
			loaded[i] = material
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	questions, err := s.content.Questions(ctx, lessonID)
	if err != nil {
		return nil, nil, fmt.Errorf("load questions: %w", err)
	}
	return loaded, questions, nil
}

// Snapshot returns the current view of an open session.
func (s *LessonService) Snapshot(userID, lessonID int) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(userID, lessonID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Advance moves the session forward: materials to quiz, or quiz to the
// next question (which requires an answer for the current one).
func (s *LessonService) Advance(userID, lessonID int) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(userID, lessonID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.advance()
}

// SelectAnswer records the learner's choice for the currently displayed question.
func (s *LessonService) SelectAnswer(userID, lessonID, questionID int, letter string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(userID, lessonID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.selectAnswer(questionID, letter)
}

// Finish scores the quiz, enters the summary, and submits the progress
// record in the background. The returned snapshot already carries the
// score; submission state arrives via the session's subscription once the
// save completes or fails. A failed save leaves the local score standing.
func (s *LessonService) Finish(ctx context.Context, userID, lessonID int) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(userID, lessonID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	snap, err := session.finish()
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	record := domain.ProgressRecord{
		LessonID:       lessonID,
		CorrectAnswers: snap.Summary.CorrectCount,
	}
	go func() {
		// Detached from the request context: the summary is already
		// visible and must not wait on the save.
		submitCtx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		session.markSubmitted(s.content.SaveProgress(submitCtx, userID, record))
	}()
	return snap, nil
}

// Subscribe returns a channel that receives session snapshots as the
// session changes. The caller must invoke the returned cancel function to
// avoid leaks.
func (s *LessonService) Subscribe(userID, lessonID int) (<-chan domain.SessionSnapshot, func(), error) {
	session, ok := s.sessions.Get(userID, lessonID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Close discards the session; the next Open starts fresh.
func (s *LessonService) Close(userID, lessonID int) {
	s.sessions.Delete(userID, lessonID)
}

// Categories lists the lesson categories.
func (s *LessonService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.content.Categories(ctx)
}

// LessonOverviews lists a category's lessons with the learner's
// completion flags merged in from their progress records.
func (s *LessonService) LessonOverviews(ctx context.Context, userID, categoryID int) ([]domain.LessonOverview, error) {
	lessons, err := s.content.Lessons(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	records, err := s.content.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}

	completed := make(map[int]struct{}, len(records))
	for _, record := range records {
		completed[record.LessonID] = struct{}{}
	}

	overviews := make([]domain.LessonOverview, 0, len(lessons))
	for _, lesson := range lessons {
		_, done := completed[lesson.ID]
		overviews = append(overviews, domain.LessonOverview{Lesson: lesson, Completed: done})
	}
	return overviews, nil
}

// Leaderboard recomputes the ranking from the learner's progress records
// and the fixed roster.
func (s *LessonService) Leaderboard(ctx context.Context, userID int) ([]domain.RankingEntry, error) {
	records, err := s.content.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return BuildLeaderboard(userID, totalCorrect(records), DefaultRoster()), nil
}

// Profile recomputes the learner's stats from their progress records.
func (s *LessonService) Profile(ctx context.Context, userID int) (domain.ProfileStats, error) {
	records, err := s.content.Progress(ctx, userID)
	if err != nil {
		return domain.ProfileStats{}, err
	}
	return ComputeProfileStats(records), nil
}
