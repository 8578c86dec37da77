package app

import (
	"strings"
	"sync"

	"eduscroll-service/internal/domain"
)

// Session holds one learner's pass through one lesson: materials, quiz
// bookkeeping, and the summary score. It is discarded when the learner
// leaves; re-opening the lesson starts a fresh session.
type Session struct {
	userID   int
	lessonID int

	mu          sync.RWMutex
	step        domain.LessonStep
	materials   []domain.Material
	questions   []domain.Question
	current     int
	answers     map[int]string
	correct     int
	submitted   bool
	submitErr   string
	loadErr     string
	subscribers map[chan domain.SessionSnapshot]struct{}
}

func newSession(userID, lessonID int, materials []domain.Material, questions []domain.Question) *Session {
	return &Session{
		userID:      userID,
		lessonID:    lessonID,
		step:        domain.StepMaterials,
		materials:   materials,
		questions:   questions,
		answers:     make(map[int]string),
		subscribers: make(map[chan domain.SessionSnapshot]struct{}),
	}
}

// newFailedSession records a terminal load failure; every command against
// it is rejected and only the error description is exposed.
func newFailedSession(userID, lessonID int, loadErr error) *Session {
	return &Session{
		userID:      userID,
		lessonID:    lessonID,
		step:        domain.StepMaterials,
		loadErr:     loadErr.Error(),
		subscribers: make(map[chan domain.SessionSnapshot]struct{}),
	}
}

// Snapshot returns an immutable view of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// advance moves Materials to Quiz, or to the next question within Quiz.
// Within Quiz it requires an answer for the current question and is a
// no-op at the last question.
func (s *Session) advance() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != "" {
		return domain.SessionSnapshot{}, domain.ErrSessionNotLoaded
	}
	switch s.step {
	case domain.StepMaterials:
		s.step = domain.StepQuiz
		s.current = 0
	case domain.StepQuiz:
		if !s.currentAnsweredLocked() {
			return domain.SessionSnapshot{}, domain.ErrQuestionUnanswered
		}
		if s.current < len(s.questions)-1 {
			s.current++
		}
	default:
		return domain.SessionSnapshot{}, domain.ErrStepMismatch
	}
	return s.broadcastLocked(), nil
}

// selectAnswer upserts the answer for the currently displayed question.
// It never auto-advances.
func (s *Session) selectAnswer(questionID int, letter string) (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != "" {
		return domain.SessionSnapshot{}, domain.ErrSessionNotLoaded
	}
	if s.step != domain.StepQuiz {
		return domain.SessionSnapshot{}, domain.ErrStepMismatch
	}
	if s.current >= len(s.questions) {
		return domain.SessionSnapshot{}, domain.ErrNotCurrentQuestion
	}
	question := s.questions[s.current]
	if question.ID != questionID {
		return domain.SessionSnapshot{}, domain.ErrNotCurrentQuestion
	}
	letter = strings.ToUpper(letter)
	if !question.HasOption(letter) {
		return domain.SessionSnapshot{}, domain.ErrOptionNotOffered
	}
	s.answers[questionID] = letter
	return s.broadcastLocked(), nil
}

// finish scores the quiz and enters Summary. Allowed only from the last
// question with an answer recorded for it. Submission state starts false;
// the service reports the remote save via markSubmitted.
func (s *Session) finish() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != "" {
		return domain.SessionSnapshot{}, domain.ErrSessionNotLoaded
	}
	if s.step != domain.StepQuiz {
		return domain.SessionSnapshot{}, domain.ErrStepMismatch
	}
	if s.current != len(s.questions)-1 {
		return domain.SessionSnapshot{}, domain.ErrQuizNotAtEnd
	}
	if !s.currentAnsweredLocked() {
		return domain.SessionSnapshot{}, domain.ErrQuestionUnanswered
	}
	s.correct = scoreAnswers(s.questions, s.answers)
	s.step = domain.StepSummary
	s.submitted = false
	s.submitErr = ""
	return s.broadcastLocked(), nil
}

// markSubmitted records the outcome of the async progress save. A failure
// never rolls back the locally computed score.
func (s *Session) markSubmitted(err error) domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.submitErr = err.Error()
	} else {
		s.submitted = true
		s.submitErr = ""
	}
	return s.broadcastLocked()
}

func (s *Session) currentAnsweredLocked() bool {
	if s.current >= len(s.questions) {
		return false
	}
	_, ok := s.answers[s.questions[s.current].ID]
	return ok
}

func (s *Session) subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// Sent under the lock so no broadcast can slip in ahead of the
	// initial snapshot; the fresh buffered channel cannot block here.
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.SessionSnapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale update so a slow client never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		UserID:    s.userID,
		LessonID:  s.lessonID,
		Step:      s.step,
		LoadError: s.loadErr,
	}
	if s.loadErr != "" {
		return snap
	}
	snap.Materials = s.materials
	snap.Questions = s.questions

	switch s.step {
	case domain.StepQuiz:
		answers := make(map[int]string, len(s.answers))
		for id, letter := range s.answers {
			answers[id] = letter
		}
		snap.Quiz = &domain.QuizProgress{
			CurrentQuestion: s.current,
			SelectedAnswers: answers,
		}
	case domain.StepSummary:
		snap.Summary = &domain.SummaryResult{
			CorrectCount:    s.correct,
			TotalQuestions:  len(s.questions),
			Submitted:       s.submitted,
			SubmissionError: s.submitErr,
		}
	}
	return snap
}

// scoreAnswers counts questions whose recorded answer matches the correct
// letter, compared case-insensitively. Unanswered questions never count.
func scoreAnswers(questions []domain.Question, answers map[int]string) int {
	correct := 0
	for _, q := range questions {
		if letter, ok := answers[q.ID]; ok && strings.EqualFold(letter, q.CorrectOption) {
			correct++
		}
	}
	return correct
}
