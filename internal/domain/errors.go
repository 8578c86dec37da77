package domain

import "errors"

var (
	// ErrLessonNotFound indicates the lesson content could not be located.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrSessionNotFound is returned when no session is open for the learner and lesson.
	ErrSessionNotFound = errors.New("lesson session not found")
	// ErrSessionNotLoaded rejects commands against a session whose load failed.
	ErrSessionNotLoaded = errors.New("lesson session failed to load")
	// ErrStepMismatch rejects a command that is not valid in the session's current step.
	ErrStepMismatch = errors.New("command not valid in current step")
	// ErrNotCurrentQuestion rejects answers that target a question other than the displayed one.
	ErrNotCurrentQuestion = errors.New("answer does not target the current question")
	// ErrOptionNotOffered rejects answer letters the question does not offer.
	ErrOptionNotOffered = errors.New("option not offered by the question")
	// ErrQuestionUnanswered rejects advancing or finishing while the current question has no answer.
	ErrQuestionUnanswered = errors.New("current question has no recorded answer")
	// ErrQuizNotAtEnd rejects finishing before the last question is displayed.
	ErrQuizNotAtEnd = errors.New("quiz is not at the last question")
)
