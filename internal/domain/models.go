package domain

// Category groups lessons by topic (e.g. online safety, passwords).
type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Lesson is one teachable unit within a category.
type Lesson struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CategoryID  int    `json:"categoryId"`
}

// LessonOverview pairs a lesson with the learner's completion flag,
// derived from their progress records.
type LessonOverview struct {
	Lesson    Lesson `json:"lesson"`
	Completed bool   `json:"completed"`
}

// Paragraph is one block of lesson material text.
type Paragraph struct {
	ID              int    `json:"id"`
	ParagraphNumber int    `json:"paragraphNumber"`
	Header          string `json:"header"`
	Content         string `json:"content"`
}

// Material is a reading unit shown before the quiz. Paragraphs are kept
// sorted ascending by ParagraphNumber once loaded.
type Material struct {
	ID         int         `json:"id"`
	Title      string      `json:"title,omitempty"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Question is a single-choice question with lettered options. OptionC and
// OptionD may be empty, meaning those letters are not offered.
type Question struct {
	ID            int    `json:"id"`
	Prompt        string `json:"prompt"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC,omitempty"`
	OptionD       string `json:"optionD,omitempty"`
	CorrectOption string `json:"correctOption"`
	ExpGain       int    `json:"expGain"`
}

// HasOption reports whether the question offers the given answer letter.
func (q Question) HasOption(letter string) bool {
	switch letter {
	case "A":
		return q.OptionA != ""
	case "B":
		return q.OptionB != ""
	case "C":
		return q.OptionC != ""
	case "D":
		return q.OptionD != ""
	}
	return false
}

// ProgressRecord is the persisted result of one completed lesson attempt.
type ProgressRecord struct {
	LessonID       int `json:"lessonId"`
	CorrectAnswers int `json:"correctAnswers"`
}

// LessonStep is the phase of a lesson session.
type LessonStep string

const (
	StepMaterials LessonStep = "materials"
	StepQuiz      LessonStep = "quiz"
	StepSummary   LessonStep = "summary"
)

// QuizProgress is the quiz-phase portion of a session snapshot.
type QuizProgress struct {
	CurrentQuestion int            `json:"currentQuestion"`
	SelectedAnswers map[int]string `json:"selectedAnswers"`
}

// SummaryResult is the summary-phase portion of a session snapshot. The
// score is computed locally and stands even when the remote save failed.
type SummaryResult struct {
	CorrectCount    int    `json:"correctCount"`
	TotalQuestions  int    `json:"totalQuestions"`
	Submitted       bool   `json:"submitted"`
	SubmissionError string `json:"submissionError,omitempty"`
}

// SessionSnapshot is an immutable view of one lesson session. Quiz is
// non-nil only while Step is StepQuiz, Summary only once Step is
// StepSummary, so phase-specific fields cannot appear out of phase.
// A non-empty LoadError marks a terminal failed load; no other field is
// meaningful then.
type SessionSnapshot struct {
	UserID    int            `json:"userId"`
	LessonID  int            `json:"lessonId"`
	Step      LessonStep     `json:"step"`
	Materials []Material     `json:"materials,omitempty"`
	Questions []Question     `json:"questions,omitempty"`
	Quiz      *QuizProgress  `json:"quiz,omitempty"`
	Summary   *SummaryResult `json:"summary,omitempty"`
	LoadError string         `json:"loadError,omitempty"`
}

// RankingEntry is one row of a computed leaderboard. Position is assigned
// by the aggregator, never authored.
type RankingEntry struct {
	Position      int    `json:"position"`
	DisplayName   string `json:"displayName"`
	Exp           int    `json:"exp"`
	IsCurrentUser bool   `json:"isCurrentUser,omitempty"`
}

// ProfileStats is derived from progress records on every request.
type ProfileStats struct {
	TotalLessonsCompleted int     `json:"totalLessonsCompleted"`
	TotalCorrectAnswers   int     `json:"totalCorrectAnswers"`
	Exp                   int     `json:"exp"`
	Level                 int     `json:"level"`
	LevelProgress         float64 `json:"levelProgress"`
}
