package memory

import (
	"context"
	"sync"

	"eduscroll-service/internal/domain"
)

// ContentFixture seeds a StaticContentSource (useful for tests/demos).
type ContentFixture struct {
	Categories []domain.Category
	Lessons    map[int][]domain.Lesson    // keyed by category ID
	Materials  map[int][]domain.Material  // keyed by lesson ID, paragraphs not attached
	Paragraphs map[int][]domain.Paragraph // keyed by material ID
	Questions  map[int][]domain.Question  // keyed by lesson ID
}

// StaticContentSource serves fixed lesson content from memory and keeps
// submitted progress records per user.
type StaticContentSource struct {
	fixture ContentFixture

	mu       sync.RWMutex
	progress map[int][]domain.ProgressRecord
}

func NewStaticContentSource(fixture ContentFixture) *StaticContentSource {
	return &StaticContentSource{
		fixture:  fixture,
		progress: make(map[int][]domain.ProgressRecord),
	}
}

func (s *StaticContentSource) Categories(_ context.Context) ([]domain.Category, error) {
	return s.fixture.Categories, nil
}

func (s *StaticContentSource) Lessons(_ context.Context, categoryID int) ([]domain.Lesson, error) {
	return s.fixture.Lessons[categoryID], nil
}

func (s *StaticContentSource) Materials(_ context.Context, lessonID int) ([]domain.Material, error) {
	materials, ok := s.fixture.Materials[lessonID]
	if !ok {
		return nil, domain.ErrLessonNotFound
	}
	return materials, nil
}

func (s *StaticContentSource) Paragraphs(_ context.Context, materialID int) ([]domain.Paragraph, error) {
	return s.fixture.Paragraphs[materialID], nil
}

func (s *StaticContentSource) Questions(_ context.Context, lessonID int) ([]domain.Question, error) {
	questions, ok := s.fixture.Questions[lessonID]
	if !ok {
		return nil, domain.ErrLessonNotFound
	}
	return questions, nil
}

func (s *StaticContentSource) Progress(_ context.Context, userID int) ([]domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.progress[userID]
	out := make([]domain.ProgressRecord, len(records))
	copy(out, records)
	return out, nil
}

func (s *StaticContentSource) SaveProgress(_ context.Context, userID int, record domain.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[userID] = append(s.progress[userID], record)
	return nil
}
