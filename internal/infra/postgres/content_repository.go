package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"eduscroll-service/internal/domain"
)

// ContentRepository loads lesson content and progress records from Postgres.
type ContentRepository struct {
	pool *pgxpool.Pool
}

func NewContentRepository(pool *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{pool: pool}
}

func (r *ContentRepository) Categories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(description, '')
		FROM categories
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *ContentRepository) Lessons(ctx context.Context, categoryID int) ([]domain.Lesson, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), category_id
		FROM lessons
		WHERE category_id = $1
		ORDER BY id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}
	defer rows.Close()

	var lessons []domain.Lesson
	for rows.Next() {
		var l domain.Lesson
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.CategoryID); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func (r *ContentRepository) Materials(ctx context.Context, lessonID int) ([]domain.Material, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(title, '')
		FROM materials
		WHERE lesson_id = $1
		ORDER BY id`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load materials: %w", err)
	}
	defer rows.Close()

	var materials []domain.Material
	for rows.Next() {
		var m domain.Material
		if err := rows.Scan(&m.ID, &m.Title); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

func (r *ContentRepository) Paragraphs(ctx context.Context, materialID int) ([]domain.Paragraph, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, paragraph_number, header, content
		FROM paragraphs
		WHERE material_id = $1
		ORDER BY paragraph_number`, materialID)
	if err != nil {
		return nil, fmt.Errorf("load paragraphs: %w", err)
	}
	defer rows.Close()

	var paragraphs []domain.Paragraph
	for rows.Next() {
		var p domain.Paragraph
		if err := rows.Scan(&p.ID, &p.ParagraphNumber, &p.Header, &p.Content); err != nil {
			return nil, fmt.Errorf("scan paragraph: %w", err)
		}
		paragraphs = append(paragraphs, p)
	}
	return paragraphs, rows.Err()
}

func (r *ContentRepository) Questions(ctx context.Context, lessonID int) ([]domain.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, prompt, option_a, option_b, COALESCE(option_c, ''), COALESCE(option_d, ''),
		       correct_option, exp_gain
		FROM questions
		WHERE lesson_id = $1
		ORDER BY id`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Prompt, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectOption, &q.ExpGain); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *ContentRepository) Progress(ctx context.Context, userID int) ([]domain.ProgressRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT lesson_id, correct_answers
		FROM lesson_progress
		WHERE user_id = $1
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	defer rows.Close()

	var records []domain.ProgressRecord
	for rows.Next() {
		var rec domain.ProgressRecord
		if err := rows.Scan(&rec.LessonID, &rec.CorrectAnswers); err != nil {
			return nil, fmt.Errorf("scan progress record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *ContentRepository) SaveProgress(ctx context.Context, userID int, record domain.ProgressRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lesson_progress (user_id, lesson_id, correct_answers)
		VALUES ($1, $2, $3)`, userID, record.LessonID, record.CorrectAnswers)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}
