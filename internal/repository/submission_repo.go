package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"datahalo/internal/models"
)

type SubmissionRepo struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

func (r *SubmissionRepo) Create(ctx context.Context, s *models.Submission) error {
	s.ID = uuid.New()
	s.Status = models.SubmissionPending
	query := `INSERT INTO submissions (id, course_id, assignment_id, student_id, kind, content, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		s.ID, s.CourseID, s.AssignmentID, s.StudentID, s.Kind, s.Content, s.Status,
	).Scan(&s.CreatedAt)
}

func (r *SubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	s := &models.Submission{}
	query := `SELECT id, course_id, assignment_id, student_id, kind, content, status,
		score, letter_grade, feedback, created_at, graded_at
		FROM submissions WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.CourseID, &s.AssignmentID, &s.StudentID, &s.Kind, &s.Content,
		&s.Status, &s.Score, &s.LetterGrade, &s.Feedback, &s.CreatedAt, &s.GradedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SubmissionRepo) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Submission, error) {
	query := `SELECT id, course_id, assignment_id, student_id, kind, content, status,
		score, letter_grade, feedback, created_at, graded_at
		FROM submissions WHERE student_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []models.Submission
	for rows.Next() {
		var s models.Submission
		if err := rows.Scan(&s.ID, &s.CourseID, &s.AssignmentID, &s.StudentID, &s.Kind,
			&s.Content, &s.Status, &s.Score, &s.LetterGrade, &s.Feedback,
			&s.CreatedAt, &s.GradedAt); err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}

// SetGrade records the worker pool's grading outcome.
func (r *SubmissionRepo) SetGrade(ctx context.Context, id uuid.UUID, score int, letterGrade, feedback string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE submissions SET status = 'graded', score = $1, letter_grade = $2,
		 feedback = $3, graded_at = NOW() WHERE id = $4`,
		score, letterGrade, feedback, id)
	return err
}

func (r *SubmissionRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE submissions SET status = 'failed', feedback = $1 WHERE id = $2",
		reason, id)
	return err
}
