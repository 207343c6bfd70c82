package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"datahalo/internal/models"
)

type CourseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) *CourseRepo {
	return &CourseRepo{pool: pool}
}

const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newJoinCode() string {
	code := make([]byte, 6)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(joinCodeAlphabet))))
		code[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(code)
}

func (r *CourseRepo) Create(ctx context.Context, c *models.Course) error {
	c.ID = uuid.New()

	// Retry on join-code collision; 32^6 codes make more than two retries
	// effectively unreachable.
	for attempt := 0; attempt < 5; attempt++ {
		c.JoinCode = newJoinCode()
		err := r.pool.QueryRow(ctx,
			`INSERT INTO courses (id, teacher_id, name, subject, description, join_code)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
			c.ID, c.TeacherID, c.Name, c.Subject, c.Description, c.JoinCode,
		).Scan(&c.CreatedAt)

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "courses_join_code_key" {
			continue
		}
		return err
	}
	return errors.New("could not allocate a unique join code")
}

func (r *CourseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	return r.scanOne(ctx, "WHERE c.id = $1", id)
}

func (r *CourseRepo) GetByJoinCode(ctx context.Context, code string) (*models.Course, error) {
	return r.scanOne(ctx, "WHERE c.join_code = $1", code)
}

func (r *CourseRepo) scanOne(ctx context.Context, where string, arg interface{}) (*models.Course, error) {
	c := &models.Course{}
	query := `SELECT c.id, c.teacher_id, c.name, c.subject, c.description, c.join_code, c.created_at,
		(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id)
		FROM courses c ` + where

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.TeacherID, &c.Name, &c.Subject, &c.Description, &c.JoinCode,
		&c.CreatedAt, &c.StudentCount,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CourseRepo) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]models.Course, error) {
	query := `SELECT c.id, c.teacher_id, c.name, c.subject, c.description, c.join_code, c.created_at,
		(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id)
		FROM courses c WHERE c.teacher_id = $1 ORDER BY c.created_at DESC`
	return r.scanMany(ctx, query, teacherID)
}

func (r *CourseRepo) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Course, error) {
	query := `SELECT c.id, c.teacher_id, c.name, c.subject, c.description, c.join_code, c.created_at,
		(SELECT COUNT(*) FROM enrollments e2 WHERE e2.course_id = c.id)
		FROM courses c
		JOIN enrollments e ON e.course_id = c.id
		WHERE e.student_id = $1 ORDER BY e.enrolled_at DESC`
	return r.scanMany(ctx, query, studentID)
}

func (r *CourseRepo) scanMany(ctx context.Context, query string, arg interface{}) ([]models.Course, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.TeacherID, &c.Name, &c.Subject, &c.Description,
			&c.JoinCode, &c.CreatedAt, &c.StudentCount); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// Enroll is idempotent: enrolling twice in the same course is not an error.
func (r *CourseRepo) Enroll(ctx context.Context, courseID, studentID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO enrollments (course_id, student_id) VALUES ($1, $2)
		 ON CONFLICT (course_id, student_id) DO NOTHING`,
		courseID, studentID)
	return err
}

func (r *CourseRepo) IsEnrolled(ctx context.Context, courseID, studentID uuid.UUID) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		"SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2",
		courseID, studentID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
