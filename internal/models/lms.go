package models

import (
	"time"

	"github.com/google/uuid"
)

// Course is a class owned by a teacher. Students join with the join code.
type Course struct {
	ID           uuid.UUID `json:"id"`
	TeacherID    uuid.UUID `json:"teacherId"`
	Name         string    `json:"name"`
	Subject      string    `json:"subject"`
	Description  *string   `json:"description,omitempty"`
	JoinCode     string    `json:"joinCode"`
	StudentCount int       `json:"studentCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Assignment struct {
	ID           uuid.UUID  `json:"id"`
	CourseID     uuid.UUID  `json:"courseId"`
	Title        string     `json:"title"`
	Instructions string     `json:"instructions"`
	DueAt        *time.Time `json:"dueAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// SubmissionKind distinguishes what a student handed in.
type SubmissionKind string

const (
	SubmissionAssignment SubmissionKind = "assignment"
	SubmissionAnalysis   SubmissionKind = "analysis"
	SubmissionCaseStudy  SubmissionKind = "case-study"
)

func (k SubmissionKind) Valid() bool {
	return k == SubmissionAssignment || k == SubmissionAnalysis || k == SubmissionCaseStudy
}

// SubmissionStatus tracks the async grading lifecycle.
type SubmissionStatus string

const (
	SubmissionPending SubmissionStatus = "pending"
	SubmissionGraded  SubmissionStatus = "graded"
	SubmissionFailed  SubmissionStatus = "failed"
)

// Submission is server-owned; the client only appends new ones and reads grades.
type Submission struct {
	ID           uuid.UUID        `json:"id"`
	CourseID     uuid.UUID        `json:"courseId"`
	AssignmentID *uuid.UUID       `json:"assignmentId,omitempty"`
	StudentID    uuid.UUID        `json:"studentId"`
	Kind         SubmissionKind   `json:"kind"`
	Content      string           `json:"content"`
	Status       SubmissionStatus `json:"status"`
	Score        *int             `json:"score,omitempty"`
	LetterGrade  *string          `json:"letterGrade,omitempty"`
	Feedback     *string          `json:"feedback,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	GradedAt     *time.Time       `json:"gradedAt,omitempty"`
}

// Journalist is a case-study gallery entry.
type Journalist struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Outlet           string    `json:"outlet"`
	Specialty        string    `json:"specialty"`
	CredibilityScore int       `json:"credibilityScore"`
	Bio              string    `json:"bio"`
	PhotoURL         *string   `json:"photoUrl,omitempty"`
}

type CreateCourseRequest struct {
	TeacherID   uuid.UUID `json:"teacher_id"`
	Name        string    `json:"name"`
	Subject     string    `json:"subject"`
	Description *string   `json:"description"`
}

type EnrollRequest struct {
	StudentID uuid.UUID `json:"student_id"`
	JoinCode  string    `json:"join_code"`
}

type CreateAssignmentRequest struct {
	CourseID     uuid.UUID  `json:"course_id"`
	Title        string     `json:"title"`
	Instructions string     `json:"instructions"`
	DueAt        *time.Time `json:"due_at"`
}

type SubmitRequest struct {
	CourseID     uuid.UUID      `json:"class_id"`
	AssignmentID *uuid.UUID     `json:"assignment_id"`
	StudentID    uuid.UUID      `json:"student_id"`
	Kind         SubmissionKind `json:"kind"`
	Content      string         `json:"content"`
}

type CaseStudySubmitRequest struct {
	StudentID    uuid.UUID `json:"student_id"`
	CourseID     uuid.UUID `json:"class_id"`
	JournalistID uuid.UUID `json:"journalist_id"`
	Content      string    `json:"content"`
}

type CoursesResponse struct {
	Courses []Course `json:"courses"`
}

type JournalistsResponse struct {
	Status      string       `json:"status"`
	Count       int          `json:"count"`
	Journalists []Journalist `json:"journalists"`
}
