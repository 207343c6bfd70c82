package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"datahalo/internal/middleware"
	"datahalo/internal/models"
	"datahalo/internal/repository"
)

const (
	journalistsCacheKey = "cache:journalists"
	journalistsCacheTTL = 10 * time.Minute
	gradingQueue        = "queue:case-study-grading"
)

// GradeJob is the payload pushed onto the grading queue.
type GradeJob struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	StudentID    uuid.UUID `json:"student_id"`
}

type LMSHandler struct {
	courseRepo     *repository.CourseRepo
	assignmentRepo *repository.AssignmentRepo
	submissionRepo *repository.SubmissionRepo
	journalistRepo *repository.JournalistRepo
	redis          *redis.Client
}

func NewLMSHandler(
	courseRepo *repository.CourseRepo,
	assignmentRepo *repository.AssignmentRepo,
	submissionRepo *repository.SubmissionRepo,
	journalistRepo *repository.JournalistRepo,
	redisClient *redis.Client,
) *LMSHandler {
	return &LMSHandler{
		courseRepo:     courseRepo,
		assignmentRepo: assignmentRepo,
		submissionRepo: submissionRepo,
		journalistRepo: journalistRepo,
		redis:          redisClient,
	}
}

func (h *LMSHandler) StudentCourses(w http.ResponseWriter, r *http.Request) {
	uid, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user ID", r))
		return
	}

	courses, err := h.courseRepo.ListByStudent(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list courses", r))
		return
	}
	if courses == nil {
		courses = []models.Course{}
	}

	writeJSON(w, http.StatusOK, models.CoursesResponse{Courses: courses})
}

func (h *LMSHandler) TeacherCourses(w http.ResponseWriter, r *http.Request) {
	uid, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user ID", r))
		return
	}

	courses, err := h.courseRepo.ListByTeacher(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list courses", r))
		return
	}
	if courses == nil {
		courses = []models.Course{}
	}

	writeJSON(w, http.StatusOK, models.CoursesResponse{Courses: courses})
}

func (h *LMSHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if middleware.GetUserRole(r.Context()) != string(models.RoleTeacher) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Only teachers can create classes", r))
		return
	}

	name := strings.TrimSpace(req.Name)
	subject := strings.TrimSpace(req.Subject)
	if name == "" || subject == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Name and subject are required", r))
		return
	}

	course := &models.Course{
		TeacherID:   middleware.GetUserID(r.Context()),
		Name:        name,
		Subject:     subject,
		Description: req.Description,
	}
	if err := h.courseRepo.Create(r.Context(), course); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create class", r))
		return
	}

	writeJSON(w, http.StatusCreated, course)
}

func (h *LMSHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req models.EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.JoinCode))
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "join_code is required", r))
		return
	}

	course, err := h.courseRepo.GetByJoinCode(r.Context(), code)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No class with that join code", r))
		return
	}

	studentID := middleware.GetUserID(r.Context())
	if err := h.courseRepo.Enroll(r.Context(), course.ID, studentID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enroll", r))
		return
	}

	writeJSON(w, http.StatusOK, course)
}

func (h *LMSHandler) GetClass(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid class ID", r))
		return
	}

	course, err := h.courseRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Class not found", r))
		return
	}

	writeJSON(w, http.StatusOK, course)
}

func (h *LMSHandler) CourseAssignments(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid course ID", r))
		return
	}

	assignments, err := h.assignmentRepo.ListByCourse(r.Context(), courseID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list assignments", r))
		return
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"assignments": assignments})
}

func (h *LMSHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if middleware.GetUserRole(r.Context()) != string(models.RoleTeacher) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Only teachers can create assignments", r))
		return
	}

	title := strings.TrimSpace(req.Title)
	if req.CourseID == uuid.Nil || title == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "course_id and title are required", r))
		return
	}

	course, err := h.courseRepo.GetByID(r.Context(), req.CourseID)
	if err != nil || course.TeacherID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Class not found", r))
		return
	}

	assignment := &models.Assignment{
		CourseID:     req.CourseID,
		Title:        title,
		Instructions: req.Instructions,
		DueAt:        req.DueAt,
	}
	if err := h.assignmentRepo.Create(r.Context(), assignment); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create assignment", r))
		return
	}

	writeJSON(w, http.StatusCreated, assignment)
}

// Submit accepts an assignment or graded-analysis submission. A class must be
// selected and the content non-empty; everything else is server-side.
func (h *LMSHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.CourseID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "A class must be selected", r))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Submission content is required", r))
		return
	}
	if req.Kind == "" {
		req.Kind = models.SubmissionAssignment
	}
	if !req.Kind.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid submission kind", r))
		return
	}

	studentID := middleware.GetUserID(r.Context())
	enrolled, err := h.courseRepo.IsEnrolled(r.Context(), req.CourseID, studentID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to verify enrollment", r))
		return
	}
	if !enrolled {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "You are not enrolled in that class", r))
		return
	}

	submission := &models.Submission{
		CourseID:     req.CourseID,
		AssignmentID: req.AssignmentID,
		StudentID:    studentID,
		Kind:         req.Kind,
		Content:      req.Content,
	}
	if err := h.submissionRepo.Create(r.Context(), submission); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to submit", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status":     "success",
		"submission": submission,
	})
}

func (h *LMSHandler) StudentSubmissions(w http.ResponseWriter, r *http.Request) {
	uid, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user ID", r))
		return
	}

	if uid != middleware.GetUserID(r.Context()) &&
		middleware.GetUserRole(r.Context()) != string(models.RoleTeacher) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	submissions, err := h.submissionRepo.ListByStudent(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list submissions", r))
		return
	}
	if submissions == nil {
		submissions = []models.Submission{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"submissions": submissions})
}

// Journalists serves the case-study gallery through a redis cache: the list
// changes rarely and is hit from every gallery page load.
func (h *LMSHandler) Journalists(w http.ResponseWriter, r *http.Request) {
	if cached, err := h.redis.Get(r.Context(), journalistsCacheKey).Bytes(); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(cached)
		return
	}

	journalists, err := h.journalistRepo.ListAll(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list journalists", r))
		return
	}
	if journalists == nil {
		journalists = []models.Journalist{}
	}

	resp := models.JournalistsResponse{
		Status:      "success",
		Count:       len(journalists),
		Journalists: journalists,
	}

	if body, err := json.Marshal(resp); err == nil {
		if err := h.redis.Set(r.Context(), journalistsCacheKey, body, journalistsCacheTTL).Err(); err != nil {
			log.Printf("failed to cache journalists list: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// SubmitCaseStudy stores the write-up as pending and queues it for async
// grading by the worker pool.
func (h *LMSHandler) SubmitCaseStudy(w http.ResponseWriter, r *http.Request) {
	var req models.CaseStudySubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.CourseID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "A class must be selected", r))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Case study content is required", r))
		return
	}
	if req.JournalistID != uuid.Nil {
		if _, err := h.journalistRepo.GetByID(r.Context(), req.JournalistID); err != nil {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Journalist not found", r))
			return
		}
	}

	studentID := middleware.GetUserID(r.Context())
	enrolled, err := h.courseRepo.IsEnrolled(r.Context(), req.CourseID, studentID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to verify enrollment", r))
		return
	}
	if !enrolled {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "You are not enrolled in that class", r))
		return
	}

	submission := &models.Submission{
		CourseID:  req.CourseID,
		StudentID: studentID,
		Kind:      models.SubmissionCaseStudy,
		Content:   req.Content,
	}
	if err := h.submissionRepo.Create(r.Context(), submission); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to submit case study", r))
		return
	}

	job, _ := json.Marshal(GradeJob{SubmissionID: submission.ID, StudentID: studentID})
	if err := h.redis.LPush(r.Context(), gradingQueue, string(job)).Err(); err != nil {
		log.Printf("failed to enqueue grading for submission %s: %v", submission.ID, err)
		h.submissionRepo.MarkFailed(r.Context(), submission.ID, "Grading queue unavailable")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue grading", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":        "success",
		"submission_id": submission.ID,
	})
}
