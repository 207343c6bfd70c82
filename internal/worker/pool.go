package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"datahalo/internal/handlers"
	"datahalo/internal/models"
	"datahalo/internal/repository"
)

const gradingQueue = "queue:case-study-grading"

type grader interface {
	GradeSubmission(ctx context.Context, content string) (int, string, string, error)
}

// Pool grades queued case-study submissions in the background and publishes
// the outcome on the submitting user's pub/sub channel.
type Pool struct {
	redis       *redis.Client
	grader      grader
	submissions *repository.SubmissionRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, g grader, submissions *repository.SubmissionRepo, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		grader:      g,
		submissions: submissions,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d grading workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Grading worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, 30*time.Second, gradingQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job handlers.GradeJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Grading worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Claim the job so a redelivery can't be graded twice.
		lockKey := fmt.Sprintf("grade_lock:%s", job.SubmissionID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue
		}

		log.Printf("Grading worker %d: grading submission %s", id, job.SubmissionID)
		p.grade(ctx, job)

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) grade(ctx context.Context, job handlers.GradeJob) {
	submission, err := p.submissions.GetByID(ctx, job.SubmissionID)
	if err != nil {
		log.Printf("Grading failed: submission %s not found: %v", job.SubmissionID, err)
		return
	}

	score, letterGrade, feedback, err := p.grader.GradeSubmission(ctx, submission.Content)
	if err != nil {
		log.Printf("Grading failed for submission %s: %v", job.SubmissionID, err)
		p.submissions.MarkFailed(ctx, job.SubmissionID, "Automatic grading failed")
		p.publish(ctx, job, models.GradeEvent{
			SubmissionID: job.SubmissionID,
			Status:       models.SubmissionFailed,
		})
		return
	}

	if err := p.submissions.SetGrade(ctx, job.SubmissionID, score, letterGrade, feedback); err != nil {
		log.Printf("Failed to store grade for submission %s: %v", job.SubmissionID, err)
		return
	}

	p.publish(ctx, job, models.GradeEvent{
		SubmissionID: job.SubmissionID,
		Status:       models.SubmissionGraded,
		Score:        &score,
		LetterGrade:  &letterGrade,
	})
}

func (p *Pool) publish(ctx context.Context, job handlers.GradeJob, event models.GradeEvent) {
	msg := models.WSMessage{Type: "grade_update", Payload: event}
	data, _ := json.Marshal(msg)
	channel := "user_updates:" + job.StudentID.String()
	if err := p.redis.Publish(ctx, channel, string(data)).Err(); err != nil {
		log.Printf("Failed to publish grade event for submission %s: %v", job.SubmissionID, err)
	}
}
