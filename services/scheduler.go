// services/scheduler.go
package services

import (
	"log"
	"time"

	"gaming-lobby-system/models"

	"github.com/go-co-op/gocron/v2"
)

// MaxRewardAttempts bounds retries before a task is parked as failed.
const MaxRewardAttempts = 5

// StartRewardTaskScheduler runs the outbox processor: every 30 seconds
// it picks up pending RewardTask rows (written in the same transaction
// as the final match's finalization) and runs the reward grantor.
// Failures are retried with a bounded attempt count and never surface
// to whoever finalized the match.
func (s *RewardService) StartRewardTaskScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func() {
			var tasks []models.RewardTask
			err := s.DB.Where("status = ? AND attempts < ?", models.RewardTaskStatusPending, MaxRewardAttempts).
				Order("created_at ASC").
				Limit(20).
				Find(&tasks).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, task := range tasks {
				s.processRewardTask(&task)
			}
		}),
	)
}

func (s *RewardService) processRewardTask(task *models.RewardTask) {
	task.Attempts++
	if err := s.GrantRewards(task.TournamentID); err != nil {
		task.LastError = err.Error()
		if task.Attempts >= MaxRewardAttempts {
			task.Status = models.RewardTaskStatusFailed
			log.Printf("[Scheduler] Reward task for tournament %s failed permanently after %d attempts: %v",
				task.TournamentID, task.Attempts, err)
		} else {
			log.Printf("[Scheduler] Reward task for tournament %s failed (attempt %d): %v",
				task.TournamentID, task.Attempts, err)
		}
	} else {
		now := time.Now()
		task.Status = models.RewardTaskStatusDone
		task.ProcessedAt = &now
		task.LastError = ""
		log.Printf("✅ Rewards granted for tournament %s", task.TournamentID)
	}

	if err := s.DB.Save(task).Error; err != nil {
		log.Printf("[Scheduler] Failed to update reward task %s: %v", task.ID, err)
	}
}
