package services

import (
	"time"

	"fantasy-sports-system/models"
	"fantasy-sports-system/utils"

	"github.com/go-co-op/gocron/v2"
)

// StartAutoLockScheduler locks upcoming matches whose start time has passed,
// checking every minute. Returns the scheduler so main can shut it down.
func (s *MatchService) StartAutoLockScheduler() gocron.Scheduler {
	sched, err := gocron.NewScheduler()
	if err != nil {
		utils.Log.Errorw("scheduler init failed", "error", err)
		return nil
	}
	sched.Start()

	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			now := time.Now().UTC()
			result := s.DB.Model(&models.Match{}).
				Where("status = ? AND start_time <= ?", models.MatchUpcoming, now).
				Updates(map[string]interface{}{"status": models.MatchLocked, "is_editable": false})
			if result.Error != nil {
				utils.Log.Errorw("auto-lock pass failed", "error", result.Error)
				return
			}
			if result.RowsAffected > 0 {
				utils.Log.Infow("auto-locked matches", "count", result.RowsAffected)
			}
		}),
	)
	if err != nil {
		utils.Log.Errorw("auto-lock job registration failed", "error", err)
	}
	return sched
}
