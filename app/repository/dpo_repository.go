package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/models"
)

// dpoQueueRepository implements the DPOQueueRepository interface
type dpoQueueRepository struct {
	db *gorm.DB
}

// NewDPOQueueRepository creates a new review queue repository instance
func NewDPOQueueRepository(db *gorm.DB) DPOQueueRepository {
	return &dpoQueueRepository{db: db}
}

// Create adds a new task to the queue
func (r *dpoQueueRepository) Create(task *models.DPOTask) error {
	return r.db.Create(task).Error
}

// GetByID retrieves a task by its ID
func (r *dpoQueueRepository) GetByID(id uint) (*models.DPOTask, error) {
	var task models.DPOTask
	err := r.db.First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListOpen returns open tasks, oldest first
func (r *dpoQueueRepository) ListOpen(limit int) ([]models.DPOTask, error) {
	if limit <= 0 {
		limit = 50
	}
	var tasks []models.DPOTask
	err := r.db.Where("status = ?", models.DPOTaskOpen).
		Order("created_at ASC").Limit(limit).Find(&tasks).Error
	return tasks, err
}

// Claim assigns an open task to a staff user. The status predicate makes two
// concurrent claims resolve to a single winner.
func (r *dpoQueueRepository) Claim(taskID, userID uint) (bool, error) {
	res := r.db.Model(&models.DPOTask{}).
		Where("id = ? AND status = ?", taskID, models.DPOTaskOpen).
		Updates(map[string]interface{}{
			"status":     models.DPOTaskClaimed,
			"claimed_by": userID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Resolve closes a claimed task with a resolution note
func (r *dpoQueueRepository) Resolve(taskID, userID uint, resolution string) (bool, error) {
	now := time.Now()
	res := r.db.Model(&models.DPOTask{}).
		Where("id = ? AND status = ? AND claimed_by = ?", taskID, models.DPOTaskClaimed, userID).
		Updates(map[string]interface{}{
			"status":      models.DPOTaskResolved,
			"resolved_at": &now,
			"resolution":  resolution,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Escalate records an escalation for a task
func (r *dpoQueueRepository) Escalate(taskID, userID uint, reason string) error {
	return r.db.Create(&models.Escalation{
		TaskID:   taskID,
		RaisedBy: userID,
		Reason:   reason,
	}).Error
}
