package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// singlePendingResumption keeps at most one PENDING resumption request per
// enrollment. Partial indexes are understood by both postgres and sqlite.
const singlePendingResumption = `CREATE UNIQUE INDEX IF NOT EXISTS idx_resumption_single_pending
	ON resumption_requests (enrollment_id) WHERE status = 'PENDING'`

// AutoMigrate creates or updates every table owned by the service.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Exam{},
		&models.Question{},
		&models.Enrollment{},
		&models.Submission{},
		&models.Result{},
		&models.ResumptionRequest{},
		&models.AdmissionForm{},
		&models.AdmissionFormSubmission{},
		&models.ActivityLog{},
	); err != nil {
		return err
	}
	if err := db.Exec(singlePendingResumption).Error; err != nil {
		return fmt.Errorf("create pending resumption index: %w", err)
	}
	return nil
}
