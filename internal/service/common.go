package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/internal/repository"
	"github.com/noah-isme/gema-exam-api/internal/requestctx"
)

const tracerPrefix = "github.com/noah-isme/gema-exam-api/internal/service/"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID       uint
	Role     string
	EntityID uint
}

// IsAdmin reports whether the actor may manage exams.
func (a Actor) IsAdmin() bool {
	return models.IsAdmin(strings.ToUpper(a.Role))
}

// CanManage reports whether the actor administers the exam's entity.
// SUPERADMIN accounts are not bound to an entity.
func (a Actor) CanManage(exam models.Exam) bool {
	role := strings.ToUpper(a.Role)
	if role == models.RoleSuperAdmin {
		return true
	}
	return role == models.RoleAdmin && a.EntityID == exam.EntityID
}

// MediaLinker builds retrieval URLs for stored media ids.
type MediaLinker interface {
	MediaLink(id string) string
}

// StatisticsInvalidator drops cached statistics of an exam.
type StatisticsInvalidator interface {
	Invalidate(ctx context.Context, examID uint)
}

// storeError maps a repository failure onto the error taxonomy.
func storeError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if repository.IsNotFound(err) {
		return apperror.NotFound(notFound)
	}
	return apperror.Internal(err)
}

func loggerFor(ctx context.Context, base zerolog.Logger) *zerolog.Logger {
	logger := requestctx.Logger(ctx, base)
	return &logger
}

func loadManagedExam(ctx context.Context, exams repository.ExamRepository, actor Actor, examID uint) (models.Exam, error) {
	exam, err := exams.GetByID(ctx, examID)
	if err != nil {
		return models.Exam{}, storeError(err, "Exam not found")
	}
	if !actor.CanManage(exam) {
		return models.Exam{}, apperror.Forbidden("You are not allowed to manage this exam")
	}
	return exam, nil
}

func uintPtr(value uint) *uint {
	return &value
}
