package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/internal/observability"
	"github.com/noah-isme/gema-exam-api/internal/repository"
)

// LinkConfig controls the links placed in outgoing mail.
type LinkConfig struct {
	FrontendURL   string
	InvitationTTL time.Duration
}

// enroller provisions the Enrollment + Result pair shared by invitations and
// admission approvals. Both steps are find-or-create.
type enroller struct {
	enrollments repository.EnrollmentRepository
	results     repository.ResultRepository
}

func (e enroller) enroll(ctx context.Context, examID, userID uint, status string, metadata models.EnrollmentMetadata) (models.Enrollment, bool, error) {
	enrollment := models.Enrollment{
		ExamID:   examID,
		UserID:   userID,
		Status:   status,
		Metadata: datatypes.NewJSONType(metadata),
	}
	created, err := e.enrollments.FindOrCreate(ctx, &enrollment)
	if err != nil {
		return models.Enrollment{}, false, fmt.Errorf("enroll user %d: %w", userID, err)
	}
	if _, err := e.results.FindOrCreate(ctx, userID, examID); err != nil {
		return models.Enrollment{}, false, fmt.Errorf("create result shell for user %d: %w", userID, err)
	}
	if created {
		observability.EnrollmentTransitions().WithLabelValues(status).Inc()
	}
	return enrollment, created, nil
}

// linkBuilder renders frontend links and issues password-setup tokens.
type linkBuilder struct {
	users  repository.UserRepository
	config LinkConfig
	now    func() time.Time
}

func (l linkBuilder) examLink(examID uint) string {
	return fmt.Sprintf("%s/exams/%d", strings.TrimRight(l.config.FrontendURL, "/"), examID)
}

func (l linkBuilder) publicFormLink(token string) string {
	return fmt.Sprintf("%s/admission/%s", strings.TrimRight(l.config.FrontendURL, "/"), url.PathEscape(token))
}

// passwordSetupLink stores a fresh invitation token on the user and returns the link.
func (l linkBuilder) passwordSetupLink(ctx context.Context, user *models.User) (string, error) {
	ttl := l.config.InvitationTTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	token := uuid.NewString()
	expiresAt := l.now().UTC().Add(ttl)
	user.InvitationToken = &token
	user.InvitationExpiresAt = &expiresAt
	if err := l.users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("store invitation token: %w", err)
	}

	query := url.Values{"token": []string{token}}
	return fmt.Sprintf("%s/set-password?%s", strings.TrimRight(l.config.FrontendURL, "/"), query.Encode()), nil
}
