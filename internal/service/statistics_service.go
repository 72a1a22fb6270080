package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/internal/repository"
	"github.com/noah-isme/gema-exam-api/internal/scoring"
)

const maxLeaderboardSize = 100

var scoreBuckets = []string{"90-100", "80-89", "70-79", "60-69", "<60"}

// StatisticsService derives read-only views over completed attempts.
type StatisticsService interface {
	ExamStatistics(ctx context.Context, actor Actor, examID uint) (dto.ExamStatisticsResponse, error)
	Leaderboard(ctx context.Context, actor Actor, examID uint, limit int) ([]dto.LeaderboardEntry, error)
	Invalidate(ctx context.Context, examID uint)
}

type statisticsService struct {
	repo     repository.StatisticsRepository
	exams    repository.ExamRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewStatisticsService constructs the statistics service. cache may be nil.
func NewStatisticsService(repo repository.StatisticsRepository, exams repository.ExamRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StatisticsService {
	return &statisticsService{
		repo:     repo,
		exams:    exams,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "statistics_service").Logger(),
		tracer:   otel.Tracer(tracerPrefix + "statistics"),
		now:      time.Now,
	}
}

func statisticsKey(examID uint) string {
	return fmt.Sprintf("exam:stats:%d", examID)
}

func leaderboardKey(examID uint) string {
	return fmt.Sprintf("exam:leaderboard:%d", examID)
}

func (s *statisticsService) ExamStatistics(ctx context.Context, actor Actor, examID uint) (dto.ExamStatisticsResponse, error) {
	exam, err := loadManagedExam(ctx, s.exams, actor, examID)
	if err != nil {
		return dto.ExamStatisticsResponse{}, err
	}

	key := statisticsKey(exam.ID)
	ctx, span := s.tracer.Start(ctx, "statistics.exam", trace.WithAttributes(attribute.String("statistics.cache_key", key)))
	defer span.End()

	var response dto.ExamStatisticsResponse
	if s.readCache(ctx, key, &response) {
		span.SetAttributes(attribute.Bool("statistics.cache_hit", true))
		return response, nil
	}

	invited, err := s.repo.CountInvitedUsers(ctx, exam.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_invited_failed")
		return dto.ExamStatisticsResponse{}, apperror.Internal(err)
	}
	completed, err := s.repo.CountCompleted(ctx, exam.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_completed_failed")
		return dto.ExamStatisticsResponse{}, apperror.Internal(err)
	}
	results, err := s.repo.ListScoredResults(ctx, exam.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_results_failed")
		return dto.ExamStatisticsResponse{}, apperror.Internal(err)
	}

	response = s.summarize(exam, invited, completed, results)
	span.SetAttributes(
		attribute.Int64("statistics.invited", invited),
		attribute.Int("statistics.scored", response.Scored),
	)

	s.writeCache(ctx, key, response)
	return response, nil
}

func (s *statisticsService) summarize(exam models.Exam, invited, completed int64, results []models.Result) dto.ExamStatisticsResponse {
	response := dto.ExamStatisticsResponse{
		ExamID:         exam.ID,
		TotalInvited:   invited,
		TotalCompleted: completed,
		TotalMarks:     exam.TotalMarks(),
		PassingMarks:   exam.PassingMarks(),
		GeneratedAt:    s.now().UTC(),
	}
	if invited > 0 {
		response.CompletionRate = scoring.Round2(float64(completed) / float64(invited) * 100)
	}

	counts := make(map[string]int, len(scoreBuckets))
	sum := 0.0
	highest := math.Inf(-1)
	lowest := math.Inf(1)
	for _, result := range results {
		if result.Score == nil {
			continue
		}
		score := *result.Score
		response.Scored++
		sum += score
		highest = math.Max(highest, score)
		lowest = math.Min(lowest, score)

		if score >= response.PassingMarks {
			response.Passed++
		} else {
			response.Failed++
		}
		counts[bucketFor(scoring.Percentage(score, response.TotalMarks))]++
	}

	if response.Scored > 0 {
		response.AverageScore = scoring.Round2(sum / float64(response.Scored))
		response.HighestScore = highest
		response.LowestScore = lowest
	}

	response.Distribution = make([]dto.ScoreBucket, 0, len(scoreBuckets))
	for _, bucket := range scoreBuckets {
		response.Distribution = append(response.Distribution, dto.ScoreBucket{Range: bucket, Count: counts[bucket]})
	}
	return response
}

func bucketFor(percentage int) string {
	switch {
	case percentage >= 90:
		return "90-100"
	case percentage >= 80:
		return "80-89"
	case percentage >= 70:
		return "70-79"
	case percentage >= 60:
		return "60-69"
	default:
		return "<60"
	}
}

// Leaderboard ranks completed attempts by score. Attempts without a scored
// result or a user row are left out.
func (s *statisticsService) Leaderboard(ctx context.Context, actor Actor, examID uint, limit int) ([]dto.LeaderboardEntry, error) {
	exam, err := loadManagedExam(ctx, s.exams, actor, examID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}

	key := leaderboardKey(exam.ID)
	ctx, span := s.tracer.Start(ctx, "statistics.leaderboard", trace.WithAttributes(attribute.String("statistics.cache_key", key)))
	defer span.End()

	var entries []dto.LeaderboardEntry
	if !s.readCache(ctx, key, &entries) {
		enrollments, err := s.repo.ListCompletedWithUsers(ctx, exam.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "list_enrollments_failed")
			return nil, apperror.Internal(err)
		}
		results, err := s.repo.ListScoredResults(ctx, exam.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "list_results_failed")
			return nil, apperror.Internal(err)
		}

		entries = rankEntries(exam.TotalMarks(), enrollments, results)
		s.writeCache(ctx, key, entries)
	} else {
		span.SetAttributes(attribute.Bool("statistics.cache_hit", true))
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func rankEntries(totalMarks float64, enrollments []models.Enrollment, results []models.Result) []dto.LeaderboardEntry {
	scores := make(map[uint]float64, len(results))
	for _, result := range results {
		if result.Score != nil {
			scores[result.UserID] = *result.Score
		}
	}

	entries := make([]dto.LeaderboardEntry, 0, len(enrollments))
	for _, enrollment := range enrollments {
		score, ok := scores[enrollment.UserID]
		if !ok || enrollment.User == nil {
			continue
		}
		entries = append(entries, dto.LeaderboardEntry{
			UserID:      enrollment.UserID,
			Name:        enrollment.User.Name,
			Email:       enrollment.User.Email,
			Score:       score,
			Percentage:  scoring.Percentage(score, totalMarks),
			SubmittedAt: enrollment.Metadata.Data().SubmittedAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		switch {
		case a.SubmittedAt != nil && b.SubmittedAt != nil && !a.SubmittedAt.Equal(*b.SubmittedAt):
			return a.SubmittedAt.Before(*b.SubmittedAt)
		case a.SubmittedAt != nil && b.SubmittedAt == nil:
			return true
		case a.SubmittedAt == nil && b.SubmittedAt != nil:
			return false
		}
		return a.UserID < b.UserID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Invalidate drops both cached views of an exam.
func (s *statisticsService) Invalidate(ctx context.Context, examID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statisticsKey(examID), leaderboardKey(examID)).Err(); err != nil {
		loggerFor(ctx, s.logger).Warn().Err(err).Uint("exam_id", examID).Msg("failed to invalidate statistics cache")
	}
}

func (s *statisticsService) readCache(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}
	cached, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			loggerFor(ctx, s.logger).Warn().Err(err).Str("key", key).Msg("failed to read statistics cache")
		}
		return false
	}
	return json.Unmarshal(cached, target) == nil
}

func (s *statisticsService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		loggerFor(ctx, s.logger).Warn().Err(err).Str("key", key).Msg("failed to store statistics cache")
	}
}
