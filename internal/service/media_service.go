package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/observability"
	"github.com/noah-isme/gema-exam-api/pkg/cloudinary"
)

var (
	// ErrMediaTooLarge indicates the payload exceeded the configured limit.
	ErrMediaTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrMediaTypeNotAllowed indicates the sniffed content is not an image.
	ErrMediaTypeNotAllowed = errors.New("only image uploads are allowed")
	// ErrMediaStorageDisabled indicates no media backend is configured.
	ErrMediaStorageDisabled = errors.New("media storage is not configured")
)

// MediaStorage persists question media.
type MediaStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (cloudinary.Asset, error)
}

// MediaService validates and stores option images referenced by questions.
type MediaService interface {
	Upload(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.MediaUploadResponse, error)
}

type mediaService struct {
	storage MediaStorage
	maxSize int64
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewMediaService constructs the media service. storage may be nil when no
// backend is configured; uploads are then refused.
func NewMediaService(storage MediaStorage, maxSizeMB int, logger zerolog.Logger) MediaService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &mediaService{
		storage: storage,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		logger:  logger.With().Str("component", "media_service").Logger(),
		tracer:  otel.Tracer(tracerPrefix + "media"),
	}
}

func (s *mediaService) Upload(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.MediaUploadResponse, error) {
	if !actor.IsAdmin() {
		return dto.MediaUploadResponse{}, apperror.Forbidden("Only administrators can upload media")
	}

	ctx, span := s.tracer.Start(ctx, "media.upload", trace.WithAttributes(attribute.Int64("media.max_bytes", s.maxSize)))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.MediaUploadLatency().Observe(time.Since(start).Seconds())
	}()

	if s.storage == nil {
		span.SetStatus(codes.Error, "storage disabled")
		return dto.MediaUploadResponse{}, ErrMediaStorageDisabled
	}
	if file == nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.MediaUploadResponse{}, apperror.BadRequest("file is required")
	}
	span.SetAttributes(
		attribute.String("media.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("media.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		return dto.MediaUploadResponse{}, s.reject(span, "size", ErrMediaTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return dto.MediaUploadResponse{}, apperror.Internal(err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.MediaUploadResponse{}, apperror.Internal(err)
	}
	if int64(buf.Len()) > s.maxSize {
		return dto.MediaUploadResponse{}, s.reject(span, "size", ErrMediaTooLarge)
	}

	detected := mimetype.Detect(buf.Bytes())
	span.SetAttributes(attribute.String("media.detected_mime", detected.String()))
	if !strings.HasPrefix(detected.String(), "image/") {
		return dto.MediaUploadResponse{}, s.reject(span, "type", ErrMediaTypeNotAllowed)
	}

	asset, err := s.storage.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.MediaUploads().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		loggerFor(ctx, s.logger).Error().Err(err).Str("file", file.Filename).Msg("media upload failed")
		return dto.MediaUploadResponse{}, apperror.Internal(err)
	}

	observability.MediaUploads().WithLabelValues("stored").Inc()
	span.SetStatus(codes.Ok, "stored")

	return dto.MediaUploadResponse{
		ID:          asset.PublicID,
		URL:         asset.URL,
		ContentType: detected.String(),
		Size:        int64(buf.Len()),
	}, nil
}

func (s *mediaService) reject(span trace.Span, reason string, err error) error {
	observability.MediaUploads().WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	return err
}
