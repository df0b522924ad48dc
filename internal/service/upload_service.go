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

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/observability"
	"github.com/taskguru/taskguru-api/internal/repository"
	"github.com/taskguru/taskguru-api/pkg/cloudinary"
)

// maxUploadBytes caps file size at 8 MiB.
const maxUploadBytes = 8 << 20

// Upload errors surfaced to handlers.
var (
	ErrUploadsUnavailable = errors.New("uploads are not configured")
	ErrUploadTooLarge     = errors.New("file exceeds the maximum allowed size")
	ErrUploadNotImage     = errors.New("file is not a supported image type")
	ErrUploadInvalidKind  = errors.New("unknown upload kind")
)

// UploadService stores user images and records their metadata.
type UploadService interface {
	Upload(ctx context.Context, userUID, kind string, header *multipart.FileHeader) (dto.UploadResponse, error)
	ListMine(ctx context.Context, userUID string, limit int) ([]dto.UploadResponse, error)
}

// ImageStore abstracts the Cloudinary client.
type ImageStore interface {
	Upload(ctx context.Context, name string, reader io.Reader) (cloudinary.UploadResult, error)
}

type uploadService struct {
	store   ImageStore
	uploads repository.UploadRepository
	logger  zerolog.Logger
}

// NewUploadService builds the upload service. store may be nil when
// Cloudinary is not configured.
func NewUploadService(store ImageStore, uploads repository.UploadRepository, logger zerolog.Logger) UploadService {
	return &uploadService{
		store:   store,
		uploads: uploads,
		logger:  logger.With().Str("component", "upload_service").Logger(),
	}
}

func (s *uploadService) Upload(ctx context.Context, userUID, kind string, header *multipart.FileHeader) (dto.UploadResponse, error) {
	if s.store == nil {
		return dto.UploadResponse{}, ErrUploadsUnavailable
	}

	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = models.UploadKindProfile
	}
	if kind != models.UploadKindProfile && kind != models.UploadKindChat {
		return dto.UploadResponse{}, ErrUploadInvalidKind
	}

	if header.Size > maxUploadBytes {
		observability.UploadRequests().WithLabelValues("rejected").Inc()
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return dto.UploadResponse{}, err
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return dto.UploadResponse{}, err
	}
	if len(content) > maxUploadBytes {
		observability.UploadRequests().WithLabelValues("rejected").Inc()
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	// Sniff the real content type rather than trusting the extension.
	detected := mimetype.Detect(content)
	if !strings.HasPrefix(detected.String(), "image/") {
		observability.UploadRequests().WithLabelValues("rejected").Inc()
		return dto.UploadResponse{}, ErrUploadNotImage
	}

	start := time.Now()
	result, err := s.store.Upload(ctx, header.Filename, bytes.NewReader(content))
	observability.UploadLatency().Observe(time.Since(start).Seconds())
	if err != nil {
		observability.UploadRequests().WithLabelValues("error").Inc()
		return dto.UploadResponse{}, err
	}

	record := models.Upload{
		UserUID:  userUID,
		Kind:     kind,
		PublicID: result.PublicID,
		URL:      result.SecureURL,
		Format:   result.Format,
		Bytes:    result.Bytes,
	}
	if err := s.uploads.Create(ctx, &record); err != nil {
		// The asset is already stored; keep serving the URL even if the
		// metadata row failed.
		s.logger.Error().Err(err).Str("public_id", result.PublicID).Msg("failed to record upload")
	}

	observability.UploadRequests().WithLabelValues("ok").Inc()

	return dto.NewUploadResponse(record), nil
}

func (s *uploadService) ListMine(ctx context.Context, userUID string, limit int) ([]dto.UploadResponse, error) {
	records, err := s.uploads.ListByUser(ctx, userUID, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.UploadResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, dto.NewUploadResponse(record))
	}

	return responses, nil
}
