package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Asset identifies a stored media object.
type Asset struct {
	PublicID string `json:"id"`
	URL      string `json:"url"`
}

// Service stores question media in Cloudinary and builds delivery links.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &Service{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload stores the file and returns its generated id and secure URL.
func (s *Service) Upload(ctx context.Context, name string, reader io.Reader) (Asset, error) {
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     BuildPublicID(name),
		ResourceType: "image",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to upload asset: %w", err)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("media uploaded to cloudinary")

	return Asset{PublicID: result.PublicID, URL: result.SecureURL}, nil
}

// MediaLink builds the delivery URL of a stored image. It returns an empty
// string when the id is blank or cannot be rendered.
func (s *Service) MediaLink(publicID string) string {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return ""
	}

	image, err := s.client.Image(publicID)
	if err != nil {
		s.logger.Warn().Err(err).Str("public_id", publicID).Msg("unable to build media link")
		return ""
	}

	link, err := image.String()
	if err != nil {
		s.logger.Warn().Err(err).Str("public_id", publicID).Msg("unable to build media link")
		return ""
	}
	return link
}

// BuildPublicID derives a URL-safe, collision-free id from a file name.
func BuildPublicID(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, strings.ToLower(base))

	base = strings.Trim(base, "-")
	if base == "" {
		base = "media"
	}

	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
}
