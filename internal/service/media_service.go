package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"drravalement/site/internal/ids"
	"drravalement/site/internal/media/sniffer"
	"drravalement/site/internal/media/svg"
	"drravalement/site/internal/models"
	"drravalement/site/internal/repository"
	"drravalement/site/internal/security"
)

var (
	ErrEmptyUpload     = errors.New("empty file")
	ErrUploadTooLarge  = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrTypeMismatch    = errors.New("declared content type does not match file")
	ErrMediaTampered   = errors.New("media signature mismatch")
)

type MediaStore interface {
	Create(ctx context.Context, media models.Media) error
	GetByID(ctx context.Context, id string) (models.Media, error)
	List(ctx context.Context, limit, offset int) ([]models.Media, error)
	Delete(ctx context.Context, id string) error
}

// ObjectStore is the blob side of the media library.
type ObjectStore interface {
	Bucket() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error)
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
}

type MediaConfig struct {
	SigningSecret string
	MaxBytes      int64
}

type UploadInput struct {
	UploadedBy   string
	Filename     string
	DeclaredMIME string
	AltText      string
	Body         io.Reader
}

type MediaItem struct {
	Media models.Media
	URL   string
}

type MediaService struct {
	media   MediaStore
	objects ObjectStore
	cfg     MediaConfig
	log     zerolog.Logger
}

func NewMediaService(media MediaStore, objects ObjectStore, cfg MediaConfig, log zerolog.Logger) *MediaService {
	return &MediaService{
		media:   media,
		objects: objects,
		cfg:     cfg,
		log:     log,
	}
}

func (s *MediaService) Upload(ctx context.Context, input UploadInput) (MediaItem, error) {
	if input.Body == nil {
		return MediaItem{}, ErrEmptyUpload
	}

	limit := s.cfg.MaxBytes
	reader := input.Body
	if limit > 0 {
		reader = io.LimitReader(input.Body, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return MediaItem{}, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return MediaItem{}, ErrEmptyUpload
	}
	if limit > 0 && int64(len(data)) > limit {
		return MediaItem{}, ErrUploadTooLarge
	}

	head := data
	if len(head) > sniffer.HeadSize {
		head = head[:sniffer.HeadSize]
	}
	detected, err := sniffer.Detect(head)
	if err != nil {
		return MediaItem{}, ErrUnsupportedType
	}
	if !sniffer.Compatible(strings.ToLower(input.DeclaredMIME), detected) {
		return MediaItem{}, ErrTypeMismatch
	}

	if detected.Format == sniffer.FormatSVG {
		clean, err := svg.Sanitize(data)
		if err != nil {
			return MediaItem{}, ErrUnsupportedType
		}
		data = clean
	}

	mediaID := ids.New()
	objectKey := buildObjectKey(mediaID, detected.Extension(), time.Now().UTC())

	size, err := s.objects.Put(ctx, objectKey, bytes.NewReader(data), int64(len(data)), detected.MIME)
	if err != nil {
		return MediaItem{}, err
	}

	sum := sha256.Sum256(data)
	media := models.Media{
		ID:         mediaID,
		UploadedBy: input.UploadedBy,
		Bucket:     s.objects.Bucket(),
		ObjectKey:  objectKey,
		Format:     string(detected.Format),
		MIME:       detected.MIME,
		SizeBytes:  size,
		AltText:    strings.TrimSpace(input.AltText),
		Checksum:   sum[:],
		Signature:  security.SignResource(s.cfg.SigningSecret, mediaID, objectKey),
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.media.Create(ctx, media); err != nil {
		if rmErr := s.objects.Remove(ctx, objectKey); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("object_key", objectKey).Msg("remove orphaned object failed")
		}
		return MediaItem{}, fmt.Errorf("save metadata: %w", err)
	}

	s.log.Info().Str("media_id", mediaID).Str("format", media.Format).Int64("size", size).Msg("media uploaded")
	return MediaItem{Media: media, URL: s.objects.PublicURL(objectKey)}, nil
}

func (s *MediaService) List(ctx context.Context, limit, offset int) ([]MediaItem, error) {
	rows, err := s.media.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]MediaItem, 0, len(rows))
	for _, m := range rows {
		items = append(items, MediaItem{Media: m, URL: s.objects.PublicURL(m.ObjectKey)})
	}
	return items, nil
}

// Delete removes the metadata row and then the object. A row whose signature
// does not match its object key is refused.
func (s *MediaService) Delete(ctx context.Context, id string) error {
	media, err := s.media.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !security.VerifyResource(s.cfg.SigningSecret, media.Signature, media.ID, media.ObjectKey) {
		return ErrMediaTampered
	}
	if err := s.media.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.objects.Remove(ctx, media.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("media_id", id).Msg("remove object failed")
	}
	return nil
}

func buildObjectKey(id, ext string, now time.Time) string {
	return path.Join(now.Format("2006/01"), fmt.Sprintf("%s.%s", id, ext))
}

var _ MediaStore = (*repository.MediaRepository)(nil)
