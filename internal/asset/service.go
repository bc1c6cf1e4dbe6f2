package asset

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lingocrowd/contribution_control/internal/apperr"
)

type UploadInput struct {
	BatchID     string
	UploadedBy  string
	Filename    string
	ContentType string
	Content     []byte
}

type Stored struct {
	ObjectKey string
	URL       string
	Checksum  string
	Size      int64
}

// Uploader stores one blob and returns its public reference.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (Stored, error)
}

type uploader struct {
	storage ObjectStorage
	repo    MetadataRepository
	logger  zerolog.Logger
	timeout time.Duration
}

// NewUploader builds an Uploader. repo may be nil when no metadata store is configured.
func NewUploader(storage ObjectStorage, repo MetadataRepository, logger zerolog.Logger) Uploader {
	return &uploader{
		storage: storage,
		repo:    repo,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

func (u *uploader) Upload(ctx context.Context, input UploadInput) (Stored, error) {
	if input.Filename == "" {
		return Stored{}, apperr.Schema("missing required field: filename")
	}
	if len(input.Content) == 0 {
		return Stored{}, apperr.Schema("%s: empty file", input.Filename)
	}

	prefix := "tasks"
	if input.BatchID != "" {
		prefix = "tasks/" + input.BatchID
	}
	ext := strings.ToLower(path.Ext(input.Filename))
	objectKey := fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), ext)
	checksum := hashSHA256(input.Content)

	saveCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	publicURL, err := u.storage.Put(saveCtx, objectKey, input.Content, input.ContentType, map[string]string{
		"filename": input.Filename,
		"checksum": checksum,
	})
	if err != nil {
		return Stored{}, apperr.Storage(err, "upload %s", input.Filename)
	}

	stored := Stored{
		ObjectKey: objectKey,
		URL:       publicURL,
		Checksum:  checksum,
		Size:      int64(len(input.Content)),
	}

	if u.repo != nil {
		insertCtx, cancelInsert := context.WithTimeout(ctx, 10*time.Second)
		defer cancelInsert()
		_, err := u.repo.Insert(insertCtx, Metadata{
			BatchID:     input.BatchID,
			UploadedBy:  input.UploadedBy,
			Filename:    input.Filename,
			ContentType: input.ContentType,
			Size:        stored.Size,
			ObjectKey:   objectKey,
			Bucket:      u.storage.Bucket(),
			URL:         publicURL,
			Checksum:    checksum,
		})
		if err != nil {
			// the blob stays: storage is append-only
			u.logger.Warn().
				Err(err).
				Str("object_key", objectKey).
				Msg("failed to record asset metadata")
		}
	}

	return stored, nil
}
