package asset_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/asset"
)

type fakeStorage struct {
	keys []string
	meta []map[string]string
	err  error
}

func (s *fakeStorage) Put(_ context.Context, objectKey string, _ []byte, _ string, meta map[string]string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, objectKey)
	s.meta = append(s.meta, meta)
	return "https://cdn.test/assets/" + objectKey, nil
}

func (s *fakeStorage) Bucket() string { return "assets" }

type fakeMetadata struct {
	inserted []asset.Metadata
	err      error
}

func (r *fakeMetadata) Insert(_ context.Context, m asset.Metadata) (primitive.ObjectID, error) {
	if r.err != nil {
		return primitive.NilObjectID, r.err
	}
	r.inserted = append(r.inserted, m)
	return primitive.NewObjectID(), nil
}

func TestUpload_StoresBlobAndMetadata(t *testing.T) {
	storage := &fakeStorage{}
	metadata := &fakeMetadata{}
	u := asset.NewUploader(storage, metadata, zerolog.Nop())

	stored, err := u.Upload(context.Background(), asset.UploadInput{
		BatchID:     "batch-1",
		UploadedBy:  "admin-1",
		Filename:    "Market.PNG",
		ContentType: "image/png",
		Content:     []byte("png bytes"),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored.ObjectKey, "tasks/batch-1/"))
	assert.True(t, strings.HasSuffix(stored.ObjectKey, ".png"))
	assert.Equal(t, "https://cdn.test/assets/"+stored.ObjectKey, stored.URL)
	assert.EqualValues(t, len("png bytes"), stored.Size)
	assert.Len(t, stored.Checksum, 64)
	require.Len(t, storage.meta, 1)
	assert.Equal(t, "Market.PNG", storage.meta[0]["filename"])

	require.Len(t, metadata.inserted, 1)
	assert.Equal(t, "batch-1", metadata.inserted[0].BatchID)
	assert.Equal(t, "assets", metadata.inserted[0].Bucket)
	assert.Equal(t, stored.ObjectKey, metadata.inserted[0].ObjectKey)
	assert.Equal(t, stored.Checksum, metadata.inserted[0].Checksum)
}

func TestUpload_KeysAreNeverReused(t *testing.T) {
	storage := &fakeStorage{}
	u := asset.NewUploader(storage, nil, zerolog.Nop())
	in := asset.UploadInput{Filename: "a.wav", Content: []byte("x")}

	first, err := u.Upload(context.Background(), in)
	require.NoError(t, err)
	second, err := u.Upload(context.Background(), in)
	require.NoError(t, err)
	assert.NotEqual(t, first.ObjectKey, second.ObjectKey)
	assert.True(t, strings.HasPrefix(first.ObjectKey, "tasks/"))
}

func TestUpload_Failures(t *testing.T) {
	ctx := context.Background()

	u := asset.NewUploader(&fakeStorage{}, nil, zerolog.Nop())
	_, err := u.Upload(ctx, asset.UploadInput{Filename: "a.png"})
	assert.ErrorIs(t, err, apperr.ErrSchema)
	_, err = u.Upload(ctx, asset.UploadInput{Content: []byte("x")})
	assert.ErrorIs(t, err, apperr.ErrSchema)

	u = asset.NewUploader(&fakeStorage{err: errors.New("connection reset")}, nil, zerolog.Nop())
	_, err = u.Upload(ctx, asset.UploadInput{Filename: "a.png", Content: []byte("x")})
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.EqualError(t, err, "upload a.png: connection reset")

	// a metadata outage leaves the stored blob usable
	u = asset.NewUploader(&fakeStorage{}, &fakeMetadata{err: errors.New("mongo down")}, zerolog.Nop())
	stored, err := u.Upload(ctx, asset.UploadInput{Filename: "a.png", Content: []byte("x")})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.URL)
}
