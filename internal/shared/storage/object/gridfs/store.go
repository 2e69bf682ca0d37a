package gridfs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"invoice-backend/internal/shared/storage/object"
	"invoice-backend/internal/shared/util"
)

// Store implements ObjectStore on a MongoDB GridFS bucket. Storage keys are ObjectID hex strings.
type Store struct {
	db         *mongo.Database
	bucketName string
}

// New creates a GridFS-backed object store.
func New(db *mongo.Database, bucketName string) *Store {
	if bucketName == "" {
		bucketName = "pdfs"
	}
	return &Store{db: db, bucketName: bucketName}
}

// gridfs.Bucket keeps per-call buffers, so a fresh one is opened for every operation.
func (s *Store) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.bucketName))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket=%s: %w", s.bucketName, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = b.SetReadDeadline(deadline)
		_ = b.SetWriteDeadline(deadline)
	}
	return b, nil
}

// Save streams the reader into GridFS and returns the new file's ObjectID hex.
func (s *Store) Save(ctx context.Context, fileName string, r io.Reader) (string, int64, string, error) {
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", 0, "", fmt.Errorf("sanitize file name: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}

	body, err := object.Sniff(r)
	if err != nil {
		return "", 0, "", err
	}

	b, err := s.bucket(ctx)
	if err != nil {
		return "", 0, "", err
	}

	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: body.MimeType}})
	id, err := b.UploadFromStream(sanitizedName, body, opts)
	if err != nil {
		return "", 0, "", fmt.Errorf("gridfs upload bucket=%s name=%s: %w", s.bucketName, sanitizedName, err)
	}
	return id.Hex(), body.Size(), body.MimeType, nil
}

// Open returns a download stream for the stored file.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := primitive.ObjectIDFromHex(storageKey)
	if err != nil {
		return nil, object.ErrNotFound
	}
	b, err := s.bucket(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := b.OpenDownloadStream(id)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, object.ErrNotFound
		}
		return nil, fmt.Errorf("gridfs open bucket=%s key=%s: %w", s.bucketName, storageKey, err)
	}
	return stream, nil
}

// Delete removes the file and its chunks.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(storageKey)
	if err != nil {
		return object.ErrNotFound
	}
	b, err := s.bucket(ctx)
	if err != nil {
		return err
	}
	if err := b.Delete(id); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return object.ErrNotFound
		}
		return fmt.Errorf("gridfs delete bucket=%s key=%s: %w", s.bucketName, storageKey, err)
	}
	return nil
}

var _ object.ObjectStore = (*Store)(nil)
