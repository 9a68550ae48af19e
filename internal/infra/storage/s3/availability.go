package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domainavailability "availsync/internal/domain/availability"
)

var ErrAvailabilityNotFound = errors.New("s3: availability object not found")

// AvailabilityStore keeps a hotel's snapshot as one JSON object in an S3-compatible bucket.
type AvailabilityStore struct {
	bucket         string
	key            string
	client         *minio.Client
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

// NewAvailabilityStore configures a store using the provided endpoint and credentials.
func NewAvailabilityStore(endpoint string, useSSL bool, accessKey, secretKey, bucket, hotelID string, logger *slog.Logger) (*AvailabilityStore, error) {
	cleanEndpoint := strings.TrimSpace(endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	}
	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), opts)
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	return &AvailabilityStore{
		bucket: bucket,
		key:    objectKey(hotelID),
		client: minioClient,
		logger: logger,
	}, nil
}

func (s *AvailabilityStore) Fetch(ctx context.Context) (domainavailability.Snapshot, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3: get object: %w", err)
	}
	defer obj.Close()
	raw, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s/%s", ErrAvailabilityNotFound, s.bucket, s.key)
		}
		return nil, fmt.Errorf("s3: read object: %w", err)
	}
	return decodeObject(raw)
}

func (s *AvailabilityStore) Persist(ctx context.Context, snapshot domainavailability.Snapshot) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	raw, err := encodeObject(snapshot)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.key, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("s3: put object: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("s3 snapshot stored", "bucket", s.bucket, "key", s.key, "bytes", len(raw))
	}
	return nil
}

func (s *AvailabilityStore) Ping(ctx context.Context) error {
	return s.ensureBucket(ctx)
}

func (s *AvailabilityStore) ensureBucket(ctx context.Context) error {
	s.bucketInitOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return s.bucketInitErr
}

type objectDocument struct {
	Availability domainavailability.Snapshot `json:"availability"`
}

func encodeObject(snapshot domainavailability.Snapshot) ([]byte, error) {
	raw, err := json.Marshal(objectDocument{Availability: snapshot})
	if err != nil {
		return nil, fmt.Errorf("s3: encode snapshot: %w", err)
	}
	return raw, nil
}

func decodeObject(raw []byte) (domainavailability.Snapshot, error) {
	var doc objectDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("s3: decode snapshot: %w", err)
	}
	if doc.Availability == nil {
		return domainavailability.Snapshot{}, nil
	}
	if err := doc.Availability.Normalize(); err != nil {
		return nil, fmt.Errorf("s3: %w", err)
	}
	return doc.Availability, nil
}

func objectKey(hotelID string) string {
	hotelID = strings.Trim(strings.TrimSpace(hotelID), "/")
	if hotelID == "" {
		hotelID = "default"
	}
	return "hotels/" + hotelID + "/availability.json"
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ domainavailability.Store = (*AvailabilityStore)(nil)
