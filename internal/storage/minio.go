// Package storage keeps the uploaded invoice PDFs in MinIO.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// ErrNoStorage is returned when MinIO is not configured.
var ErrNoStorage = errors.New("storage not available")

var Client *minio.Client
var BucketName string

// PresignTTL is how long document links stay valid.
const PresignTTL = 24 * time.Hour

// Init connects to MinIO from the MINIO_* environment variables and checks
// that the bucket exists.
func Init() error {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required")
	}

	BucketName = os.Getenv("MINIO_BUCKET")
	if BucketName == "" {
		BucketName = "hoadon"
	}

	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, BucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", BucketName)
	}

	Client = client
	log.Info().Str("component", "storage").Str("bucket", BucketName).Msg("MinIO storage initialized")
	return nil
}

// ObjectName builds the key for an uploaded file: {team}/YYYY/MM/{uuid}.pdf.
func ObjectName(team string, now time.Time, fileName string) string {
	if team == "" {
		team = "default"
	}
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		ext = ".pdf"
	}
	return fmt.Sprintf("%s/%d/%02d/%s%s", team, now.Year(), now.Month(), uuid.NewString(), ext)
}

// Upload stores a PDF and returns its object key.
func Upload(ctx context.Context, team, fileName string, data []byte) (string, error) {
	if Client == nil {
		return "", ErrNoStorage
	}
	objectName := ObjectName(team, time.Now(), fileName)

	_, err := Client.PutObject(ctx, BucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/pdf",
		UserMetadata: map[string]string{
			"original-name": fileName,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", fileName, err)
	}
	return objectName, nil
}

// Get downloads a stored document.
func Get(ctx context.Context, objectName string) ([]byte, error) {
	if Client == nil {
		return nil, ErrNoStorage
	}
	obj, err := Client.GetObject(ctx, BucketName, trimBucket(objectName), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Presign generates a temporary download URL.
func Presign(ctx context.Context, objectName string) (string, error) {
	if Client == nil {
		return "", ErrNoStorage
	}
	url, err := Client.PresignedGetObject(ctx, BucketName, trimBucket(objectName), PresignTTL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), nil
}

// Delete removes a stored document.
func Delete(ctx context.Context, objectName string) error {
	if Client == nil {
		return ErrNoStorage
	}
	return Client.RemoveObject(ctx, BucketName, trimBucket(objectName), minio.RemoveObjectOptions{})
}

// trimBucket accepts keys stored with a leading bucket name.
func trimBucket(objectName string) string {
	return strings.TrimPrefix(objectName, BucketName+"/")
}
