package checks

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"forum-importer/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// StorageReport describes the import bucket and its folder markers.
type StorageReport struct {
	Bucket  string   `json:"bucket"`
	Exists  bool     `json:"exists"`
	Missing []string `json:"missing"`
}

// OK reports whether nothing needs fixing.
func (r *StorageReport) OK() bool {
	return r.Exists && len(r.Missing) == 0
}

func folderKey(folder string) string {
	folder = strings.Trim(folder, "/")
	return folder + "/"
}

// CheckStorage verifies that bucket exists and holds a marker for every folder.
func CheckStorage(ctx context.Context, client storage.Client, bucket string, folders []string) (*StorageReport, error) {
	report := &StorageReport{Bucket: bucket, Missing: []string{}}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	report.Exists = exists
	if !exists {
		report.Missing = append(report.Missing, folders...)
		return report, nil
	}

	for _, folder := range folders {
		if _, err := client.StatObject(ctx, bucket, folderKey(folder), minio.StatObjectOptions{}); err != nil {
			report.Missing = append(report.Missing, folder)
		}
	}
	return report, nil
}

// FixStorage creates the bucket if needed and the missing folder markers.
func FixStorage(ctx context.Context, client storage.Client, region string, logger *zap.Logger, report *StorageReport) error {
	if !report.Exists {
		if err := client.MakeBucket(ctx, report.Bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			logger.Error("Failed to create bucket", zap.String("bucket", report.Bucket), zap.Error(err))
			return err
		}
		logger.Info("Created missing bucket", zap.String("bucket", report.Bucket))
	}

	for _, folder := range report.Missing {
		_, err := client.PutObject(ctx, report.Bucket, folderKey(folder), bytes.NewReader([]byte{}), 0, minio.PutObjectOptions{})
		if err != nil {
			logger.Error("Failed to create folder", zap.String("folder", folder), zap.Error(err))
			return err
		}
		logger.Info("Created missing folder", zap.String("folder", folder))
	}
	return nil
}
