package subset

import (
	"context"
	"path"
	"path/filepath"

	"kheops-album-tools/config"
	"kheops-album-tools/constants"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Uploader pushes the files copied by a run to object storage.
type Uploader struct {
	minioClient *minio.Client
	bucketName  string
	logger      *zap.Logger
}

func NewUploader(minioClient *minio.Client, bucketName string, logger *zap.Logger) *Uploader {
	return &Uploader{
		minioClient: minioClient,
		bucketName:  bucketName,
		logger:      logger,
	}
}

func NewUploaderFromConfig(mc *config.MinIOConfig, logger *zap.Logger) (*Uploader, error) {
	minioClient, err := minio.New(mc.URI, &minio.Options{
		Creds:  credentials.NewStaticV4(mc.AccessKeyID, mc.SecretAccessKey, ""),
		Secure: mc.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return NewUploader(minioClient, mc.BucketName, logger), nil
}

func objectName(runID, rel string) string {
	return path.Join(runID, filepath.ToSlash(rel))
}

func (u *Uploader) makeBucket(ctx context.Context) error {
	err := u.minioClient.MakeBucket(ctx, u.bucketName, minio.MakeBucketOptions{})
	if err == nil {
		u.logger.Info("bucket created", zap.String("bucket", u.bucketName))
		return nil
	}
	exists, errBucketExists := u.minioClient.BucketExists(ctx, u.bucketName)
	if errBucketExists == nil && exists {
		return nil
	}
	return err
}

// Upload stores every file of report under "<run id>/<relative path>" and
// returns the number of objects written.
func (u *Uploader) Upload(ctx context.Context, report *Report) (int, error) {
	if err := u.makeBucket(ctx); err != nil {
		return 0, err
	}

	uploaded := 0
	for _, rel := range report.Copied {
		name := objectName(report.RunID, rel)
		info, err := u.minioClient.FPutObject(ctx, u.bucketName, name, filepath.Join(report.DestDir, rel),
			minio.PutObjectOptions{ContentType: constants.MimeDICOM})
		if err != nil {
			return uploaded, err
		}
		u.logger.Debug("object stored", zap.String("object", name), zap.Int64("size", info.Size))
		uploaded++
	}
	return uploaded, nil
}
