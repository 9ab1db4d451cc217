package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/arzan03/mediavault/internal/config"
	"github.com/arzan03/mediavault/internal/models"
)

// MinioGateway serves the file tree from a MinIO/S3 bucket. Object keys are
// the file identifiers; a trailing slash marks a folder prefix.
type MinioGateway struct {
	client *minio.Client
	bucket string
	root   string
}

// NewMinioGateway connects to MinIO and verifies the bucket exists.
func NewMinioGateway(ctx context.Context, cfg config.MinioConfig) (*MinioGateway, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	root := cfg.RootPrefix
	if root != "" && !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return &MinioGateway{client: client, bucket: cfg.Bucket, root: root}, nil
}

func (g *MinioGateway) List(ctx context.Context, folderID string) ([]models.FileInfo, error) {
	prefix := g.resolve(folderID)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		return nil, fmt.Errorf("%s is not a folder", folderID)
	}

	var files []models.FileInfo
	for obj := range g.client.ListObjects(ctx, g.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", folderID, obj.Err)
		}
		if obj.Key == prefix {
			continue // placeholder object for the folder itself
		}
		files = append(files, g.infoFromObject(obj))
	}
	return files, nil
}

func (g *MinioGateway) Stat(ctx context.Context, fileID string) (models.FileInfo, error) {
	key := g.resolve(fileID)
	if key == "" || strings.HasSuffix(key, "/") {
		// Folders have no backing object; synthesize their metadata.
		return models.FileInfo{
			ID:       fileID,
			Name:     path.Base(strings.TrimSuffix(key, "/")),
			MimeType: "application/x-directory",
			IsFolder: true,
			Kind:     models.KindFolder,
		}, nil
	}

	stat, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return models.FileInfo{}, ErrNotFound
		}
		return models.FileInfo{}, fmt.Errorf("failed to stat %s: %w", fileID, err)
	}
	return g.infoFromObject(stat), nil
}

func (g *MinioGateway) Open(ctx context.Context, fileID string) (io.ReadCloser, models.FileInfo, error) {
	info, err := g.Stat(ctx, fileID)
	if err != nil {
		return nil, models.FileInfo{}, err
	}
	if info.IsFolder {
		return nil, models.FileInfo{}, fmt.Errorf("%s is a folder", fileID)
	}

	obj, err := g.client.GetObject(ctx, g.bucket, g.resolve(fileID), minio.GetObjectOptions{})
	if err != nil {
		return nil, models.FileInfo{}, fmt.Errorf("failed to open %s: %w", fileID, err)
	}
	return obj, info, nil
}

func (g *MinioGateway) resolve(fileID string) string {
	return g.root + strings.TrimPrefix(fileID, "/")
}

func (g *MinioGateway) infoFromObject(obj minio.ObjectInfo) models.FileInfo {
	id := strings.TrimPrefix(obj.Key, g.root)
	isFolder := strings.HasSuffix(obj.Key, "/")
	name := path.Base(strings.TrimSuffix(obj.Key, "/"))

	ct := obj.ContentType
	if ct == "" && !isFolder {
		// Listings come back without content types; fall back to the extension.
		ct = mime.TypeByExtension(path.Ext(name))
	}
	if isFolder {
		ct = "application/x-directory"
	}
	return models.FileInfo{
		ID:           id,
		Name:         name,
		MimeType:     ct,
		Size:         obj.Size,
		ModifiedTime: obj.LastModified,
		IsFolder:     isFolder,
		Kind:         models.KindFromMime(ct, isFolder),
	}
}
