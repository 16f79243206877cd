package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"github.com/glyphworks/ocr-server/internal/config"
)

type S3FileStorage struct {
	client *s3.Client
	cfg    *config.S3Config
}

func NewS3FileStorage(cfg *config.Config) (*S3FileStorage, error) {
	if cfg.S3 == nil {
		return nil, fmt.Errorf("s3 config is missing")
	}

	provider := credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.TODO(),
		awsconfig.WithCredentialsProvider(provider),
		awsconfig.WithRegion(cfg.S3.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.EndpointUrl != "" {
			o.BaseEndpoint = aws.String(cfg.S3.EndpointUrl)
		}
	})

	return &S3FileStorage{client: client, cfg: cfg.S3}, nil
}

func (s *S3FileStorage) Upload(file FileInfo) (string, error) {
	ctx := context.TODO()

	var key string
	if file.IsTemp {
		key = fmt.Sprintf("temp/%s%s", file.Name, file.Extension)
	} else {
		key = fmt.Sprintf("%s/%s%s", s.cfg.Folder, file.Name, file.Extension)
	}

	contentType := mimetype.Detect(file.Content).String()
	params := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file.Content),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	}

	if _, err := s.client.PutObject(ctx, params); err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	return s.objectURL(key), nil
}

// objectURL builds the public URL for a stored object. A configured
// public_url always wins; otherwise the URL shape is inferred from the
// endpoint's provider.
func (s *S3FileStorage) objectURL(key string) string {
	if s.cfg.PublicUrl != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(s.cfg.PublicUrl, "/"), key)
	}

	switch {
	case strings.Contains(s.cfg.EndpointUrl, "digitaloceanspaces.com"):
		return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", s.cfg.Bucket, s.cfg.Region, key)
	case strings.Contains(s.cfg.EndpointUrl, "amazonaws.com") || s.cfg.EndpointUrl == "":
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
	default:
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.cfg.EndpointUrl, "/"), s.cfg.Bucket, key)
	}
}

func (s *S3FileStorage) UploadMultiple(files []FileInfo) ([]string, error) {
	var uploadedFiles []string
	for _, file := range files {
		destination, err := s.Upload(file)
		if err != nil {
			return nil, err
		}

		uploadedFiles = append(uploadedFiles, destination)
	}

	return uploadedFiles, nil
}

func (s *S3FileStorage) GetFile(filename string) (*FileInfo, error) {
	ctx := context.TODO()

	key := fmt.Sprintf("%s/%s", s.cfg.Folder, filename)
	params := &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}

	object, err := s.client.GetObject(ctx, params)
	if err != nil {
		return nil, err
	}
	defer object.Body.Close()

	content, err := io.ReadAll(object.Body)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filename, ext)

	return &FileInfo{
		Name:      name,
		Extension: ext,
		Content:   content,
		IsTemp:    false,
	}, nil
}

// ResolveFile has no local path to offer for objects stored in S3;
// callers should fall back to GetFile.
func (s *S3FileStorage) ResolveFile(filename string, subfolder string, isTemp bool) (string, error) {
	return "", fmt.Errorf("s3 storage does not expose local paths")
}
