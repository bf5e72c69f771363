package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Service stores uploads in Amazon S3 (or compatible APIs) below a key prefix.
type S3Service struct {
	client    *s3.Client
	uploader  *manager.Uploader
	presigner *s3.PresignClient
	bucket    string
	prefix    string
}

func NewS3Service(client *s3.Client, bucket, keyPrefix string) (*S3Service, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	return &S3Service{
		client:    client,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		prefix:    strings.Trim(keyPrefix, "/"),
	}, nil
}

func (s *S3Service) objectKey(key string) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if s.prefix == "" {
		return key, nil
	}
	return s.prefix + "/" + key, nil
}

func (s *S3Service) Put(ctx context.Context, obj Object) error {
	key, err := s.objectKey(obj.Key)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(obj.Body),
		ACL:    types.ObjectCannedACLPrivate,
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (s *S3Service) Delete(ctx context.Context, key string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", objectKey, err)
	}
	return nil
}

func (s *S3Service) Exists(ctx context.Context, key string) (bool, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", objectKey, err)
	}
	return true, nil
}

func (s *S3Service) List(ctx context.Context) ([]ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}

	var objects []ObjectInfo
	for {
		output, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}

		for _, obj := range output.Contents {
			key := aws.ToString(obj.Key)
			if s.prefix != "" {
				key = strings.TrimPrefix(key, s.prefix+"/")
			}
			if !ValidKey(key) {
				continue
			}
			objects = append(objects, ObjectInfo{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: obj.LastModified,
			})
		}

		if !aws.ToBool(output.IsTruncated) || output.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = output.NextContinuationToken
	}

	return objects, nil
}

func (s *S3Service) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return "", err
	}
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", objectKey, err)
	}
	return req.URL, nil
}

var _ Service = (*S3Service)(nil)
