package tagstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
)

// S3API defines the methods of the S3 client that are used by the
// S3Store.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store stores every image as object in a bucket. The object key is the
// image name with slashes replaced by "!", the object content is the tag.
type S3Store struct {
	clt    S3API
	bucket string
	logger *zap.Logger
}

func NewS3Store(clt S3API, bucket string) *S3Store {
	return &S3Store{
		clt:    clt,
		bucket: bucket,
		logger: zap.L().Named(loggerName).With(zap.String("s3.bucket", bucket)),
	}
}

// NewS3StoreFromEnv returns an S3Store that uses the default AWS
// credential chain and region configuration.
func NewS3StoreFromEnv(ctx context.Context, bucket string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws configuration failed: %w", err)
	}

	return NewS3Store(s3.NewFromConfig(cfg), bucket), nil
}

func imageToKey(image string) string {
	return strings.ReplaceAll(image, "/", "!")
}

func keyToImage(key string) string {
	return strings.ReplaceAll(key, "!", "/")
}

func (s *S3Store) readTag(ctx context.Context, key string) (string, error) {
	out, err := s.clt.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(content)), nil
}

func (s *S3Store) Update(ctx context.Context, image, tag string) error {
	key := imageToKey(image)

	oldTag, err := s.readTag(ctx, key)
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if !errors.As(err, &noSuchKey) {
			s.logger.Debug(
				"reading previous tag failed",
				logfields.Event("tag_store_read_failed"),
				logfields.Image(image),
				zap.Error(err),
			)
		}
	}

	warnOnDowngrade(s.logger, image, oldTag, tag)

	_, err = s.clt.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(tag),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("storing tag of %s in s3 bucket %s failed: %w", image, s.bucket, err)
	}

	s.logger.Info(
		"store updated",
		logfields.Event("tag_store_updated"),
		logfields.Image(image),
		logfields.Tag(tag),
	)

	return nil
}

// Content returns the entries, the most recently updated first.
func (s *S3Store) Content(ctx context.Context) ([]*Entry, error) {
	type object struct {
		key          string
		lastModified time.Time
	}

	var objects []*object

	paginator := s3.NewListObjectsV2Paginator(s.clt, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing objects of s3 bucket %s failed: %w", s.bucket, err)
		}

		for _, o := range page.Contents {
			objects = append(objects, &object{
				key:          aws.ToString(o.Key),
				lastModified: aws.ToTime(o.LastModified),
			})
		}
	}

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].lastModified.After(objects[j].lastModified)
	})

	result := make([]*Entry, 0, len(objects))
	for _, o := range objects {
		tag, err := s.readTag(ctx, o.key)
		if err != nil {
			return nil, fmt.Errorf("reading object %s of s3 bucket %s failed: %w", o.key, s.bucket, err)
		}

		result = append(result, &Entry{Image: keyToImage(o.key), Tag: tag})
	}

	return result, nil
}
