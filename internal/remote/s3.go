package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/crowdwave/reactoxide/internal/logging"
	"github.com/crowdwave/reactoxide/internal/metrics"
	"github.com/crowdwave/reactoxide/pkg/pathutil"
)

// S3Config holds S3/MinIO settings.
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
}

// s3API is the part of *s3.Client the store uses.
type s3API interface {
	s3.ListObjectsV2APIClient
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3 implements Store on an S3 bucket. Directories are key prefixes; Mkdir writes an
// empty "dir/" marker object so empty directories survive.
type S3 struct {
	client s3API
	bucket string
}

// NewS3 creates an S3 store and makes sure the bucket exists.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	store := &S3{client: client, bucket: cfg.Bucket}
	if err := store.ensureBucket(ctx); err != nil {
		logging.Error("bucket check failed", zap.Error(err))
	}
	return store, nil
}

func (b *S3) ensureBucket(ctx context.Context) error {
	start := time.Now()
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err == nil {
		return nil
	}
	_, err = b.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(b.bucket),
	})
	observe("create_bucket", start, err)
	if err != nil {
		return fmt.Errorf("bucket %s does not exist and cannot create: %w", b.bucket, err)
	}
	logging.Info("created S3 bucket", zap.String("bucket", b.bucket))
	return nil
}

// isNotFound reports whether err is S3's answer for a missing key. HEAD requests carry
// no body, so some servers only report the bare "NotFound" code.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// objectKey maps a file path to its object key: "/a/b.txt" -> "a/b.txt".
func objectKey(p string) string {
	return strings.TrimPrefix(pathutil.Clean(p), pathutil.Separator)
}

// prefixKey maps a directory to its key prefix: "/a" -> "a/", root -> "".
func prefixKey(dir string) string {
	return strings.TrimPrefix(pathutil.Dir(dir), pathutil.Separator)
}

// List returns the immediate children of dir.
func (b *S3) List(ctx context.Context, dir string) ([]FileInfo, error) {
	start := time.Now()
	prefix := prefixKey(dir)

	var out []FileInfo
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			observe("list", start, err)
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name == "" {
				continue
			}
			out = append(out, FileInfo{Path: pathutil.Join(dir, name), Name: name, IsDir: true})
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				continue
			}
			out = append(out, FileInfo{
				Path:    pathutil.Join(dir, name),
				Name:    name,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	observe("list", start, nil)

	if len(out) == 0 && !pathutil.IsRoot(dir) {
		if _, err := b.Stat(ctx, dir); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Stat returns information about p. A path with no object but with keys below it is a
// directory.
func (b *S3) Stat(ctx context.Context, p string) (FileInfo, error) {
	if pathutil.IsRoot(p) {
		return FileInfo{Path: pathutil.Root, IsDir: true}, nil
	}
	start := time.Now()

	head, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey(p)),
	})
	if err == nil {
		observe("stat", start, nil)
		return FileInfo{
			Path:    pathutil.Clean(p),
			Name:    pathutil.Base(p),
			Size:    aws.ToInt64(head.ContentLength),
			ModTime: aws.ToTime(head.LastModified),
		}, nil
	}
	if !isNotFound(err) {
		observe("stat", start, err)
		return FileInfo{}, fmt.Errorf("stat %s: %w", p, err)
	}

	list, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(prefixKey(p)),
		MaxKeys: aws.Int32(1),
	})
	observe("stat", start, err)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", p, err)
	}
	if len(list.Contents) == 0 {
		return FileInfo{}, fmt.Errorf("stat %s: %w", p, ErrNotFound)
	}
	return FileInfo{Path: pathutil.Clean(p), Name: pathutil.Base(p), IsDir: true}, nil
}

// Read returns the contents of the object at p.
func (b *S3) Read(ctx context.Context, p string) ([]byte, error) {
	start := time.Now()
	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey(p)),
	})
	if err != nil {
		observe("read", start, err)
		if isNotFound(err) {
			return nil, fmt.Errorf("read %s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	observe("read", start, err)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	metrics.RecordBytes("read", int64(len(data)))
	return data, nil
}

// Write stores body at p. The body is buffered so the request can be signed, and progress
// is reported as it is read into the buffer.
func (b *S3) Write(ctx context.Context, p string, body io.Reader, size int64, progress ProgressFunc) error {
	start := time.Now()
	data, err := io.ReadAll(newProgressReader(body, size, progress))
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(objectKey(p)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	observe("write", start, err)
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	metrics.RecordBytes("write", int64(len(data)))
	logging.Debug("S3 put object", zap.String("key", objectKey(p)), zap.Int("size", len(data)))
	return nil
}

// keysUnder returns every key stored below dir, including its marker.
func (b *S3) keysUnder(ctx context.Context, dir string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefixKey(dir)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// deleteKeys removes keys in batches of 1000, the DeleteObjects limit.
func (b *S3) deleteKeys(ctx context.Context, keys []string) error {
	for len(keys) > 0 {
		n := min(len(keys), 1000)
		ids := make([]types.ObjectIdentifier, 0, n)
		for _, k := range keys[:n] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}
		_, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return err
		}
		keys = keys[n:]
	}
	return nil
}

// Delete removes p, and for directories every key below it.
func (b *S3) Delete(ctx context.Context, p string) error {
	if pathutil.IsRoot(p) {
		return fmt.Errorf("delete %s: refusing to delete root", p)
	}
	info, err := b.Stat(ctx, p)
	if err != nil {
		return err
	}
	start := time.Now()

	if !info.IsDir {
		_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(objectKey(p)),
		})
		observe("delete", start, err)
		if err != nil {
			return fmt.Errorf("delete %s: %w", p, err)
		}
		return nil
	}

	keys, err := b.keysUnder(ctx, p)
	if err == nil {
		err = b.deleteKeys(ctx, keys)
	}
	observe("delete", start, err)
	if err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	logging.Debug("S3 delete prefix", zap.String("prefix", prefixKey(p)), zap.Int("keys", len(keys)))
	return nil
}

func (b *S3) copyObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(b.bucket + "/" + srcKey),
	})
	if err != nil {
		return fmt.Errorf("copy %s -> %s: %w", srcKey, dstKey, err)
	}
	return nil
}

// Move copies from to to and removes the source. For directories every key below the
// source prefix is moved.
func (b *S3) Move(ctx context.Context, from, to string) error {
	info, err := b.Stat(ctx, from)
	if err != nil {
		return err
	}
	if _, err := b.Stat(ctx, to); err == nil {
		return fmt.Errorf("move %s: %w", to, ErrExists)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	start := time.Now()

	if !info.IsDir {
		err = b.copyObject(ctx, objectKey(from), objectKey(to))
		if err == nil {
			err = b.deleteKeys(ctx, []string{objectKey(from)})
		}
		observe("move", start, err)
		if err != nil {
			return fmt.Errorf("move %s: %w", from, err)
		}
		return nil
	}

	keys, err := b.keysUnder(ctx, from)
	if err != nil {
		observe("move", start, err)
		return fmt.Errorf("move %s: %w", from, err)
	}
	srcPrefix, dstPrefix := prefixKey(from), prefixKey(to)
	for _, k := range keys {
		if err := b.copyObject(ctx, k, dstPrefix+strings.TrimPrefix(k, srcPrefix)); err != nil {
			observe("move", start, err)
			return fmt.Errorf("move %s: %w", from, err)
		}
	}
	err = b.deleteKeys(ctx, keys)
	observe("move", start, err)
	if err != nil {
		return fmt.Errorf("move %s: %w", from, err)
	}
	return nil
}

// Mkdir writes the directory marker for p.
func (b *S3) Mkdir(ctx context.Context, p string) error {
	if _, err := b.Stat(ctx, p); err == nil {
		return fmt.Errorf("mkdir %s: %w", p, ErrExists)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	start := time.Now()
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(prefixKey(p)),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	observe("mkdir", start, err)
	if err != nil {
		return fmt.Errorf("mkdir %s: %w", p, err)
	}
	return nil
}
