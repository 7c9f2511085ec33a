/*
Package loader fetches raw availability snapshots.

PURPOSE:
  The importer does no I/O. Loaders are the only place that reads snapshot
  bytes from the outside world, so import logic can be tested with literals.

SOURCES:
  File: first existing path from an ordered candidate list
  S3:   one object from a bucket

SEE ALSO:
  - availability/importer.go: Consumes the bytes
  - api/sync.go: Startup and periodic import
*/
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/warp/availability-engine/availability"
)

// Loader returns snapshot bytes and a description of where they came from.
type Loader interface {
	Load(ctx context.Context) (data []byte, source string, err error)
}

// =============================================================================
// FILE LOADER
// =============================================================================

// DefaultPaths are the legacy locations of the character knowledge file.
var DefaultPaths = []string{
	"characters/stella/knowledge/availability.json",
	"characters/knowledge/stella/availability.json",
	"knowledge/stella/availability.json",
}

// File reads the first candidate path that exists.
type File struct {
	Paths []string
	// Dir resolves relative paths. Empty means the working directory.
	Dir string
}

// NewFile tries path first, then DefaultPaths.
func NewFile(path string) *File {
	paths := make([]string, 0, len(DefaultPaths)+1)
	if path != "" {
		paths = append(paths, path)
	}
	return &File{Paths: append(paths, DefaultPaths...)}
}

// NotFoundError lists every path that was checked.
type NotFoundError struct {
	Checked []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("snapshot not found in any of: %s", strings.Join(e.Checked, ", "))
}

func (e *NotFoundError) Unwrap() error {
	return availability.ErrSnapshotNotFound
}

func (f *File) Load(ctx context.Context) ([]byte, string, error) {
	checked := make([]string, 0, len(f.Paths))
	for _, p := range f.Paths {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		full := f.resolve(p)
		checked = append(checked, full)

		data, err := os.ReadFile(full)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, full, fmt.Errorf("failed to read %s: %w", full, err)
		}
		return data, full, nil
	}
	return nil, "", &NotFoundError{Checked: checked}
}

func (f *File) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	dir := f.Dir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return filepath.Join(dir, p)
}

// =============================================================================
// S3 LOADER
// =============================================================================

// ObjectGetter is the subset of *s3.Client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 reads one snapshot object.
type S3 struct {
	Client ObjectGetter
	Bucket string
	Key    string
}

// S3Config configures NewS3.
type S3Config struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string // optional, e.g. a MinIO URL; enables path-style addressing
}

// NewS3 builds an S3 loader from the default AWS credential chain.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{Client: client, Bucket: cfg.Bucket, Key: cfg.Key}, nil
}

func (l *S3) Load(ctx context.Context) ([]byte, string, error) {
	source := fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
	out, err := l.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.Bucket),
		Key:    aws.String(l.Key),
	})
	if err != nil {
		return nil, source, fmt.Errorf("failed to get %s: %w", source, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, source, fmt.Errorf("failed to read %s: %w", source, err)
	}
	return data, source, nil
}
