package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/OpenTTD/bananas-server/content"
	"github.com/OpenTTD/bananas-server/internal/cos"
)

// S3 is the object-store-backed storage backend. The client is initialized
// lazily so that constructing an S3 value before a reload worker starts
// does not pay for a connection that worker may never use (mirrors the
// original's boto3 client lazily created via a @property).
type S3 struct {
	Bucket string

	mu         sync.Mutex
	client     *s3.Client
	keyCache   map[string]struct{} // full flat key listing, built once per reload
	haveCache  bool
}

func NewS3(bucket string) *S3 { return &S3{Bucket: bucket} }

func (b *S3) clientLocked(ctx context.Context) (*s3.Client, error) {
	if b.client != nil {
		return b.client, nil
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: loading AWS config: %w", err)
	}
	b.client = s3.NewFromConfig(cfg)
	return b.client, nil
}

// ClearCache drops the lazily-built client and the flat key listing. Called
// by the reload supervisor before handing storage off to the reload worker,
// so the worker rebuilds both from scratch (spec.md §4.2).
func (b *S3) ClearCache() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.client = nil
	b.keyCache = nil
	b.haveCache = false
}

func (b *S3) fullKeyListing(ctx context.Context) (map[string]struct{}, error) {
	b.mu.Lock()
	if b.haveCache {
		defer b.mu.Unlock()
		return b.keyCache, nil
	}
	b.mu.Unlock()

	client, err := func() (*s3.Client, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.clientLocked(ctx)
	}()
	if err != nil {
		return nil, err
	}

	keys := make(map[string]struct{})
	var token *string
	for {
		out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.Bucket),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: listing bucket %s: %w", b.Bucket, err)
		}
		for _, obj := range out.Contents {
			if obj.Key != nil {
				keys[*obj.Key] = struct{}{}
			}
		}
		if out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}

	b.mu.Lock()
	b.keyCache = keys
	b.haveCache = true
	b.mu.Unlock()
	return keys, nil
}

func (b *S3) ListFolder(ctx context.Context, t content.Type) ([]string, error) {
	keys, err := b.fullKeyListing(ctx)
	if err != nil {
		return nil, err
	}
	prefix := t.FolderName() + "/"
	seen := make(map[string]struct{})
	var out []string
	for key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		parts := strings.Split(key, "/")
		if len(parts) < 2 {
			continue
		}
		if _, ok := seen[parts[1]]; !ok {
			seen[parts[1]] = struct{}{}
			out = append(out, parts[1])
		}
	}
	return out, nil
}

func (b *S3) ListFolderEntries(ctx context.Context, t content.Type, uniqueHex string) ([]string, error) {
	keys, err := b.fullKeyListing(ctx)
	if err != nil {
		return nil, err
	}
	prefix := t.FolderName() + "/" + uniqueHex + "/"
	var out []string
	for key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		parts := strings.Split(key, "/")
		if len(parts) < 3 {
			continue
		}
		out = append(out, parts[2])
	}
	return out, nil
}

func (b *S3) objectKey(entry *content.Entry) string {
	return fmt.Sprintf("%s/%s/%s.tar.gz", entry.ContentType.FolderName(), entry.UniqueID.Hex(), entry.MD5Sum.Hex())
}

type s3Stream struct {
	body      io.ReadCloser
	remaining int64
}

func (s *s3Stream) Read(p []byte) (int, error) {
	n, err := s.body.Read(p)
	s.remaining -= int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: %v", ErrStreamRead, err)
	}
	return n, err
}

func (s *s3Stream) EOF() bool    { return s.remaining <= 0 }
func (s *s3Stream) Close() error { return s.body.Close() }

func (b *S3) OpenStream(ctx context.Context, entry *content.Entry) (Stream, error) {
	b.mu.Lock()
	client, err := b.clientLocked(ctx)
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	key := b.objectKey(entry)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, cos.NewErrNotFound("storage: blob s3://%s/%s for content id %d", b.Bucket, key, entry.ContentID)
		}
		return nil, fmt.Errorf("storage: GetObject %s/%s: %w", b.Bucket, key, err)
	}

	size := int64(entry.FileSize)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return &s3Stream{body: out.Body, remaining: size}, nil
}
