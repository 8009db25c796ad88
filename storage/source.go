package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// sourceHashPrefixLen is the number of hex characters of the SHA-256 digest
// used in the object key - 128 bits, UUID-equivalent collision resistance
// (spec.md §4.5, grounded on the original garage source_storage service).
const sourceHashPrefixLen = 32

// DocumentIdentity is the content-based identity of a stored source
// document: same bytes always produce the same key, giving free
// deduplication across re-ingestion.
type DocumentIdentity struct {
	ContentHash string
	BlobKey     string
	SizeBytes   int
}

// DocumentMetadata is optional provenance recorded alongside the blob so it
// can be read back without a database round trip (stat()-friendly for the
// FUSE-style access patterns the original service supported).
type DocumentMetadata struct {
	OriginalFilename string
	SourceType       string
	FilePath         string
	SourceURL        string
	Hostname         string
	IngestedAt       string
}

// SourceStore preserves original ingested documents content-addressed,
// before chunking and extraction run. Keeping the original bytes insures
// against model evolution: a document can be re-extracted later with a
// better LLM without needing to re-acquire it.
type SourceStore struct {
	blob *BlobStore
}

// NewSourceStore wraps a BlobStore for source-document storage.
func NewSourceStore(blob *BlobStore) *SourceStore {
	return &SourceStore{blob: blob}
}

// ComputeIdentity hashes content and derives its blob key without storing
// anything - used for dedup checks before an expensive upload.
func ComputeIdentity(ontology string, content []byte, extension string) DocumentIdentity {
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	return DocumentIdentity{
		ContentHash: hash,
		BlobKey:     sourceKey(ontology, hash, extension),
		SizeBytes:   len(content),
	}
}

// Store uploads content, keyed by its own hash, under the given ontology.
// Calling Store twice with identical content is a no-op at the storage
// layer (S3 PutObject overwrites the same key with the same bytes).
func (s *SourceStore) Store(ctx context.Context, ontology string, content []byte, extension string, meta DocumentMetadata) (DocumentIdentity, error) {
	identity := ComputeIdentity(ontology, content, extension)

	tags := map[string]string{
		"ontology":     ontology,
		"content-hash": identity.ContentHash,
	}
	if meta.OriginalFilename != "" {
		tags["original-filename"] = meta.OriginalFilename
	}
	if meta.SourceType != "" {
		tags["source-type"] = meta.SourceType
	}
	if meta.FilePath != "" {
		tags["file-path"] = meta.FilePath
	}
	if meta.SourceURL != "" {
		tags["source-url"] = meta.SourceURL
	}
	if meta.Hostname != "" {
		tags["hostname"] = meta.Hostname
	}
	if meta.IngestedAt != "" {
		tags["ingested-at"] = meta.IngestedAt
	}

	_, err := s.blob.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.blob.bucket),
		Key:         aws.String(identity.BlobKey),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentTypeForExtension(extension)),
		Metadata:    tags,
	})
	if err != nil {
		return DocumentIdentity{}, fmt.Errorf("storage: put source document %s: %w", identity.BlobKey, err)
	}
	return identity, nil
}

// Get retrieves a document by its blob key.
func (s *SourceStore) Get(ctx context.Context, blobKey string) ([]byte, error) {
	out, err := s.blob.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.blob.bucket),
		Key:    aws.String(blobKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get source document %s: %w", blobKey, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// GetByHash retrieves a document by ontology and content hash (full or the
// 32-char prefix).
func (s *SourceStore) GetByHash(ctx context.Context, ontology, contentHash, extension string) ([]byte, error) {
	return s.Get(ctx, sourceKey(ontology, contentHash, extension))
}

// Exists reports whether a document is already stored, for dedup checks
// before re-uploading.
func (s *SourceStore) Exists(ctx context.Context, blobKey string) (bool, error) {
	_, err := s.blob.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.blob.bucket),
		Key:    aws.String(blobKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: head source document %s: %w", blobKey, err)
	}
	return true, nil
}

// Delete removes a stored document. Sources are kept-always by default
// retention policy (storage/retention.go); Delete exists for explicit
// ontology teardown.
func (s *SourceStore) Delete(ctx context.Context, blobKey string) error {
	_, err := s.blob.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.blob.bucket),
		Key:    aws.String(blobKey),
	})
	if err != nil {
		return fmt.Errorf("storage: delete source document %s: %w", blobKey, err)
	}
	return nil
}

// DeleteByOntology removes every source document under an ontology's
// prefix, returning the keys it deleted.
func (s *SourceStore) DeleteByOntology(ctx context.Context, ontology string) ([]string, error) {
	prefix := fmt.Sprintf("sources/%s/", sanitizePathComponent(ontology))
	keys, err := s.blob.listKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var deleted []string
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return deleted, err
		}
		deleted = append(deleted, key)
	}
	return deleted, nil
}

func sourceKey(ontology, contentHash, extension string) string {
	prefix := contentHash
	if len(prefix) > sourceHashPrefixLen {
		prefix = prefix[:sourceHashPrefixLen]
	}
	ext := strings.TrimPrefix(extension, ".")
	if ext == "" {
		ext = "txt"
	}
	return fmt.Sprintf("sources/%s/%s.%s", sanitizePathComponent(ontology), prefix, ext)
}

func (b *BlobStore) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var token *string
	for {
		out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: list objects under %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) {
			return keys, nil
		}
		token = out.NextContinuationToken
	}
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &notFound)
}

// sanitizePathComponent replaces characters that would otherwise break the
// blob-key path structure, matching graphmodel's sanitizePattern intent.
func sanitizePathComponent(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
