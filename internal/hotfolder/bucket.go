package hotfolder

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver
)

// Bucket delivers into a blob bucket exposed as a hot folder. Blob writes
// are not atomic under the final key, so the artifact is uploaded to a
// uuid-suffixed temp key first and then copied to the watched name.
type Bucket struct {
	bucket *blob.Bucket
	url    string
}

// NewBucket opens the bucket behind a gocloud.dev URL.
func NewBucket(url string) (*Bucket, error) {
	bucket, err := blob.OpenBucket(context.Background(), url)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", url, err)
	}

	return &Bucket{bucket: bucket, url: url}, nil
}

// Deliver uploads the artifact and promotes it to the final key.
func (b *Bucket) Deliver(ctx context.Context, srcPath, fileName string) (string, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("read source %s: %w", srcPath, err)
	}

	tempKey := fileName + ".tmp." + uuid.New().String()

	if err := b.write(ctx, tempKey, data); err != nil {
		return "", err
	}

	// Copy is server-side on s3 and gs, so the promote never re-uploads.
	if err := b.bucket.Copy(ctx, fileName, tempKey, nil); err != nil {
		b.bucket.Delete(ctx, tempKey)
		return "", fmt.Errorf("promote %s -> %s: %w", tempKey, fileName, err)
	}

	b.bucket.Delete(ctx, tempKey) // ignore errors

	return b.url + "/" + fileName, nil
}

func (b *Bucket) write(ctx context.Context, key string, data []byte) error {
	w, err := b.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write data to %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}

	return nil
}

// Close releases the bucket connection.
func (b *Bucket) Close() error {
	if b.bucket != nil {
		return b.bucket.Close()
	}
	return nil
}

var _ Destination = (*Bucket)(nil)
