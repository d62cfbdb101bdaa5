package object

import (
	"context"
	"io"
)

// ObjectStore saves uploaded resumes and their analysis documents.
type ObjectStore interface {
	// Save stores r under namespace with a random prefix and returns the storage key.
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	// URL returns a link to the object, or "" when the store has no public form.
	URL(ctx context.Context, storageKey string) (string, error)
}
