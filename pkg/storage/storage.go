// Package storage provides blob storage clients used to archive engine
// payloads, primarily dead-letter records. Both clients implement the same
// BlobClient interface so sinks stay agnostic of the backing store.
package storage

import (
	"context"
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/minio/minio-go/v7"
)

const defaultContentType = "application/octet-stream"

// BlobClient stores and retrieves opaque payloads by key.
type BlobClient interface {
	// Upload writes data under key and returns a provider-specific reference
	// that Download accepts.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Download fetches the payload for a bare key or a reference previously
	// returned by Upload.
	Download(ctx context.Context, reference string) ([]byte, error)
}

// IsNotFound reports whether err indicates a missing blob, container, object
// or bucket on either supported backend.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusNotFound
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		return minioErr.StatusCode == http.StatusNotFound
	}

	return false
}
