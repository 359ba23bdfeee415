package deadletter

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/engine"
	"github.com/wehubfusion/Daedalus/pkg/storage"
)

// DefaultBlobPrefix is the key prefix BlobSink archives under when none is
// given.
const DefaultBlobPrefix = "deadletters"

// BlobSink archives dead-letter records as JSON blobs under
// <prefix>/<execution>/<uuid>.json.
type BlobSink struct {
	client storage.BlobClient
	prefix string
	logger *zap.Logger
}

var _ Sink = (*BlobSink)(nil)

// NewBlobSink creates a sink writing through the given blob client.
func NewBlobSink(client storage.BlobClient, prefix string, logger *zap.Logger) (*BlobSink, error) {
	if client == nil {
		return nil, fmt.Errorf("blob client is required")
	}
	if prefix == "" {
		prefix = DefaultBlobPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BlobSink{
		client: client,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}, nil
}

// Write archives the letter as a JSON blob.
func (s *BlobSink) Write(ctx context.Context, letter engine.DeadLetter) error {
	data, err := NewRecord(letter).Encode()
	if err != nil {
		return fmt.Errorf("failed to encode dead letter: %w", err)
	}

	key := fmt.Sprintf("%s/%s/%s.json", s.prefix, letter.ExecutionID, uuid.NewString())

	ref, err := s.client.Upload(ctx, key, data, "application/json")
	if err != nil {
		return fmt.Errorf("failed to archive dead letter: %w", err)
	}

	s.logger.Debug("Archived dead letter",
		zap.String("node_id", letter.NodeID),
		zap.String("reference", ref))
	return nil
}
