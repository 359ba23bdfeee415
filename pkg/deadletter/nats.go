package deadletter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/internal/natsconn"
	"github.com/wehubfusion/Daedalus/pkg/engine"
	sdkerrors "github.com/wehubfusion/Daedalus/pkg/errors"
)

const (
	// DefaultDeadLetterStream is the JetStream stream retaining dead letters.
	DefaultDeadLetterStream = "DAEDALUS_DEADLETTERS"

	// DefaultDeadLetterSubjectPrefix prefixes per-node dead-letter subjects,
	// yielding subjects of the form deadletter.<node>.
	DefaultDeadLetterSubjectPrefix = "deadletter"

	publishMaxRetries = 3
)

// NATSSink publishes dead-letter records to JetStream so downstream tooling
// can replay or inspect them.
type NATSSink struct {
	js            nats.JetStreamContext
	subjectPrefix string
	logger        *zap.Logger
}

var _ Sink = (*NATSSink)(nil)

// NewNATSSink creates a sink over an established connection and ensures the
// dead-letter stream exists.
func NewNATSSink(conn *nats.Conn, logger *zap.Logger) (*NATSSink, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	subjects := []string{DefaultDeadLetterSubjectPrefix + ".>"}
	if err := natsconn.EnsureStream(js, DefaultDeadLetterStream, subjects, logger); err != nil {
		return nil, err
	}

	return &NATSSink{
		js:            js,
		subjectPrefix: DefaultDeadLetterSubjectPrefix,
		logger:        logger,
	}, nil
}

// Write publishes the letter to deadletter.<node>. Publishes are retried a
// bounded number of times with a short backoff; context cancellation
// interrupts both the publish wait and the backoff.
func (s *NATSSink) Write(ctx context.Context, letter engine.DeadLetter) error {
	data, err := NewRecord(letter).Encode()
	if err != nil {
		return fmt.Errorf("failed to encode dead letter: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", s.subjectPrefix, natsconn.Token(letter.NodeID))

	var publishErr error
	for attempt := 1; attempt <= publishMaxRetries; attempt++ {
		publishErr = s.publish(ctx, subject, data)
		if publishErr == nil {
			break
		}
		if sdkerrors.IsCanceled(publishErr) {
			return publishErr
		}

		if attempt < publishMaxRetries {
			s.logger.Warn("Failed to publish dead letter, retrying",
				zap.String("subject", subject),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", publishMaxRetries),
				zap.Error(publishErr))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
	}
	if publishErr != nil {
		return fmt.Errorf("failed to publish dead letter after %d attempts: %w", publishMaxRetries, publishErr)
	}

	s.logger.Debug("Published dead letter",
		zap.String("subject", subject),
		zap.String("execution_id", letter.ExecutionID))
	return nil
}

// publish runs the JetStream publish on a goroutine so a stalled server
// cannot outlive the caller's context.
func (s *NATSSink) publish(ctx context.Context, subject string, data []byte) error {
	resultCh := make(chan error, 1)
	go func() {
		_, err := s.js.Publish(subject, data)
		resultCh <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-resultCh:
		return err
	}
}
