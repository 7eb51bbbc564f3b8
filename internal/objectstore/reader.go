// Package objectstore streams a source object as a sequence of text
// lines, and provides the S3-backed implementation of that contract.
package objectstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/arc-self/wifi-ingest-worker/internal/ingesterr"
)

// Getter is the narrow collaborator contract an object store must
// satisfy (spec.md §6: "getObjectStream"). It is deliberately the
// smallest interface that can be faked in tests, following the
// single-method-group collaborator interfaces used for AWS SDK clients
// elsewhere in this codebase's dependency family.
type Getter interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// OpenLines streams an object line-by-line. Lines are delimited by '\n';
// a final line without a trailing newline is still returned. The
// underlying handle is always closed before OpenLines returns, whether
// iteration completes normally, stops early, or the callback returns an
// error.
//
// visit is called once per line (without the trailing delimiter). It
// returns an error to stop iteration early (e.g. cancellation).
func OpenLines(ctx context.Context, g Getter, bucket, key string, visit func(line string) error) error {
	body, err := g.GetObject(ctx, bucket, key)
	if err != nil {
		return classifyGetError(bucket, key, err)
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("open lines %s/%s: %w", bucket, key, ingesterr.ErrTransientRead)
		}
		if err := visit(scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("open lines %s/%s: %v: %w", bucket, key, err, ingesterr.ErrTransientRead)
	}
	return nil
}

// classifyGetError maps a GetObject failure onto the three file-level
// error kinds the Consumer needs to tell apart (spec.md §4.3).
func classifyGetError(bucket, key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("get object %s/%s: %v: %w", bucket, key, err, ingesterr.ErrObjectNotFound)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("get object %s/%s: %v: %w", bucket, key, err, ingesterr.ErrAccessDenied)
		}
	}
	if strings.Contains(err.Error(), "no such key") {
		return fmt.Errorf("get object %s/%s: %v: %w", bucket, key, err, ingesterr.ErrObjectNotFound)
	}
	return fmt.Errorf("get object %s/%s: %v: %w", bucket, key, err, ingesterr.ErrTransientRead)
}
