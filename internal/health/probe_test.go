package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbe_ReadinessHealthyByDefault(t *testing.T) {
	p := NewProbe(nil, nil)
	view := p.Readiness(context.Background())
	assert.True(t, view.OK)
}

func TestProbe_ReadinessFailsAfterConsecutiveFailures(t *testing.T) {
	p := NewProbe(nil, nil)
	p.RecordFailure()
	p.RecordFailure()
	p.RecordFailure()

	view := p.Readiness(context.Background())
	assert.False(t, view.OK)
}

func TestProbe_SuccessResetsFailureCount(t *testing.T) {
	p := NewProbe(nil, nil)
	p.RecordFailure()
	p.RecordFailure()
	p.RecordFailure()
	p.RecordSuccess()

	view := p.Readiness(context.Background())
	assert.True(t, view.OK)
}

func TestProbe_ReadinessReflectsQueueAndStreamChecks(t *testing.T) {
	p := NewProbe(
		func(ctx context.Context) error { return errors.New("queue down") },
		func(ctx context.Context) (bool, error) { return false, nil },
	)

	view := p.Readiness(context.Background())
	assert.False(t, view.OK)
	assert.Contains(t, view.Details, "queue")
	assert.Contains(t, view.Details, "stream")
}

func TestProbe_Liveness(t *testing.T) {
	p := NewProbe(nil, nil)
	assert.True(t, p.Liveness(context.Background()).OK)
}
