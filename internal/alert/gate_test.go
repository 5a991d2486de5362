package alert_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/feedback-insight/internal/alert"
	"github.com/jonesrussell/feedback-insight/internal/domain"
	"github.com/jonesrussell/feedback-insight/internal/logging"
)

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) Notify(context.Context, *domain.Cluster) error {
	f.calls++
	return f.err
}

func TestMaybeAlert_FiresAboveThreshold(t *testing.T) {
	notifier := &fakeNotifier{}
	gate := alert.NewGate(notifier, logging.NewNop())

	c := &domain.Cluster{ID: "c1", AggregateSeverity: 95}

	fired, err := gate.MaybeAlert(context.Background(), c, 80)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.True(t, c.AlertSent)
	require.NotNil(t, c.AlertSentAt)
	assert.Equal(t, 1, notifier.calls)
}

func TestMaybeAlert_ThresholdIsInclusive(t *testing.T) {
	gate := alert.NewGate(&fakeNotifier{}, logging.NewNop())

	c := &domain.Cluster{ID: "c1", AggregateSeverity: 80}
	fired, err := gate.MaybeAlert(context.Background(), c, 80)
	require.NoError(t, err)
	assert.True(t, fired)
}

func TestMaybeAlert_BelowThresholdDoesNotFire(t *testing.T) {
	notifier := &fakeNotifier{}
	gate := alert.NewGate(notifier, logging.NewNop())

	c := &domain.Cluster{ID: "c1", AggregateSeverity: 79}
	fired, err := gate.MaybeAlert(context.Background(), c, 80)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.False(t, c.AlertSent)
	assert.Zero(t, notifier.calls)
}

func TestMaybeAlert_NeverFiresTwice(t *testing.T) {
	notifier := &fakeNotifier{}
	gate := alert.NewGate(notifier, logging.NewNop())

	c := &domain.Cluster{ID: "c1", AggregateSeverity: 95}

	fired, err := gate.MaybeAlert(context.Background(), c, 80)
	require.NoError(t, err)
	require.True(t, fired)

	fired, err = gate.MaybeAlert(context.Background(), c, 80)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, 1, notifier.calls)
}

func TestMaybeAlert_DeliveryFailureLeavesStateForRetry(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	gate := alert.NewGate(notifier, logging.NewNop())

	c := &domain.Cluster{ID: "c1", AggregateSeverity: 95}

	fired, err := gate.MaybeAlert(context.Background(), c, 80)
	require.Error(t, err)
	assert.False(t, fired)
	assert.False(t, c.AlertSent)
	assert.Nil(t, c.AlertSentAt)

	// Collaborator recovers; the next run delivers.
	notifier.err = nil
	fired, err = gate.MaybeAlert(context.Background(), c, 80)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, 2, notifier.calls)
}
