package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sdkloader/tests/helpers/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEnsure(t *testing.T) {
	tracker := NewTracker()
	u := testutil.NewMockUnloader(t)

	require.NoError(t, tracker.Ensure("a", u))

	tests := []struct {
		name    string
		key     string
		u       Unloader
		wantErr error
	}{
		{name: "empty key", key: "", u: u},
		{name: "nil unloader", key: "b", u: nil},
		{name: "duplicate", key: "a", u: u, wantErr: ErrDuplicateKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tracker.Ensure(tt.key, tt.u)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	assert.Equal(t, []string{"a"}, tracker.Pending())
	u.AssertNotCalled(t, "Unload", "test")
}

func TestRelease(t *testing.T) {
	tracker := NewTracker()
	u := testutil.NewMockUnloader(t)

	require.NoError(t, tracker.Ensure("a", u))
	assert.True(t, tracker.Release("a"))
	assert.False(t, tracker.Release("a"))
	assert.Empty(t, tracker.Pending())
	assert.Equal(t, 0, tracker.Len())

	assert.Equal(t, 0, tracker.Sweep("shutdown"))
	u.AssertNotCalled(t, "Unload", "shutdown")
}

func TestSweep(t *testing.T) {
	logger, logs := testutil.NewObservedLogger(zapcore.WarnLevel)
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	tracker := NewTracker(WithLogger(logger), WithMetrics(metrics))

	ok := testutil.NewMockUnloader(t)
	broken := new(testutil.MockUnloader)
	broken.On("Unload", "shutdown").Return(errors.New("already gone")).Once()

	require.NoError(t, tracker.Ensure("b", ok))
	require.NoError(t, tracker.Ensure("a", broken))
	assert.Equal(t, []string{"a", "b"}, tracker.Pending())
	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.TrackedHarnesses))

	assert.Equal(t, 2, tracker.Sweep("shutdown"))

	ok.AssertCalled(t, "Unload", "shutdown")
	broken.AssertExpectations(t)
	assert.Empty(t, tracker.Pending())
	assert.Equal(t, 0.0, promtest.ToFloat64(metrics.TrackedHarnesses))
	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.LeaksSwept))

	assert.Equal(t, 2, logs.FilterMessage("sweeping leaked instance").Len())
	assert.Equal(t, 1, logs.FilterMessage("leaked instance failed to unload").Len())
}

func TestClose(t *testing.T) {
	tracker := NewTracker()
	u := testutil.NewMockUnloader(t)
	require.NoError(t, tracker.Ensure("a", u))

	assert.Equal(t, 1, tracker.Close("exit"))
	u.AssertCalled(t, "Unload", "exit")

	err := tracker.Ensure("b", u)
	assert.ErrorIs(t, err, ErrTrackerClosed)
	assert.Empty(t, tracker.Pending())
}

func TestConcurrentEnsure(t *testing.T) {
	tracker := NewTracker()
	u := testutil.NewMockUnloader(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%02d", i)
			assert.NoError(t, tracker.Ensure(key, u))
			if i%2 == 0 {
				tracker.Release(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, tracker.Len())
	assert.Len(t, tracker.Pending(), 25)
	assert.Equal(t, 25, tracker.Sweep("done"))
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
}
