package wire

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepairer struct {
	calls atomic.Int32
	err   error
}

func (r *countingRepairer) RepairAll(context.Context) (int, error) {
	r.calls.Add(1)
	return 2, r.err
}

func TestScheduleRepair_Disabled(t *testing.T) {
	c, err := scheduleRepair("", &countingRepairer{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestScheduleRepair_InvalidSpec(t *testing.T) {
	_, err := scheduleRepair("every now and then", &countingRepairer{})
	assert.ErrorContains(t, err, "invalid repair schedule")
}

func TestScheduleRepair_Registers(t *testing.T) {
	c, err := scheduleRepair("@every 1h", &countingRepairer{})
	require.NoError(t, err)
	defer c.Stop()
	assert.Len(t, c.Entries(), 1)
}

func TestRunRepair(t *testing.T) {
	r := &countingRepairer{}
	runRepair(r)
	assert.EqualValues(t, 1, r.calls.Load())

	r.err = errors.New("db down")
	runRepair(r)
	assert.EqualValues(t, 2, r.calls.Load())
}
