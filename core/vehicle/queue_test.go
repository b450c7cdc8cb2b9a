package vehicle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcore/core/model"
)

func TestCommandQueueOperations(t *testing.T) {
	q := NewCommandQueue(linearRoute("A", "B", "C", "D"), model.OperationLoad)
	require.Equal(t, 3, q.Len())

	var ops []string
	for {
		cmd, ok := q.Current()
		if !ok {
			break
		}
		assert.Equal(t, "D", cmd.FinalDestination)
		ops = append(ops, cmd.Operation)
		q.Advance()
	}
	assert.Equal(t, []string{model.OperationNOP, model.OperationNOP, model.OperationLoad}, ops)
	assert.True(t, q.Done())
	assert.False(t, q.Advance())
	assert.Equal(t, 3, q.Cursor())
}

func TestCommandQueueEmptyRoute(t *testing.T) {
	q := NewCommandQueue(&model.Route{}, model.OperationMove)
	assert.True(t, q.Done())
	_, ok := q.Current()
	assert.False(t, ok)
	assert.True(t, NewCommandQueue(nil, "").Done())
}

func TestCommandQueueWithoutOperation(t *testing.T) {
	q := NewCommandQueue(linearRoute("A", "B"), "")
	cmd, _ := q.Current()
	assert.Equal(t, model.OperationNOP, cmd.Operation)
}
