package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alizeeshan1234/er-transfer/pkg/data/step"
	"github.com/alizeeshan1234/er-transfer/pkg/database/query"
	"github.com/alizeeshan1234/er-transfer/pkg/pointer"
)

func RunTests(t *testing.T, s step.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s step.Store){
		testHappyPath,
		testRunMismatch,
		testGetAllByRun,
		testGetAllByState,
		testCounting,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s step.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		ctx := context.Background()
		start := time.Now()
		time.Sleep(time.Millisecond)

		record := &step.Record{
			RunId:     "run1",
			Step:      "initialize",
			Signature: "sig1",
			Layer:     step.LayerBase,
			State:     step.StatePending,
		}
		cloned := record.Clone()

		_, err := s.Get(ctx, record.Signature)
		assert.Equal(t, step.ErrStepNotFound, err)

		require.NoError(t, s.Save(ctx, record))
		assert.True(t, record.Id > 0)
		assert.True(t, record.CreatedAt.After(start))

		actual, err := s.Get(ctx, record.Signature)
		require.NoError(t, err)
		assert.Equal(t, record.Id, actual.Id)
		assertEquivalentRecords(t, &cloned, actual)

		id := record.Id
		createdAt := record.CreatedAt

		record.State = step.StateConfirmed
		record.Slot = pointer.Uint64(12345)
		cloned = record.Clone()
		require.NoError(t, s.Save(ctx, record))
		assert.Equal(t, id, record.Id)
		assert.Equal(t, createdAt.Unix(), record.CreatedAt.Unix())

		actual, err = s.Get(ctx, record.Signature)
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)

		record.State = step.StateFailed
		record.Error = pointer.String("custom program error: 0x1770")
		record.Slot = nil
		cloned = record.Clone()
		require.NoError(t, s.Save(ctx, record))

		actual, err = s.Get(ctx, record.Signature)
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)

		record.State = step.StatePending
		assert.Error(t, s.Save(ctx, record))
	})
}

func testRunMismatch(t *testing.T, s step.Store) {
	t.Run("testRunMismatch", func(t *testing.T) {
		ctx := context.Background()

		record := &step.Record{
			RunId:     "run1",
			Step:      "transfer",
			Signature: "sig1",
			Layer:     step.LayerEphemeral,
			State:     step.StatePending,
		}
		require.NoError(t, s.Save(ctx, record))

		other := record.Clone()
		other.Id = 0
		other.RunId = "run2"
		other.State = step.StateConfirmed
		assert.Equal(t, step.ErrRunMismatch, s.Save(ctx, &other))

		other = record.Clone()
		other.Step = "undelegate"
		assert.Equal(t, step.ErrRunMismatch, s.Save(ctx, &other))

		actual, err := s.Get(ctx, record.Signature)
		require.NoError(t, err)
		assert.Equal(t, "run1", actual.RunId)
		assert.Equal(t, step.StatePending, actual.State)
	})
}

func testGetAllByRun(t *testing.T, s step.Store) {
	t.Run("testGetAllByRun", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByRun(ctx, "run1")
		assert.Equal(t, step.ErrStepNotFound, err)

		names := []string{"initialize", "initialize_receiver", "delegate", "delegate_receiver", "transfer", "undelegate"}
		var records []*step.Record
		for i, name := range names {
			for _, runId := range []string{"run1", "run2"} {
				record := &step.Record{
					RunId:     runId,
					Step:      name,
					Signature: fmt.Sprintf("%s-sig%d", runId, i),
					Layer:     step.LayerBase,
					State:     step.StatePending,
				}
				require.NoError(t, s.Save(ctx, record))

				if runId == "run1" {
					records = append(records, record)
				}
			}
		}

		actual, err := s.GetAllByRun(ctx, "run1")
		require.NoError(t, err)
		require.Len(t, actual, len(names))
		for i, record := range records {
			assert.Equal(t, names[i], actual[i].Step)
			assertEquivalentRecords(t, record, actual[i])
		}

		_, err = s.GetAllByRun(ctx, "run3")
		assert.Equal(t, step.ErrStepNotFound, err)
	})
}

func testGetAllByState(t *testing.T, s step.Store) {
	t.Run("testGetAllByState", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByState(ctx, step.StatePending, query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, step.ErrStepNotFound, err)

		var pending []*step.Record
		for i := 0; i < 10; i++ {
			record := &step.Record{
				RunId:     "run1",
				Step:      fmt.Sprintf("step%d", i),
				Signature: fmt.Sprintf("sig%d", i),
				Layer:     step.LayerEphemeral,
				State:     step.StatePending,
			}
			if i%3 == 0 {
				record.State = step.StateConfirmed
				record.Slot = pointer.Uint64(uint64(i))
			}
			require.NoError(t, s.Save(ctx, record))

			if record.State == step.StatePending {
				pending = append(pending, record)
			}
		}
		require.Len(t, pending, 6)

		actual, err := s.GetAllByState(ctx, step.StatePending, query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 6)
		for i, record := range pending {
			assertEquivalentRecords(t, record, actual[i])
		}

		actual, err = s.GetAllByState(ctx, step.StatePending, query.EmptyCursor, 2, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assertEquivalentRecords(t, pending[0], actual[0])
		assertEquivalentRecords(t, pending[1], actual[1])

		actual, err = s.GetAllByState(ctx, step.StatePending, query.ToCursor(actual[1].Id), 2, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assertEquivalentRecords(t, pending[2], actual[0])
		assertEquivalentRecords(t, pending[3], actual[1])

		actual, err = s.GetAllByState(ctx, step.StatePending, query.EmptyCursor, 3, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		assertEquivalentRecords(t, pending[5], actual[0])
		assertEquivalentRecords(t, pending[4], actual[1])
		assertEquivalentRecords(t, pending[3], actual[2])

		actual, err = s.GetAllByState(ctx, step.StatePending, query.ToCursor(pending[1].Id), 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assertEquivalentRecords(t, pending[0], actual[0])

		_, err = s.GetAllByState(ctx, step.StatePending, query.ToCursor(pending[5].Id), 10, query.Ascending)
		assert.Equal(t, step.ErrStepNotFound, err)

		_, err = s.GetAllByState(ctx, step.StateFailed, query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, step.ErrStepNotFound, err)
	})
}

func testCounting(t *testing.T, s step.Store) {
	t.Run("testCounting", func(t *testing.T) {
		ctx := context.Background()

		records := []*step.Record{
			{RunId: "run1", Step: "initialize", Signature: "sig1", Layer: step.LayerBase, State: step.StatePending},
			{RunId: "run1", Step: "initialize_receiver", Signature: "sig2", Layer: step.LayerBase, State: step.StateConfirmed},
			{RunId: "run1", Step: "delegate", Signature: "sig3", Layer: step.LayerBase, State: step.StateConfirmed},
			{RunId: "run1", Step: "delegate_receiver", Signature: "sig4", Layer: step.LayerBase, State: step.StateConfirmed},
			{RunId: "run1", Step: "transfer", Signature: "sig5", Layer: step.LayerEphemeral, State: step.StateFailed, Error: pointer.String("insufficient balance")},
		}
		for _, record := range records {
			require.NoError(t, s.Save(ctx, record))
		}

		count, err := s.CountByState(ctx, step.StatePending)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		count, err = s.CountByState(ctx, step.StateConfirmed)
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)

		count, err = s.CountByState(ctx, step.StateFailed)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		count, err = s.CountByState(ctx, step.StateUnknown)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *step.Record) {
	assert.Equal(t, obj1.RunId, obj2.RunId)
	assert.Equal(t, obj1.Step, obj2.Step)
	assert.Equal(t, obj1.Signature, obj2.Signature)
	assert.Equal(t, obj1.Layer, obj2.Layer)
	assert.Equal(t, obj1.State, obj2.State)
	assert.EqualValues(t, obj1.Error, obj2.Error)
	assert.EqualValues(t, obj1.Slot, obj2.Slot)
}
