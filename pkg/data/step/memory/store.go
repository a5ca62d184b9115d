package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alizeeshan1234/er-transfer/pkg/data/step"
	"github.com/alizeeshan1234/er-transfer/pkg/database/query"
	"github.com/alizeeshan1234/er-transfer/pkg/pointer"
)

type ById []*step.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

type store struct {
	mu      sync.Mutex
	last    uint64
	records []*step.Record
}

// New returns a new in memory step.Store
func New() step.Store {
	return &store{}
}

// Save implements step.Store.Save
func (s *store) Save(_ context.Context, data *step.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findBySignature(data.Signature); item != nil {
		if item.RunId != data.RunId || item.Step != data.Step {
			return step.ErrRunMismatch
		}

		item.State = data.State
		item.Error = pointer.StringCopy(data.Error)
		item.Slot = pointer.Uint64Copy(data.Slot)

		item.CopyTo(data)
		return nil
	}

	s.last++
	data.Id = s.last
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	cloned := data.Clone()
	s.records = append(s.records, &cloned)

	return nil
}

// Get implements step.Store.Get
func (s *store) Get(_ context.Context, signature string) (*step.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findBySignature(signature)
	if item == nil {
		return nil, step.ErrStepNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetAllByRun implements step.Store.GetAllByRun
func (s *store) GetAllByRun(_ context.Context, runId string) ([]*step.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*step.Record
	for _, item := range s.records {
		if item.RunId == runId {
			res = append(res, item)
		}
	}

	if len(res) == 0 {
		return nil, step.ErrStepNotFound
	}

	sort.Sort(ById(res))
	return cloneAll(res), nil
}

// GetAllByState implements step.Store.GetAllByState
func (s *store) GetAllByState(_ context.Context, state step.State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*step.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*step.Record
	for _, item := range s.records {
		if item.State == state {
			items = append(items, item)
		}
	}

	res := s.filter(items, cursor, limit, direction)
	if len(res) == 0 {
		return nil, step.ErrStepNotFound
	}

	return cloneAll(res), nil
}

// CountByState implements step.Store.CountByState
func (s *store) CountByState(_ context.Context, state step.State) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count uint64
	for _, item := range s.records {
		if item.State == state {
			count++
		}
	}
	return count, nil
}

func (s *store) findBySignature(signature string) *step.Record {
	for _, item := range s.records {
		if item.Signature == signature {
			return item
		}
	}
	return nil
}

func (s *store) filter(items []*step.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*step.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*step.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item)
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item)
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	} else {
		sort.Sort(ById(res))
	}

	if limit > 0 && len(res) >= int(limit) {
		return res[:limit]
	}

	return res
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = 0
	s.records = nil
}

func cloneAll(items []*step.Record) []*step.Record {
	res := make([]*step.Record, len(items))
	for i, item := range items {
		cloned := item.Clone()
		res[i] = &cloned
	}
	return res
}
