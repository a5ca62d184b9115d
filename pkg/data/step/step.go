package step

import (
	"time"

	"github.com/pkg/errors"

	"github.com/alizeeshan1234/er-transfer/pkg/pointer"
)

type State uint8

const (
	StateUnknown   State = iota
	StatePending         // Submitted, awaiting confirmation
	StateConfirmed       // Observed at the confirmed commitment without error
	StateFailed          // Rejected at submission or landed with an error
)

// Layer is where a step's transaction was submitted.
type Layer uint8

const (
	LayerUnknown Layer = iota
	LayerBase
	LayerEphemeral
)

type Record struct {
	Id uint64

	RunId     string
	Step      string
	Signature string
	Layer     Layer

	State State
	Error *string
	Slot  *uint64

	CreatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.RunId) == 0 {
		return errors.New("run id is required")
	}

	if len(r.Step) == 0 {
		return errors.New("step is required")
	}

	if len(r.Signature) == 0 {
		return errors.New("signature is required")
	}

	if r.Layer == LayerUnknown {
		return errors.New("layer is required")
	}

	switch r.State {
	case StatePending:
		if r.Error != nil {
			return errors.New("error cannot be set while pending")
		}
		if r.Slot != nil {
			return errors.New("slot cannot be set while pending")
		}
	case StateConfirmed:
		if r.Error != nil {
			return errors.New("error cannot be set when confirmed")
		}
	case StateFailed:
		if r.Error == nil || len(*r.Error) == 0 {
			return errors.New("error is required when failed")
		}
	default:
		return errors.New("state is required")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		RunId:     r.RunId,
		Step:      r.Step,
		Signature: r.Signature,
		Layer:     r.Layer,

		State: r.State,
		Error: pointer.StringCopy(r.Error),
		Slot:  pointer.Uint64Copy(r.Slot),

		CreatedAt: r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.RunId = r.RunId
	dst.Step = r.Step
	dst.Signature = r.Signature
	dst.Layer = r.Layer

	dst.State = r.State
	dst.Error = pointer.StringCopy(r.Error)
	dst.Slot = pointer.Uint64Copy(r.Slot)

	dst.CreatedAt = r.CreatedAt
}

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

func (l Layer) String() string {
	switch l {
	case LayerBase:
		return "base"
	case LayerEphemeral:
		return "ephemeral"
	}
	return "unknown"
}
