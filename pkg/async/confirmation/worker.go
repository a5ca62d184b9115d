package async_confirmation

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/alizeeshan1234/er-transfer/pkg/data/step"
	"github.com/alizeeshan1234/er-transfer/pkg/database/query"
	"github.com/alizeeshan1234/er-transfer/pkg/metrics"
	"github.com/alizeeshan1234/er-transfer/pkg/pointer"
	"github.com/alizeeshan1234/er-transfer/pkg/retry"
	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

const (
	errSignatureNotFound = "signature not found before blockhash expiry"
)

func (p *service) worker(serviceCtx context.Context, interval time.Duration) error {
	delay := interval

	err := retry.Loop(
		func() (err error) {
			time.Sleep(delay)

			if err := serviceCtx.Err(); err != nil {
				return err
			}

			tracedCtx, end := metrics.StartTransaction(serviceCtx, "async__confirmation_service__handle_"+step.StatePending.String())
			defer end()

			return p.processPending(tracedCtx)
		},
		retry.NonRetriableErrors(context.Canceled),
	)

	return err
}

// processPending walks every pending step record once, in batches.
func (p *service) processPending(ctx context.Context) error {
	var cursor query.Cursor
	for {
		records, err := p.steps.GetAllByState(ctx, step.StatePending, cursor, p.conf.workerBatchSize.Get(ctx), query.Ascending)
		if err == step.ErrStepNotFound {
			return nil
		} else if err != nil {
			return err
		}

		if err := p.handleBatch(ctx, records); err != nil {
			return err
		}

		cursor = query.ToCursor(records[len(records)-1].Id)
	}
}

func (p *service) handleBatch(ctx context.Context, records []*step.Record) error {
	byLayer := make(map[step.Layer][]*step.Record)
	for _, record := range records {
		byLayer[record.Layer] = append(byLayer[record.Layer], record)
	}

	for layer, batch := range byLayer {
		if err := p.handleLayerBatch(ctx, layer, batch); err != nil {
			return err
		}
	}
	return nil
}

func (p *service) handleLayerBatch(ctx context.Context, layer step.Layer, records []*step.Record) error {
	log := p.log.WithFields(logrus.Fields{
		"method": "handleLayerBatch",
		"layer":  layer.String(),
	})

	client, ok := p.clients[layer]
	if !ok || client == nil {
		log.Warn("no status client for layer")
		return nil
	}

	sigs := make([]solana.Signature, len(records))
	for i, record := range records {
		sig, err := solana.SignatureFromString(record.Signature)
		if err != nil {
			return errors.Wrapf(err, "invalid signature %s", record.Signature)
		}
		sigs[i] = sig
	}

	statuses, err := client.GetSignatureStatuses(ctx, sigs)
	if err != nil {
		log.WithError(err).Warn("failure getting signature statuses")
		return err
	}

	for i, record := range records {
		if err := p.handlePending(ctx, record, statuses[i]); err != nil {
			log.WithError(err).WithField("signature", record.Signature).Warn("failure handling pending step")
			return err
		}
	}
	return nil
}

func (p *service) handlePending(ctx context.Context, record *step.Record, status *solana.SignatureStatus) error {
	if record.State != step.StatePending {
		return errors.New("record is not in pending state")
	}

	switch {
	case status == nil:
		if time.Since(record.CreatedAt) < p.conf.maxPendingAge.Get(ctx) {
			return nil
		}
		record.State = step.StateFailed
		record.Error = pointer.String(errSignatureNotFound)
	case status.ErrorResult != nil:
		record.State = step.StateFailed
		record.Error = pointer.String(status.ErrorResult.Error())
		record.Slot = pointer.Uint64(status.Slot)
	case status.Reached(solana.CommitmentFromString(p.conf.commitment.Get(ctx))):
		record.State = step.StateConfirmed
		record.Slot = pointer.Uint64(status.Slot)
	default:
		return nil
	}

	p.log.WithFields(logrus.Fields{
		"method":    "handlePending",
		"run":       record.RunId,
		"step":      record.Step,
		"signature": record.Signature,
		"state":     record.State.String(),
	}).Debug("step resolved")

	return p.steps.Save(ctx, record)
}
