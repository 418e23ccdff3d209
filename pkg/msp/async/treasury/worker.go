package async_treasury

import (
	"context"
	"sync"
	"time"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
	"github.com/mean-dao/payment-streaming-server/pkg/retry"
)

func (p *service) worker(serviceCtx context.Context, interval time.Duration) error {
	delay := interval

	err := retry.Loop(
		func() (err error) {
			time.Sleep(delay)

			if err := serviceCtx.Err(); err != nil {
				return err
			}

			return p.closeAutoCloseableTreasuries(serviceCtx)
		},
		retry.NonRetriableErrors(context.Canceled),
	)

	return err
}

// closeAutoCloseableTreasuries runs a single pass over treasuries flagged
// for auto close that no longer fund any stream, returning their remaining
// balance and deleting them.
func (p *service) closeAutoCloseableTreasuries(ctx context.Context) error {
	items, err := p.data.GetAllAutoCloseableTreasuries(ctx, p.conf.autoCloseBatchSize.Get(ctx))
	if err == treasury.ErrTreasuryNotFound {
		return nil
	} else if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(record *treasury.Record) {
			defer wg.Done()

			log := p.log.WithField("treasury", record.Address)

			receipt, err := p.streaming.CloseTreasury(ctx, record.Address)
			if err == treasury.ErrTreasuryNotFound {
				// Closed by someone else between the query and now
				return
			} else if err != nil {
				log.WithError(err).Warn("failed to auto close treasury")
				return
			}

			log.WithField("returned_units", receipt.ReturnedBalanceUnits).Info("auto closed treasury")
		}(item)
	}
	wg.Wait()

	return nil
}
