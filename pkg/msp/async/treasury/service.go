package async_treasury

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/async"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/streaming"
)

type service struct {
	log       *logrus.Entry
	conf      *conf
	data      data.Provider
	streaming *streaming.Service
}

// New returns a worker that closes depleted auto-close treasuries in the
// background.
func New(data data.Provider, streamingService *streaming.Service, configProvider ConfigProvider) async.Service {
	return &service{
		log:       logrus.StandardLogger().WithField("service", "treasury"),
		conf:      configProvider(),
		data:      data,
		streaming: streamingService,
	}
}

func (p *service) Start(ctx context.Context, interval time.Duration) error {
	go func() {
		err := p.worker(ctx, interval)
		if err != nil && err != context.Canceled {
			p.log.WithError(err).Warn("treasury auto close loop terminated unexpectedly")
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	}
}
