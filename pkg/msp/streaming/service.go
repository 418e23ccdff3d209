// Package streaming coordinates the accounting transitions with persistence.
// Every mutating operation loads the affected records, runs the transition,
// and persists the results inside a single DB transaction.
package streaming

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pkg/errors"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/template"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/ledger"
	"github.com/mean-dao/payment-streaming-server/pkg/rate"
	sync_util "github.com/mean-dao/payment-streaming-server/pkg/sync"
)

// ErrRateLimited indicates an account creation was dropped by the rate
// limiter.
var ErrRateLimited = errors.New("rate limited")

type Service struct {
	log  *logrus.Entry
	data data.Provider
	fees *ledger.FeeSchedule

	// accountLocks serializes writers per account address, so concurrent
	// transitions on the same record don't interleave their read-modify-write
	// cycles.
	accountLocks *sync_util.StripedLock

	createLimiter rate.Limiter

	mintDecimals MintDecimalsFunc

	nowFunc func() time.Time
}

type Option func(*Service)

// MintDecimalsFunc resolves the configured decimals for a mint, used to
// render raw units on the read path.
type MintDecimalsFunc func(mintAddress string) uint8

// WithCreateRateLimiter limits treasury creation per treasurer and stream
// creation per treasury.
func WithCreateRateLimiter(limiter rate.Limiter) Option {
	return func(s *Service) {
		s.createLimiter = limiter
	}
}

// WithMintDecimals overrides the decimals used for display amounts.
func WithMintDecimals(resolver MintDecimalsFunc) Option {
	return func(s *Service) {
		s.mintDecimals = resolver
	}
}

func NewService(data data.Provider, fees *ledger.FeeSchedule, opts ...Option) *Service {
	s := &Service{
		log:  logrus.StandardLogger().WithField("type", "msp/streaming/service"),
		data: data,
		fees: fees,

		accountLocks: sync_util.NewStripedLock(64),

		nowFunc: time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) lockAccount(address string) func() {
	lock := s.accountLocks.Get([]byte(address))
	lock.Lock()
	return lock.Unlock
}

// lockStreamTreasury serializes a stream mutation on its treasury. Stream
// transitions roll up into the treasury record, so the treasury address is
// the lock key for every write reached through a stream. The treasury
// address is immutable for the stream's lifetime, making the unguarded
// resolve safe.
func (s *Service) lockStreamTreasury(ctx context.Context, streamAddress string) (func(), error) {
	streamRecord, err := s.data.GetStreamByAddress(ctx, streamAddress)
	if err != nil {
		return nil, err
	}
	return s.lockAccount(streamRecord.TreasuryAddress), nil
}

func (s *Service) checkCreateRateLimit(key string) error {
	if s.createLimiter == nil {
		return nil
	}

	allowed, err := s.createLimiter.Allow(key)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

// CreateTreasury creates a new, empty treasury.
func (s *Service) CreateTreasury(ctx context.Context, params ledger.CreateTreasuryParams) (*treasury.Record, error) {
	log := s.log.WithFields(logrus.Fields{
		"method":   "CreateTreasury",
		"treasury": params.Address,
	})

	if err := s.checkCreateRateLimit(params.TreasurerAddress); err != nil {
		return nil, err
	}

	defer s.lockAccount(params.Address)()

	_, err := s.data.GetTreasuryByAddress(ctx, params.Address)
	if err == nil {
		return nil, treasury.ErrTreasuryExists
	}
	if err != treasury.ErrTreasuryNotFound {
		log.WithError(err).Warn("failure checking for existing treasury")
		return nil, err
	}

	record, err := ledger.CreateTreasury(params, s.nowFunc())
	if err != nil {
		return nil, err
	}

	if err := s.data.SaveTreasury(ctx, record); err != nil {
		log.WithError(err).Warn("failure saving treasury record")
		return nil, err
	}
	return record, nil
}

// CreateTreasuryWithTemplate creates a treasury along with the stream
// template future streams will be stamped from.
func (s *Service) CreateTreasuryWithTemplate(ctx context.Context, params ledger.CreateTreasuryParams, templateParams ledger.TemplateParams) (*treasury.Record, *template.Record, error) {
	log := s.log.WithFields(logrus.Fields{
		"method":   "CreateTreasuryWithTemplate",
		"treasury": params.Address,
	})

	var treasuryRecord *treasury.Record
	var templateRecord *template.Record
	err := s.data.ExecuteInTx(ctx, func(ctx context.Context) error {
		var err error
		treasuryRecord, err = s.CreateTreasury(ctx, params)
		if err != nil {
			return err
		}

		templateRecord, err = ledger.CreateTemplate(treasuryRecord, templateParams, s.nowFunc())
		if err != nil {
			return err
		}
		return s.data.SaveTemplate(ctx, templateRecord)
	})
	if err != nil {
		log.WithError(err).Warn("failure creating treasury with template")
		return nil, nil, err
	}
	return treasuryRecord, templateRecord, nil
}

// ModifyTemplate updates a treasury's stream template.
func (s *Service) ModifyTemplate(ctx context.Context, treasuryAddress string, params ledger.TemplateParams) (*template.Record, error) {
	log := s.log.WithFields(logrus.Fields{
		"method":   "ModifyTemplate",
		"treasury": treasuryAddress,
	})

	defer s.lockAccount(treasuryAddress)()

	var templateRecord *template.Record
	err := s.data.ExecuteInTx(ctx, func(ctx context.Context) error {
		treasuryRecord, err := s.data.GetTreasuryByAddress(ctx, treasuryAddress)
		if err != nil {
			return err
		}

		templateRecord, err = s.data.GetTemplateByTreasury(ctx, treasuryAddress)
		if err != nil {
			return err
		}

		if err := ledger.ModifyTemplate(treasuryRecord, templateRecord, params, s.nowFunc()); err != nil {
			return err
		}
		return s.data.SaveTemplate(ctx, templateRecord)
	})
	if err != nil {
		log.WithError(err).Warn("failure modifying template")
		return nil, err
	}
	return templateRecord, nil
}

// AddFunds credits a deposit to a treasury's unallocated balance.
func (s *Service) AddFunds(ctx context.Context, treasuryAddress string, amount uint64) (*ledger.AddFundsReceipt, error) {
	log := s.log.WithFields(logrus.Fields{
		"method":   "AddFunds",
		"treasury": treasuryAddress,
		"amount":   amount,
	})

	defer s.lockAccount(treasuryAddress)()

	var receipt *ledger.AddFundsReceipt
	err := s.data.ExecuteInTx(ctx, func(ctx context.Context) error {
		treasuryRecord, err := s.data.GetTreasuryByAddress(ctx, treasuryAddress)
		if err != nil {
			return err
		}

		receipt, err = ledger.AddFunds(treasuryRecord, amount, s.fees, s.nowFunc())
		if err != nil {
			return err
		}
		return s.data.SaveTreasury(ctx, treasuryRecord)
	})
	if err != nil {
		log.WithError(err).Warn("failure adding funds")
		return nil, err
	}
	return receipt, nil
}

// CreateStream creates a stream funded by a treasury.
func (s *Service) CreateStream(ctx context.Context, treasuryAddress string, params ledger.CreateStreamParams) (*stream.Record, *ledger.CreateStreamReceipt, error) {
	log := s.log.WithFields(logrus.Fields{
		"method":   "CreateStream",
		"treasury": treasuryAddress,
		"stream":   params.Address,
	})

	if err := s.checkCreateRateLimit(treasuryAddress); err != nil {
		return nil, nil, err
	}

	defer s.lockAccount(treasuryAddress)()

	var streamRecord *stream.Record
	var receipt *ledger.CreateStreamReceipt
	err := s.data.ExecuteInTx(ctx, func(ctx context.Context) error {
		if _, err := s.data.GetStreamByAddress(ctx, params.Address); err == nil {
			return stream.ErrStreamExists
		} else if err != stream.ErrStreamNotFound {
			return err
		}

		treasuryRecord, err := s.data.GetTreasuryByAddress(ctx, treasuryAddress)
		if err != nil {
			return err
		}

		streamRecord, receipt, err = ledger.CreateStream(treasuryRecord, params, s.fees, s.nowFunc())
		if err != nil {
			return err
		}

		if err := s.data.SaveStream(ctx, streamRecord); err != nil {
			return err
		}
		return s.data.SaveTreasury(ctx, treasuryRecord)
	})
	if err != nil {
		log.WithError(err).Warn("failure creating stream")
		return nil, nil, err
	}
	return streamRecord, receipt, nil
}

// CreateStreamFromTemplate creates a stream using the treasury's template.
func (s *Service) CreateStreamFromTemplate(ctx context.Context, treasuryAddress string, params ledger.CreateStreamParams) (*stream.Record, *ledger.CreateStreamReceipt, error) {
	log := s.log.WithFields(logrus.Fields{
		"method":   "CreateStreamFromTemplate",
		"treasury": treasuryAddress,
		"stream":   params.Address,
	})

	if err := s.checkCreateRateLimit(treasuryAddress); err != nil {
		return nil, nil, err
	}

	defer s.lockAccount(treasuryAddress)()

	var streamRecord *stream.Record
	var receipt *ledger.CreateStreamReceipt
	err := s.data.ExecuteInTx(ctx, func(ctx context.Context) error {
		if _, err := s.data.GetStreamByAddress(ctx, params.Address); err == nil {
			return stream.ErrStreamExists
		} else if err != stream.ErrStreamNotFound {
			return err
		}

		treasuryRecord, err := s.data.GetTreasuryByAddress(ctx, treasuryAddress)
		if err != nil {
			return err
		}

		templateRecord, err := s.data.GetTemplateByTreasury(ctx, treasuryAddress)
		if err != nil {
			return err
		}

		streamRecord, receipt, err = ledger.CreateStreamFromTemplate(treasuryRecord, templateRecord, params, s.fees, s.nowFunc())
		if err != nil {
			return err
		}

		if err := s.data.SaveStream(ctx, streamRecord); err != nil {
			return err
		}
		return s.data.SaveTreasury(ctx, treasuryRecord)
	})
	if err != nil {
		log.WithError(err).Warn("failure creating stream from template")
		return nil, nil, err
	}
	return streamRecord, receipt, nil
}

// Allocate commits additional treasury funds to a stream.
func (s *Service) Allocate(ctx context.Context, streamAddress string, amount uint64) (*ledger.AllocateReceipt, error) {
	log := s.log.WithFields(logrus.Fields{
		"method": "Allocate",
		"stream": streamAddress,
		"amount": amount,
	})

	unlock, err := s.lockStreamTreasury(ctx, streamAddress)
	if err != nil {
		log.WithError(err).Warn("failure allocating funds")
		return nil, err
	}
	defer unlock()

	var receipt *ledger.AllocateReceipt
	err = s.data.ExecuteInTx(ctx, func(ctx context.Context) error {
		streamRecord, treasuryRecord, err := s.getStreamAndTreasury(ctx, streamAddress)
		if err != nil {
			return err
		}

		receipt, err = ledger.Allocate(treasuryRecord, streamRecord, amount, s.fees, s.nowFunc())
		if err != nil {
			return err
		}

		if err := s.data.SaveStream(ctx, streamRecord); err != nil {
			return err
		}
		return s.data.SaveTreasury(ctx, treasuryRecord)
	})
	if err != nil {
		log.WithError(err).Warn("failure allocating funds")
		return nil, err
	}
	return receipt, nil
}

// Withdraw pays out vested funds to a stream's beneficiary.
func (s *Service) Withdraw(ctx context.Context, streamAddress string, amount uint64) (*ledger.WithdrawReceipt, error) {
	log := s.log.WithFields(logrus.Fields{
		"method": "Withdraw",
		"stream": streamAddress,
		"amount": amount,
	})

	unlock, err := s.lockStreamTreasury(ctx, streamAddress)
	if err != nil {
		log.WithError(err).Warn("failure withdrawing funds")
		return nil, err
	}
	defer unlock()

	var receipt *ledger.WithdrawReceipt
	err = s.data.ExecuteInTx(ctx, func(ctx context.Context) error {
		streamRecord, treasuryRecord, err := s.getStreamAndTreasury(ctx, streamAddress)
		if err != nil {
			return err
		}

		receipt, err = ledger.Withdraw(treasuryRecord, streamRecord, amount, s.fees, s.nowFunc())
		if err != nil {
			return err
		}

		if err := s.data.SaveStream(ctx, streamRecord); err != nil {
			return err
		}
		return s.data.SaveTreasury(ctx, treasuryRecord)
	})
	if err != nil {
		log.WithError(err).Warn("failure withdrawing funds")
		return nil, err
	}
	return receipt, nil
}

// PauseStream manually pauses a running stream.
func (s *Service) PauseStream(ctx context.Context, streamAddress string) error {
	return s.pauseOrResume(ctx, streamAddress, "PauseStream", ledger.PauseStream)
}

// ResumeStream restarts a manually paused stream.
func (s *Service) ResumeStream(ctx context.Context, streamAddress string) error {
	return s.pauseOrResume(ctx, streamAddress, "ResumeStream", ledger.ResumeStream)
}

func (s *Service) pauseOrResume(ctx context.Context, streamAddress, method string, transition func(*treasury.Record, *stream.Record, time.Time) error) error {
	log := s.log.WithFields(logrus.Fields{
		"method": method,
		"stream": streamAddress,
	})

	unlock, err := s.lockStreamTreasury(ctx, streamAddress)
	if err != nil {
		log.WithError(err).Warn("failure transitioning stream")
		return err
	}
	defer unlock()

	err = s.data.ExecuteInTx(ctx, func(ctx context.Context) error {
		streamRecord, treasuryRecord, err := s.getStreamAndTreasury(ctx, streamAddress)
		if err != nil {
			return err
		}

		if err := transition(treasuryRecord, streamRecord, s.nowFunc()); err != nil {
			return err
		}
		return s.data.SaveStream(ctx, streamRecord)
	})
	if err != nil {
		log.WithError(err).Warn("failure transitioning stream")
		return err
	}
	return nil
}

// TransferStream reassigns a stream's beneficiary.
func (s *Service) TransferStream(ctx context.Context, streamAddress, newBeneficiary string) (*ledger.TransferStreamReceipt, error) {
	log := s.log.WithFields(logrus.Fields{
		"method": "TransferStream",
		"stream": streamAddress,
	})

	unlock, err := s.lockStreamTreasury(ctx, streamAddress)
	if err != nil {
		log.WithError(err).Warn("failure transferring stream")
		return nil, err
	}
	defer unlock()

	var receipt *ledger.TransferStreamReceipt
	err = s.data.ExecuteInTx(ctx, func(ctx context.Context) error {
		streamRecord, err := s.data.GetStreamByAddress(ctx, streamAddress)
		if err != nil {
			return err
		}

		receipt, err = ledger.TransferStream(streamRecord, newBeneficiary, s.fees, s.nowFunc())
		if err != nil {
			return err
		}
		return s.data.SaveStream(ctx, streamRecord)
	})
	if err != nil {
		log.WithError(err).Warn("failure transferring stream")
		return nil, err
	}
	return receipt, nil
}

// TreasuryWithdraw debits unallocated funds from a treasury.
func (s *Service) TreasuryWithdraw(ctx context.Context, treasuryAddress string, amount uint64) (*ledger.TreasuryWithdrawReceipt, error) {
	log := s.log.WithFields(logrus.Fields{
		"method":   "TreasuryWithdraw",
		"treasury": treasuryAddress,
		"amount":   amount,
	})

	defer s.lockAccount(treasuryAddress)()

	var receipt *ledger.TreasuryWithdrawReceipt
	err := s.data.ExecuteInTx(ctx, func(ctx context.Context) error {
		treasuryRecord, err := s.data.GetTreasuryByAddress(ctx, treasuryAddress)
		if err != nil {
			return err
		}

		receipt, err = ledger.TreasuryWithdraw(treasuryRecord, amount, s.fees, s.nowFunc())
		if err != nil {
			return err
		}
		return s.data.SaveTreasury(ctx, treasuryRecord)
	})
	if err != nil {
		log.WithError(err).Warn("failure withdrawing treasury funds")
		return nil, err
	}
	return receipt, nil
}

// CloseStream settles and removes a stream.
func (s *Service) CloseStream(ctx context.Context, streamAddress string) (*ledger.CloseStreamReceipt, error) {
	log := s.log.WithFields(logrus.Fields{
		"method": "CloseStream",
		"stream": streamAddress,
	})

	unlock, err := s.lockStreamTreasury(ctx, streamAddress)
	if err != nil {
		log.WithError(err).Warn("failure closing stream")
		return nil, err
	}
	defer unlock()

	var receipt *ledger.CloseStreamReceipt
	err = s.data.ExecuteInTx(ctx, func(ctx context.Context) error {
		streamRecord, treasuryRecord, err := s.getStreamAndTreasury(ctx, streamAddress)
		if err != nil {
			return err
		}

		receipt, err = ledger.CloseStream(treasuryRecord, streamRecord, s.fees, s.nowFunc())
		if err != nil {
			return err
		}

		if err := s.data.DeleteStream(ctx, streamAddress); err != nil {
			return err
		}
		return s.data.SaveTreasury(ctx, treasuryRecord)
	})
	if err != nil {
		log.WithError(err).Warn("failure closing stream")
		return nil, err
	}
	return receipt, nil
}

// CloseTreasury removes an empty treasury, returning its balance to the
// treasurer. Its template, if any, is removed along with it.
func (s *Service) CloseTreasury(ctx context.Context, treasuryAddress string) (*ledger.CloseTreasuryReceipt, error) {
	log := s.log.WithFields(logrus.Fields{
		"method":   "CloseTreasury",
		"treasury": treasuryAddress,
	})

	defer s.lockAccount(treasuryAddress)()

	var receipt *ledger.CloseTreasuryReceipt
	err := s.data.ExecuteInTx(ctx, func(ctx context.Context) error {
		treasuryRecord, err := s.data.GetTreasuryByAddress(ctx, treasuryAddress)
		if err != nil {
			return err
		}

		receipt, err = ledger.CloseTreasury(treasuryRecord)
		if err != nil {
			return err
		}

		templateRecord, err := s.data.GetTemplateByTreasury(ctx, treasuryAddress)
		if err == nil {
			if err := s.data.DeleteTemplate(ctx, templateRecord.Address); err != nil {
				return err
			}
		} else if err != template.ErrTemplateNotFound {
			return err
		}

		return s.data.DeleteTreasury(ctx, treasuryAddress)
	})
	if err != nil {
		log.WithError(err).Warn("failure closing treasury")
		return nil, err
	}
	return receipt, nil
}

func (s *Service) getStreamAndTreasury(ctx context.Context, streamAddress string) (*stream.Record, *treasury.Record, error) {
	streamRecord, err := s.data.GetStreamByAddress(ctx, streamAddress)
	if err != nil {
		return nil, nil, err
	}

	treasuryRecord, err := s.data.GetTreasuryByAddress(ctx, streamRecord.TreasuryAddress)
	if err != nil {
		return nil, nil, err
	}
	return streamRecord, treasuryRecord, nil
}
