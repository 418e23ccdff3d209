package data

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	pg "github.com/mean-dao/payment-streaming-server/pkg/database/postgres"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/template"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"

	stream_memory_client "github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream/memory"
	template_memory_client "github.com/mean-dao/payment-streaming-server/pkg/msp/data/template/memory"
	treasury_memory_client "github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury/memory"

	stream_postgres_client "github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream/postgres"
	template_postgres_client "github.com/mean-dao/payment-streaming-server/pkg/msp/data/template/postgres"
	treasury_postgres_client "github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury/postgres"
)

// Provider is the aggregated data access layer for streaming state.
type Provider interface {
	// Streams
	// --------------------------------------------------------------------------------
	SaveStream(ctx context.Context, record *stream.Record) error
	GetStreamByAddress(ctx context.Context, address string) (*stream.Record, error)
	GetAllStreamsByTreasury(ctx context.Context, treasury string) ([]*stream.Record, error)
	GetAllStreamsByBeneficiary(ctx context.Context, beneficiary string) ([]*stream.Record, error)
	GetStreamCountByTreasury(ctx context.Context, treasury string) (uint64, error)
	DeleteStream(ctx context.Context, address string) error

	// Treasuries
	// --------------------------------------------------------------------------------
	SaveTreasury(ctx context.Context, record *treasury.Record) error
	GetTreasuryByAddress(ctx context.Context, address string) (*treasury.Record, error)
	GetAllTreasuriesByTreasurer(ctx context.Context, treasurer string) ([]*treasury.Record, error)
	GetAllAutoCloseableTreasuries(ctx context.Context, limit uint64) ([]*treasury.Record, error)
	DeleteTreasury(ctx context.Context, address string) error

	// Templates
	// --------------------------------------------------------------------------------
	SaveTemplate(ctx context.Context, record *template.Record) error
	GetTemplateByAddress(ctx context.Context, address string) (*template.Record, error)
	GetTemplateByTreasury(ctx context.Context, treasury string) (*template.Record, error)
	DeleteTemplate(ctx context.Context, address string) error

	// ExecuteInTx executes fn with a single DB transaction that is scoped to the
	// call. This enables atomic updates that span many calls across the provider.
	ExecuteInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DatabaseProvider struct {
	streams    stream.Store
	treasuries treasury.Store
	templates  template.Store

	db *sqlx.DB
}

// NewDatabaseProvider returns a postgres backed Provider.
func NewDatabaseProvider(dbConfig *pg.Config) (Provider, error) {
	db, err := pg.NewWithUsernameAndPassword(
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Host,
		fmt.Sprint(dbConfig.Port),
		dbConfig.DbName,
	)
	if err != nil {
		return nil, err
	}

	if dbConfig.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(dbConfig.MaxOpenConnections)
	}
	if dbConfig.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(dbConfig.MaxIdleConnections)
	}
	db.SetConnMaxIdleTime(time.Hour)
	db.SetConnMaxLifetime(time.Hour)

	return &DatabaseProvider{
		streams:    stream_postgres_client.New(db),
		treasuries: treasury_postgres_client.New(db),
		templates:  template_postgres_client.New(db),

		db: sqlx.NewDb(db, "pgx"),
	}, nil
}

// NewTestProvider returns an in memory Provider for tests.
func NewTestProvider() Provider {
	return &DatabaseProvider{
		streams:    stream_memory_client.New(),
		treasuries: treasury_memory_client.New(),
		templates:  template_memory_client.New(),
	}
}

func (dp *DatabaseProvider) ExecuteInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if dp.db == nil {
		return fn(ctx)
	}

	return pg.ExecuteTxWithinCtx(ctx, dp.db, fn)
}

// Streams
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) SaveStream(ctx context.Context, record *stream.Record) error {
	return dp.streams.Save(ctx, record)
}
func (dp *DatabaseProvider) GetStreamByAddress(ctx context.Context, address string) (*stream.Record, error) {
	return dp.streams.GetByAddress(ctx, address)
}
func (dp *DatabaseProvider) GetAllStreamsByTreasury(ctx context.Context, treasury string) ([]*stream.Record, error) {
	return dp.streams.GetAllByTreasury(ctx, treasury)
}
func (dp *DatabaseProvider) GetAllStreamsByBeneficiary(ctx context.Context, beneficiary string) ([]*stream.Record, error) {
	return dp.streams.GetAllByBeneficiary(ctx, beneficiary)
}
func (dp *DatabaseProvider) GetStreamCountByTreasury(ctx context.Context, treasury string) (uint64, error) {
	return dp.streams.CountByTreasury(ctx, treasury)
}
func (dp *DatabaseProvider) DeleteStream(ctx context.Context, address string) error {
	return dp.streams.Delete(ctx, address)
}

// Treasuries
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) SaveTreasury(ctx context.Context, record *treasury.Record) error {
	return dp.treasuries.Save(ctx, record)
}
func (dp *DatabaseProvider) GetTreasuryByAddress(ctx context.Context, address string) (*treasury.Record, error) {
	return dp.treasuries.GetByAddress(ctx, address)
}
func (dp *DatabaseProvider) GetAllTreasuriesByTreasurer(ctx context.Context, treasurer string) ([]*treasury.Record, error) {
	return dp.treasuries.GetAllByTreasurer(ctx, treasurer)
}
func (dp *DatabaseProvider) GetAllAutoCloseableTreasuries(ctx context.Context, limit uint64) ([]*treasury.Record, error) {
	return dp.treasuries.GetAllAutoCloseable(ctx, limit)
}
func (dp *DatabaseProvider) DeleteTreasury(ctx context.Context, address string) error {
	return dp.treasuries.Delete(ctx, address)
}

// Templates
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) SaveTemplate(ctx context.Context, record *template.Record) error {
	return dp.templates.Save(ctx, record)
}
func (dp *DatabaseProvider) GetTemplateByAddress(ctx context.Context, address string) (*template.Record, error) {
	return dp.templates.GetByAddress(ctx, address)
}
func (dp *DatabaseProvider) GetTemplateByTreasury(ctx context.Context, treasury string) (*template.Record, error) {
	return dp.templates.GetByTreasury(ctx, treasury)
}
func (dp *DatabaseProvider) DeleteTemplate(ctx context.Context, address string) error {
	return dp.templates.Delete(ctx, address)
}
