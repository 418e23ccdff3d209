package ledger

import "github.com/pkg/errors"

var (
	// ErrZeroAmount indicates a transfer or allocation of zero units
	ErrZeroAmount = errors.New("amount must be greater than zero")

	// ErrInsufficientBalance indicates the treasury's unallocated balance
	// can't cover the requested amount plus any applicable fee
	ErrInsufficientBalance = errors.New("insufficient unallocated treasury balance")

	// ErrInsufficientWithdrawable indicates a withdrawal larger than what
	// the stream has vested and not yet paid out
	ErrInsufficientWithdrawable = errors.New("amount exceeds withdrawable balance")

	// ErrStreamAlreadyPaused indicates a pause on a stream that isn't running
	ErrStreamAlreadyPaused = errors.New("stream is already paused")

	// ErrStreamAlreadyRunning indicates a resume on a stream that isn't paused
	ErrStreamAlreadyRunning = errors.New("stream is already running")

	// ErrStreamScheduled indicates an operation that requires a started stream
	ErrStreamScheduled = errors.New("stream has not started yet")

	// ErrCannotResumeAutoPaused indicates a manual resume on a stream that
	// paused itself by running out of allocation. Only allocating more funds
	// restarts it.
	ErrCannotResumeAutoPaused = errors.New("stream paused by fund depletion resumes via allocation only")

	// ErrPauseResumeSameTime indicates a pause and resume within the same second
	ErrPauseResumeSameTime = errors.New("cannot pause and resume a stream at the same time")

	// ErrNoRemainingAllocation indicates a resume on a fully paid out stream
	ErrNoRemainingAllocation = errors.New("stream has no remaining allocation")

	// ErrLockedTreasury indicates a pause, resume or allocation attempt on a
	// stream funded by a locked treasury
	ErrLockedTreasury = errors.New("operation not allowed on a locked treasury stream")

	// ErrCloseLockedWhileRunning indicates an attempt to close a locked
	// treasury's stream before it has fully vested
	ErrCloseLockedWhileRunning = errors.New("locked treasury stream cannot be closed while running")

	// ErrStreamMismatch indicates the stream isn't funded by the given treasury
	ErrStreamMismatch = errors.New("stream does not belong to treasury")

	// ErrInvalidRate indicates an inconsistent rate configuration
	ErrInvalidRate = errors.New("invalid rate amount or rate interval")

	// ErrInvalidCliff indicates an inconsistent cliff configuration
	ErrInvalidCliff = errors.New("invalid cliff configuration")

	// ErrInvalidBeneficiary indicates a missing beneficiary, or one that
	// matches the treasurer
	ErrInvalidBeneficiary = errors.New("invalid beneficiary")

	// ErrTreasuryContainsStreams indicates a close on a treasury that still
	// funds streams
	ErrTreasuryContainsStreams = errors.New("treasury contains one or more streams")

	// ErrTemplateInUse indicates a template edit after streams were created
	// from it
	ErrTemplateInUse = errors.New("template cannot be modified after streams were created from it")
)
