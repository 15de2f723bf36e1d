package service

import (
	"context"
	"io"

	"packloop-client/internal/domain"
)

// PlatformAPI is the slice of the platform client the workflow services
// depend on. Satisfied by *apiclient.Client; mocked in tests.
type PlatformAPI interface {
	GetBusinessProfile(ctx context.Context) (*domain.BusinessProfile, error)
	ListTransactions(ctx context.Context, status string, page, pageSize int) ([]domain.BorrowTransaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.BorrowTransaction, error)
	ConfirmBorrow(ctx context.Context, id string) error
	GetDamagePolicy(ctx context.Context) (domain.DamagePolicy, error)
	CheckReturn(ctx context.Context, serial, note string, observations []domain.DamageObservation, images map[domain.DamageFace]io.Reader) (*domain.ReturnPreview, error)
	ConfirmReturn(ctx context.Context, serial string, submission domain.ReturnSubmission) (*domain.BorrowTransaction, error)
}

// TransactionResolver maps a decoded scan token to a concrete pending
// transaction (borrow path) or a serial number (return path).
type TransactionResolver interface {
	ResolveBorrow(ctx context.Context, token ScanToken) (*domain.BorrowTransaction, error)
	ResolveReturnSerial(ctx context.Context, token ScanToken) (string, error)
}

// ReturnFlow drives the two-phase check/confirm return protocol.
type ReturnFlow interface {
	Begin(ctx context.Context, serial string) (*ReturnSession, error)
	LocalPreview(session *ReturnSession) domain.DamageAssessment
	Check(ctx context.Context, session *ReturnSession) (*domain.ReturnPreview, error)
	Confirm(ctx context.Context, session *ReturnSession) (*domain.BorrowTransaction, error)
	Abandon(session *ReturnSession)
}

// HistoryService maintains the transaction list the filter tabs are built
// from.
type HistoryService interface {
	Refresh(ctx context.Context) ([]domain.BorrowTransaction, error)
	Transactions() []domain.BorrowTransaction
	Filter(tab Tab) []domain.BorrowTransaction
	TabCounts() TabCounts
	ReturnCategoryCounts() map[domain.ReturnCategory]int
}

// CameraController abstracts the device camera owned by the scanner. The
// camera is exclusively owned by whichever scanner is currently open.
type CameraController interface {
	RequestPermission(ctx context.Context) (bool, error)
	Start(ctx context.Context) error
	Stop()
	SetTorch(on bool)
}

// HapticFeedback fires device vibration on a successful decode.
type HapticFeedback interface {
	Vibrate()
}

// ScanHandler receives the outcome of a decode after the scanner has been
// torn down.
type ScanHandler interface {
	BorrowResolved(txn *domain.BorrowTransaction)
	ReturnSerialResolved(serial string)
	ScanFailed(mode ScanMode, err error)
}
