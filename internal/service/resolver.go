package service

import (
	"context"
	"errors"
	"fmt"

	"packloop-client/internal/apiclient"
	"packloop-client/internal/domain"
	"packloop-client/internal/logger"
)

var (
	// ErrNoPendingRequest is informational: the item has no borrow request
	// awaiting confirmation. Surfaced as an alert, never a crash.
	ErrNoPendingRequest = errors.New("no pending borrow request found for this item")
	// ErrSerialRequired guides the caller when a transaction id was used to
	// key a return check. Returns are always checked by serial number.
	ErrSerialRequired = errors.New("a return check requires the item serial number, not a transaction id")
)

// Statuses in which a borrow request is still awaiting confirmation.
func isPendingBorrow(t *domain.BorrowTransaction) bool {
	if t.Type != domain.TransactionTypeBorrow {
		return false
	}
	switch t.Status {
	case domain.StatusPending, domain.StatusWaiting, domain.StatusPendingPickup:
		return true
	}
	return false
}

type transactionResolver struct {
	api      PlatformAPI
	pageSize int
}

// NewTransactionResolver creates a resolver scanning up to historyPageSize
// transactions per lookup (capped at 1000).
func NewTransactionResolver(api PlatformAPI, historyPageSize int) TransactionResolver {
	if historyPageSize <= 0 || historyPageSize > 1000 {
		historyPageSize = 1000
	}
	return &transactionResolver{api: api, pageSize: historyPageSize}
}

// ResolveBorrow maps a token to the pending borrow transaction it refers to.
// Id-shaped tokens get a direct detail fetch first; failing that, one bounded
// history page is scanned for a serial match in a pending-borrow state.
func (r *transactionResolver) ResolveBorrow(ctx context.Context, token ScanToken) (*domain.BorrowTransaction, error) {
	if token.Kind == TokenTransactionID {
		txn, err := r.api.GetTransaction(ctx, token.Value)
		if err == nil {
			if isPendingBorrow(txn) {
				return txn, nil
			}
			logger.Debug("Transaction found but not a pending borrow", "id", token.Value, "status", txn.Status)
		} else if !errors.Is(err, apiclient.ErrNotFound) {
			return nil, err
		}
	}

	txns, err := r.api.ListTransactions(ctx, "", 1, r.pageSize)
	if err != nil {
		return nil, err
	}
	for i := range txns {
		if txns[i].Product.SerialNumber == token.Value && isPendingBorrow(&txns[i]) {
			return &txns[i], nil
		}
	}
	return nil, ErrNoPendingRequest
}

// ResolveReturnSerial maps a token to the serial number that keys a return
// check. A transaction id can never key a return check: the token is
// rejected with guidance, carrying the item's serial when the id resolves so
// the caller can re-derive and retry.
func (r *transactionResolver) ResolveReturnSerial(ctx context.Context, token ScanToken) (string, error) {
	if token.Kind == TokenSerialNumber {
		if token.Value == "" {
			return "", ErrSerialRequired
		}
		return token.Value, nil
	}

	txn, err := r.api.GetTransaction(ctx, token.Value)
	if err == nil && txn.Product.SerialNumber != "" {
		return "", fmt.Errorf("%w (item serial: %s)", ErrSerialRequired, txn.Product.SerialNumber)
	}
	return "", ErrSerialRequired
}
