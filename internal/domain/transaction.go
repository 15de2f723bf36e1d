package domain

import (
	"math"
	"time"
)

type TransactionType string

const (
	TransactionTypeBorrow TransactionType = "borrow"
	TransactionTypeReturn TransactionType = "return"
)

type TransactionStatus string

const (
	StatusPending       TransactionStatus = "pending"
	StatusWaiting       TransactionStatus = "waiting"
	StatusPendingPickup TransactionStatus = "pending_pickup"
	StatusBorrowing     TransactionStatus = "borrowing"
	StatusReturned      TransactionStatus = "returned"
	StatusCompleted     TransactionStatus = "completed"
	StatusFailed        TransactionStatus = "failed"
	StatusCancelled     TransactionStatus = "cancelled"
)

// ReturnCategory buckets return transactions for tab counts and filtering.
type ReturnCategory string

const (
	CategorySuccess    ReturnCategory = "success"
	CategoryFailed     ReturnCategory = "failed"
	CategoryProcessing ReturnCategory = "processing"
)

// ProductRef identifies the physical item instance a transaction is about.
type ProductRef struct {
	SerialNumber string `json:"serialNumber"`
	ProductGroup string `json:"productGroup"`
	Size         string `json:"size"`
}

// BorrowTransaction is one lifecycle event (a borrow or a return) of one
// physical item instance. Status transitions are server-owned; the client
// only reads them.
type BorrowTransaction struct {
	ID           string            `json:"id"`
	Type         TransactionType   `json:"borrowTransactionType"`
	Status       TransactionStatus `json:"status"`
	Product      ProductRef        `json:"product"`
	CustomerID   string            `json:"customerId"`
	BusinessID   string            `json:"businessId"`
	DepositCents int64             `json:"depositCents"`
	BorrowDate   time.Time         `json:"borrowDate"`
	DueDate      time.Time         `json:"dueDate"`
	ReturnedAt   *time.Time        `json:"returnedAt,omitempty"`
}

// ReturnCategory categorizes a return transaction. A non-nil ReturnedAt wins
// over any status value; the backend has been observed to report a failed
// status on returns that did complete.
func (t *BorrowTransaction) ReturnCategory() ReturnCategory {
	if t.ReturnedAt != nil {
		return CategorySuccess
	}
	switch t.Status {
	case StatusFailed, StatusCancelled:
		return CategoryFailed
	case StatusCompleted, StatusReturned:
		return CategorySuccess
	}
	return CategoryProcessing
}

// IsSuccessfulReturn reports whether this transaction is a completed return.
func (t *BorrowTransaction) IsSuccessfulReturn() bool {
	return t.Type == TransactionTypeReturn && t.ReturnCategory() == CategorySuccess
}

// OverdueDays returns how many whole or partial days past due the item is,
// measured at ReturnedAt when the item came back, otherwise at now.
func (t *BorrowTransaction) OverdueDays(now time.Time) int {
	if t.DueDate.IsZero() {
		return 0
	}
	moment := now
	if t.ReturnedAt != nil {
		moment = *t.ReturnedAt
	}
	late := moment.Sub(t.DueDate)
	if late <= 0 {
		return 0
	}
	return int(math.Ceil(late.Hours() / 24))
}

// IsOverdue reports whether the item is or was returned past its due date.
func (t *BorrowTransaction) IsOverdue(now time.Time) bool {
	return t.OverdueDays(now) > 0
}
