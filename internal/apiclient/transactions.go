package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"packloop-client/internal/domain"
)

// envelope is the outer wrapper every platform endpoint uses.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// decodeTransactionList normalizes the two list layouts the backend is known
// to serve: {"data":{"items":[...]}} and {"data":[...]}. Nothing outside this
// package ever sees the difference.
func decodeTransactionList(raw json.RawMessage) ([]domain.BorrowTransaction, error) {
	var list []domain.BorrowTransaction
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Items []domain.BorrowTransaction `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("unrecognized transaction list shape: %w", err)
	}
	return wrapped.Items, nil
}

// ListTransactions fetches one page of the business's transaction history.
// An empty status fetches all statuses.
func (c *Client) ListTransactions(ctx context.Context, status string, page, pageSize int) ([]domain.BorrowTransaction, error) {
	if pageSize <= 0 || pageSize > c.historyPageSize {
		pageSize = c.historyPageSize
	}
	if page <= 0 {
		page = 1
	}
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"pageSize": {strconv.Itoa(pageSize)},
	}
	if status != "" {
		query.Set("status", status)
	}

	var env envelope
	if err := c.getJSON(ctx, "/business/transactions", query, &env); err != nil {
		return nil, err
	}
	return decodeTransactionList(env.Data)
}

// GetTransaction fetches one transaction by its server-assigned id.
func (c *Client) GetTransaction(ctx context.Context, id string) (*domain.BorrowTransaction, error) {
	var env envelope
	if err := c.getJSON(ctx, "/business/transactions/"+url.PathEscape(id), nil, &env); err != nil {
		return nil, err
	}
	var txn domain.BorrowTransaction
	if err := json.Unmarshal(env.Data, &txn); err != nil {
		return nil, fmt.Errorf("unrecognized transaction detail shape: %w", err)
	}
	return &txn, nil
}

// ConfirmBorrow confirms a pending borrow request. The request carries no
// body; the transaction id alone drives the transition.
func (c *Client) ConfirmBorrow(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/business/transactions/"+url.PathEscape(id)+"/confirm", nil, nil)
}
