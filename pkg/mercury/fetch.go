package mercury

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of accounts fetched in parallel by FetchAll.
const DefaultConcurrency = 4

// FetchAll fetches the settled transactions of every account in accountIDs.
// Accounts are independent, so up to concurrency of them are fetched at
// once. The result keeps the order of accountIDs. The first failing account
// aborts the fetch and its *RemoteFetchError is returned.
func (c *Client) FetchAll(ctx context.Context, accountIDs []string, concurrency int) ([]AccountTransactions, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]AccountTransactions, len(accountIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, accountID := range accountIDs {
		i, accountID := i, accountID
		g.Go(func() error {
			txns, err := c.ListTransactions(ctx, accountID)
			if err != nil {
				return err
			}
			results[i] = AccountTransactions{
				AccountID:    accountID,
				Transactions: txns,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
