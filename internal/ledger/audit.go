package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Audit replays the whole transaction log and checks that every account and
// card balance equals the sum of the log's effects on it. It reads without
// locking, so run it while no mutations are in flight.
func (e *Engine) Audit(ctx context.Context) error {
	const op = "Audit"

	expected := make(map[string]decimal.Decimal)
	page := domain.PageRequest{Size: domain.MaxPageSize}
	for {
		res, err := e.stores.Transactions.FindPage(ctx, domain.TransactionFilter{}, page)
		if err != nil {
			return opError(op, decimal.Zero, err)
		}
		for i := range res.Items {
			for ref, delta := range res.Items[i].Effects() {
				expected[ref] = expected[ref].Add(delta)
			}
		}
		if res.NextCursor == 0 {
			break
		}
		page.After = res.NextCursor
	}

	actual := make(map[string]decimal.Decimal)
	accounts, err := e.stores.Accounts.ListAll(ctx)
	if err != nil {
		return opError(op, decimal.Zero, err)
	}
	for _, a := range accounts {
		actual[a.AccountNumber] = a.Balance
	}
	cards, err := e.stores.Cards.ListAll(ctx)
	if err != nil {
		return opError(op, decimal.Zero, err)
	}
	for _, c := range cards {
		actual[c.ID.String()] = c.Balance
	}

	var problems []string
	for ref, balance := range actual {
		if want := expected[ref]; !balance.Equal(want) {
			problems = append(problems, fmt.Sprintf("%s balance %s, log says %s", ref, balance, want))
		}
	}
	for ref := range expected {
		if _, ok := actual[ref]; !ok {
			problems = append(problems, fmt.Sprintf("%s in log but not on record", ref))
		}
	}
	if len(problems) == 0 {
		return nil
	}

	slices.Sort(problems)
	return opError(op, decimal.Zero, fmt.Errorf("%s: %w", strings.Join(problems, "; "), domain.ErrIntegrityViolation))
}
