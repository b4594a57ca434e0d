package dbModel

import "github.com/shopspring/decimal"

type Holding struct {
	AccountID int64           `db:"account_id"`
	Symbol    string          `db:"symbol"`
	Shares    decimal.Decimal `db:"shares"`
	AvgCost   decimal.Decimal `db:"avg_cost"`
}
