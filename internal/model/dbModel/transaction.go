package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockTransaction struct {
	TransactionID int64           `db:"transaction_id"`
	AccountID     int64           `db:"account_id"`
	Symbol        string          `db:"symbol"`
	Kind          string          `db:"kind"`
	Shares        decimal.Decimal `db:"shares"`
	Price         decimal.Decimal `db:"price"`
	Fees          decimal.Decimal `db:"fees"`
	TradeDate     time.Time       `db:"trade_date"`
	CreatedAt     time.Time       `db:"dt_create"`
}

type CashTransaction struct {
	CashTransactionID int64           `db:"cash_transaction_id"`
	AccountID         int64           `db:"account_id"`
	Amount            decimal.Decimal `db:"amount"`
	Comment           string          `db:"comment"`
	DividendID        int64           `db:"dividend_id"`
	EntryDate         time.Time       `db:"entry_date"`
}
