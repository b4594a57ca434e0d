package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Dividend struct {
	DividendID     int64           `db:"dividend_id"`
	AccountID      int64           `db:"account_id"`
	Symbol         string          `db:"symbol"`
	ExDate         time.Time       `db:"ex_date"`
	PayDate        time.Time       `db:"pay_date"`
	AmountPerShare decimal.Decimal `db:"amount_per_share"`
	SharesHeld     decimal.Decimal `db:"shares_held"`
	GrossAmount    decimal.Decimal `db:"gross_amount"`
	TaxRate        decimal.Decimal `db:"tax_rate"`
	TaxAmount      decimal.Decimal `db:"tax_amount"`
	NetAmount      decimal.Decimal `db:"net_amount"`
	PayoutCreated  bool            `db:"payout_created"`
}
