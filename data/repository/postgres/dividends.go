package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/fin_tracker/data/repository"
	"github.com/KotFed0t/fin_tracker/internal/converter/dbConverter"
	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/KotFed0t/fin_tracker/internal/model/dbModel"
	"github.com/KotFed0t/fin_tracker/utils"
)

// InsertDividend создаёт запись о дивиденде. Уникальность по
// (account_id, symbol, ex_date) держит БД - джоба поиска дивидендов может
// бежать одновременно с ручным вводом, проверки в памяти недостаточно.
func (r *Postgres) InsertDividend(ctx context.Context, dividend model.Dividend) (dividendID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO dividends(
			account_id, symbol, ex_date, pay_date, amount_per_share,
			shares_held, gross_amount, tax_rate, tax_amount, net_amount
		)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING dividend_id
		`

	slog.Debug("InsertDividend start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertDividend failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertDividend completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(
		ctx, query,
		dividend.AccountID, dividend.Symbol, dividend.ExDate, dividend.PayDate, dividend.AmountPerShare,
		dividend.SharesHeld, dividend.GrossAmount, dividend.TaxRate, dividend.TaxAmount, dividend.NetAmount,
	).Scan(&dividendID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrAlreadyExists
		}
		return 0, err
	}

	return dividendID, nil
}

func (r *Postgres) GetAccountDividends(ctx context.Context, accountID int64) (dividends []model.Dividend, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT dividend_id, account_id, symbol, ex_date, pay_date, amount_per_share,
			shares_held, gross_amount, tax_rate, tax_amount, net_amount, payout_created
		FROM dividends
		WHERE account_id = $1
		ORDER BY ex_date
		`

	slog.Debug("GetAccountDividends start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAccountDividends failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAccountDividends completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbDividend dbModel.Dividend
		err = rows.StructScan(&dbDividend)
		if err != nil {
			return nil, err
		}
		dividends = append(dividends, dbConverter.ConvertDividend(dbDividend))
	}

	return dividends, nil
}

// GetDividendExDates возвращает уже записанные даты отсечки по паре
// (счёт, бумага) - джоба поиска пропускает их при обходе истории провайдера.
func (r *Postgres) GetDividendExDates(ctx context.Context, accountID int64, symbol string) (exDates []time.Time, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT ex_date
		FROM dividends
		WHERE account_id = $1
		AND symbol = $2
		`

	slog.Debug("GetDividendExDates start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetDividendExDates failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetDividendExDates completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, accountID, symbol)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var exDate time.Time
		err = rows.Scan(&exDate)
		if err != nil {
			return nil, err
		}
		exDates = append(exDates, exDate)
	}

	return exDates, nil
}

// GetUnpaidDueDividends возвращает записи, чья дата выплаты прошла, а
// денежная проводка ещё не создана.
func (r *Postgres) GetUnpaidDueDividends(ctx context.Context, asOf time.Time) (dividends []model.Dividend, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT dividend_id, account_id, symbol, ex_date, pay_date, amount_per_share,
			shares_held, gross_amount, tax_rate, tax_amount, net_amount, payout_created
		FROM dividends
		WHERE payout_created = false
		AND pay_date <= $1
		ORDER BY pay_date
		`

	slog.Debug("GetUnpaidDueDividends start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetUnpaidDueDividends failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUnpaidDueDividends completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, asOf)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbDividend dbModel.Dividend
		err = rows.StructScan(&dbDividend)
		if err != nil {
			return nil, err
		}
		dividends = append(dividends, dbConverter.ConvertDividend(dbDividend))
	}

	return dividends, nil
}

func (r *Postgres) MarkDividendPayoutCreated(ctx context.Context, dividendID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE dividends
		SET payout_created = true
		WHERE dividend_id = $1
		AND payout_created = false
		`

	slog.Debug("MarkDividendPayoutCreated start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("MarkDividendPayoutCreated failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("MarkDividendPayoutCreated completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, dividendID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
