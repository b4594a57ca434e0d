package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/KotFed0t/fin_tracker/data/repository"
	"github.com/KotFed0t/fin_tracker/utils"
	"github.com/shopspring/decimal"
)

func (r *Postgres) RegUser(ctx context.Context, login string, taxRate decimal.Decimal) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO users(login, tax_rate) VALUES($1, $2) RETURNING user_id`

	slog.Debug("RegUser start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("RegUser failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("RegUser completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, login, taxRate).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrAlreadyExists
		}
		return 0, err
	}

	return userID, nil
}

func (r *Postgres) CreateAccount(ctx context.Context, userID int64, name string) (accountID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO accounts(user_id, name) VALUES($1, $2) RETURNING account_id`

	slog.Debug("CreateAccount start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CreateAccount failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreateAccount completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, userID, name).Scan(&accountID)
	if err != nil {
		return 0, err
	}

	return accountID, nil
}

// GetTaxRateForAccount возвращает текущую ставку налога владельца счёта.
// Ставка снимается в момент создания записи о дивиденде и задним числом
// к историческим записям не применяется.
func (r *Postgres) GetTaxRateForAccount(ctx context.Context, accountID int64) (taxRate decimal.Decimal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT u.tax_rate
		FROM users u
		JOIN accounts a ON a.user_id = u.user_id
		WHERE a.account_id = $1
		`

	slog.Debug("GetTaxRateForAccount start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTaxRateForAccount failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTaxRateForAccount completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, accountID).Scan(&taxRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, repository.ErrNotFound
		}
		return decimal.Zero, err
	}

	return taxRate, nil
}

func (r *Postgres) UpdateTaxRate(ctx context.Context, userID int64, taxRate decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE users SET tax_rate = $1 WHERE user_id = $2`

	slog.Debug("UpdateTaxRate start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateTaxRate failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateTaxRate completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, taxRate, userID)
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
