package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/KotFed0t/fin_tracker/data/repository"
	"github.com/KotFed0t/fin_tracker/internal/converter/dbConverter"
	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/KotFed0t/fin_tracker/internal/model/dbModel"
	"github.com/KotFed0t/fin_tracker/utils"
	"github.com/jackc/pgx/v5/pgconn"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// UpsertHolding перезаписывает производную позицию. Единственный легальный
// источник значений - полный реплей истории сделок.
func (r *Postgres) UpsertHolding(ctx context.Context, holding model.Holding) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO holdings(account_id, symbol, shares, avg_cost)
		VALUES($1, $2, $3, $4)
		ON CONFLICT (account_id, symbol)
		DO UPDATE SET shares = EXCLUDED.shares, avg_cost = EXCLUDED.avg_cost
		`

	slog.Debug("UpsertHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpsertHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertHolding completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, holding.AccountID, holding.Symbol, holding.Shares, holding.AvgCost)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) GetHolding(ctx context.Context, accountID int64, symbol string) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT account_id, symbol, shares, avg_cost
		FROM holdings
		WHERE account_id = $1
		AND symbol = $2
		`

	slog.Debug("GetHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHolding completed", slog.String("rqID", rqID))
		}
	}()

	dbHolding := dbModel.Holding{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, accountID, symbol).StructScan(&dbHolding)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Holding{}, repository.ErrNotFound
		}
		return model.Holding{}, err
	}

	return dbConverter.ConvertHolding(dbHolding), nil
}

// GetOpenHoldings возвращает позиции с ненулевым остатком по всем счетам.
// Используется джобами прогрева котировок и поиска дивидендов.
func (r *Postgres) GetOpenHoldings(ctx context.Context) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT account_id, symbol, shares, avg_cost
		FROM holdings
		WHERE shares > 0
		ORDER BY account_id, symbol
		`

	slog.Debug("GetOpenHoldings start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetOpenHoldings failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetOpenHoldings completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbHolding dbModel.Holding
		err = rows.StructScan(&dbHolding)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, dbConverter.ConvertHolding(dbHolding))
	}

	return holdings, nil
}

func (r *Postgres) GetAccountHoldings(ctx context.Context, accountID int64) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT account_id, symbol, shares, avg_cost
		FROM holdings
		WHERE account_id = $1
		ORDER BY symbol
		`

	slog.Debug("GetAccountHoldings start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAccountHoldings failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAccountHoldings completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbHolding dbModel.Holding
		err = rows.StructScan(&dbHolding)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, dbConverter.ConvertHolding(dbHolding))
	}

	return holdings, nil
}
