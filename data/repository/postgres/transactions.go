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
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

func (r *Postgres) InsertStockTransaction(ctx context.Context, tx model.StockTransaction) (txID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO stock_transactions(account_id, symbol, kind, shares, price, fees, trade_date)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		RETURNING transaction_id
		`

	slog.Debug("InsertStockTransaction start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertStockTransaction failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertStockTransaction completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(
		ctx, query, tx.AccountID, tx.Symbol, string(tx.Kind), tx.Shares, tx.Price, tx.Fees, tx.Date,
	).Scan(&txID)
	if err != nil {
		return 0, err
	}

	return txID, nil
}

func (r *Postgres) UpdateStockTransaction(ctx context.Context, tx model.StockTransaction) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE stock_transactions
		SET kind = $1, shares = $2, price = $3, fees = $4, trade_date = $5
		WHERE transaction_id = $6
		`

	slog.Debug("UpdateStockTransaction start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateStockTransaction failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateStockTransaction completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, string(tx.Kind), tx.Shares, tx.Price, tx.Fees, tx.Date, tx.ID)
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

func (r *Postgres) DeleteStockTransaction(ctx context.Context, txID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM stock_transactions WHERE transaction_id = $1`

	slog.Debug("DeleteStockTransaction start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteStockTransaction failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteStockTransaction completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, txID)
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

func (r *Postgres) GetStockTransaction(ctx context.Context, txID int64) (tx model.StockTransaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT transaction_id, account_id, symbol, kind, shares, price, fees, trade_date, dt_create
		FROM stock_transactions
		WHERE transaction_id = $1
		`

	slog.Debug("GetStockTransaction start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetStockTransaction failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetStockTransaction completed", slog.String("rqID", rqID))
		}
	}()

	dbTx := dbModel.StockTransaction{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, txID).StructScan(&dbTx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.StockTransaction{}, repository.ErrNotFound
		}
		return model.StockTransaction{}, err
	}

	return dbConverter.ConvertStockTransaction(dbTx), nil
}

// GetStockTransactions возвращает сделки по паре (счёт, бумага) без
// гарантии порядка - сортировка лежит на движке реплея.
func (r *Postgres) GetStockTransactions(ctx context.Context, accountID int64, symbol string) (txs []model.StockTransaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT transaction_id, account_id, symbol, kind, shares, price, fees, trade_date, dt_create
		FROM stock_transactions
		WHERE account_id = $1
		AND symbol = $2
		`

	slog.Debug("GetStockTransactions start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetStockTransactions failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetStockTransactions completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, accountID, symbol)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	dbTxs := make([]dbModel.StockTransaction, 0)
	for rows.Next() {
		var dbTx dbModel.StockTransaction
		err = rows.StructScan(&dbTx)
		if err != nil {
			return nil, err
		}
		dbTxs = append(dbTxs, dbTx)
	}

	return dbConverter.ConvertStockTransactions(dbTxs), nil
}

func (r *Postgres) GetAccountTransactions(ctx context.Context, accountID int64) (txs []model.StockTransaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT transaction_id, account_id, symbol, kind, shares, price, fees, trade_date, dt_create
		FROM stock_transactions
		WHERE account_id = $1
		`

	slog.Debug("GetAccountTransactions start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAccountTransactions failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAccountTransactions completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	dbTxs := make([]dbModel.StockTransaction, 0)
	for rows.Next() {
		var dbTx dbModel.StockTransaction
		err = rows.StructScan(&dbTx)
		if err != nil {
			return nil, err
		}
		dbTxs = append(dbTxs, dbTx)
	}

	return dbConverter.ConvertStockTransactions(dbTxs), nil
}

func (r *Postgres) InsertCashTransaction(ctx context.Context, cashTx model.CashTransaction) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO cash_transactions(account_id, amount, comment, dividend_id, entry_date)
		VALUES($1, $2, $3, $4, $5)
		`

	slog.Debug("InsertCashTransaction start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertCashTransaction failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertCashTransaction completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, cashTx.AccountID, cashTx.Amount, cashTx.Comment, cashTx.DividendID, cashTx.Date)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return err
	}

	return nil
}
