package dbConverter

import (
	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/KotFed0t/fin_tracker/internal/model/dbModel"
)

func ConvertStockTransaction(dbTx dbModel.StockTransaction) model.StockTransaction {
	return model.StockTransaction{
		ID:        dbTx.TransactionID,
		AccountID: dbTx.AccountID,
		Symbol:    dbTx.Symbol,
		Kind:      model.TxKind(dbTx.Kind),
		Shares:    dbTx.Shares,
		Price:     dbTx.Price,
		Fees:      dbTx.Fees,
		Date:      dbTx.TradeDate,
	}
}

func ConvertStockTransactions(dbTxs []dbModel.StockTransaction) []model.StockTransaction {
	txs := make([]model.StockTransaction, 0, len(dbTxs))
	for _, dbTx := range dbTxs {
		txs = append(txs, ConvertStockTransaction(dbTx))
	}
	return txs
}

func ConvertHolding(dbHolding dbModel.Holding) model.Holding {
	return model.Holding{
		AccountID: dbHolding.AccountID,
		Symbol:    dbHolding.Symbol,
		Shares:    dbHolding.Shares,
		AvgCost:   dbHolding.AvgCost,
	}
}

func ConvertDividend(dbDividend dbModel.Dividend) model.Dividend {
	return model.Dividend{
		ID:             dbDividend.DividendID,
		AccountID:      dbDividend.AccountID,
		Symbol:         dbDividend.Symbol,
		ExDate:         dbDividend.ExDate,
		PayDate:        dbDividend.PayDate,
		AmountPerShare: dbDividend.AmountPerShare,
		SharesHeld:     dbDividend.SharesHeld,
		GrossAmount:    dbDividend.GrossAmount,
		TaxRate:        dbDividend.TaxRate,
		TaxAmount:      dbDividend.TaxAmount,
		NetAmount:      dbDividend.NetAmount,
		PayoutCreated:  dbDividend.PayoutCreated,
	}
}
