package receipt

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Transactions"

var exportHeader = []any{"Date", "Merchant", "Amount", "Currency", "Category", "Payment Method", "Notes", "Scan Confidence"}

// WriteTransactionsXLSX writes transactions as a single-sheet workbook
func WriteTransactionsXLSX(w io.Writer, transactions []*Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	// Built-in format 4 is "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	for i, t := range transactions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			t.Date.Format("2006-01-02"),
			t.Merchant,
			centsToDollars(t.Amount).InexactFloat64(),
			t.Currency,
			t.Category,
			string(t.PaymentMethod),
			t.Notes,
			t.ScanConfidence,
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if len(transactions) > 0 {
		last, err := excelize.CoordinatesToCellName(3, len(transactions)+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(exportSheet, "C2", last, moneyStyle); err != nil {
			return fmt.Errorf("styling amounts: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func centsToDollars(cents int) decimal.Decimal {
	return decimal.New(int64(cents), -2)
}

// amountToCents converts an extracted dollar amount without float truncation
func amountToCents(amount float64) int {
	return int(decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart())
}
