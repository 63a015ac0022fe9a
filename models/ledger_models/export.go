package ledger_models

import (
	"encoding/csv"
	"io"
	"time"
)

// ExportHeader is the column order of the tabular export.
var ExportHeader = []string{"id", "date", "supplier", "status", "gross", "fee", "earning", "net"}

// TransactionRows flattens txns into rows matching ExportHeader.
func TransactionRows(txns []Transaction) [][]string {
	rows := make([][]string, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, []string{
			t.ID.String(),
			t.Date.UTC().Format(time.RFC3339),
			t.Supplier,
			t.Status,
			t.Gross.StringFixed(2),
			t.Fee.StringFixed(2),
			t.Earning.StringFixed(2),
			t.Net.StringFixed(2),
		})
	}
	return rows
}

// WriteCSV writes the header followed by one line per transaction.
func WriteCSV(w io.Writer, txns []Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(TransactionRows(txns)); err != nil {
		return err
	}
	return cw.Error()
}
