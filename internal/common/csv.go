// Package common provides shared CSV output helpers used by the export
// command and anything else that needs transactions in the normalized format.
package common

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"rxledger/bank-import/internal/logging"
	"rxledger/bank-import/internal/models"
)

// Delimiter is the CSV output delimiter, configurable before writing.
var Delimiter rune = ','

// exportRow is the flat shape one transaction takes in the normalized CSV.
type exportRow struct {
	RowNumber      int    `csv:"RowNumber"`
	Date           string `csv:"Date"`
	Description    string `csv:"Description"`
	RawDescription string `csv:"RawDescription"`
	Reference      string `csv:"Reference"`
	Amount         string `csv:"Amount"`
	Balance        string `csv:"Balance"`
	ExternalID     string `csv:"ExternalID"`
	Status         string `csv:"Status"`
	DuplicateOf    string `csv:"DuplicateOf"`
}

func toExportRow(tx models.PersistedTransaction) exportRow {
	row := exportRow{
		RowNumber:      tx.RowNumber,
		Date:           tx.Date.Format("2006-01-02"),
		Description:    tx.Description,
		RawDescription: tx.RawDescription,
		Reference:      tx.Reference,
		Amount:         tx.Amount.StringFixed(2),
		ExternalID:     tx.ExternalID,
		Status:         string(tx.Status),
	}
	if tx.Balance != nil {
		row.Balance = tx.Balance.StringFixed(2)
	}
	if tx.SuspectedDuplicateOf != nil {
		row.DuplicateOf = fmt.Sprintf("%d", *tx.SuspectedDuplicateOf)
	}
	return row
}

// WriteTransactionsCSV writes the transactions in normalized CSV form.
func WriteTransactionsCSV(w io.Writer, txns []models.PersistedTransaction) error {
	rows := make([]exportRow, 0, len(txns))
	for _, tx := range txns {
		rows = append(rows, toExportRow(tx))
	}

	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = Delimiter
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

// ExportTransactionsToCSV writes the transactions to a file, creating parent
// directories as needed.
func ExportTransactionsToCSV(txns []models.PersistedTransaction, csvFile string, log logging.Logger) error {
	log = logging.OrNop(log)
	log.Info("Writing transactions to CSV file",
		logging.Field{Key: logging.FieldFile, Value: csvFile},
		logging.Field{Key: logging.FieldCount, Value: len(txns)})

	if err := os.MkdirAll(filepath.Dir(csvFile), 0o750); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	file, err := os.Create(csvFile)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.WithError(err).Warn("Failed to close file")
		}
	}()

	start := time.Now()
	if err := WriteTransactionsCSV(file, txns); err != nil {
		return err
	}

	log.Info("Successfully wrote transactions to CSV file",
		logging.Field{Key: logging.FieldFile, Value: csvFile},
		logging.Field{Key: "elapsed", Value: time.Since(start).String()})
	return nil
}
