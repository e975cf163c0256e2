// Package parser converts bank CSV exports into canonical transactions.
//
// Header matching is case-insensitive and synonym-tolerant per dialect. Rows
// fail in isolation: a malformed row becomes a ParseError and never aborts
// the rest of the file. Output order matches input order and row numbers are
// 1-based over data rows.
package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"rxledger/bank-import/internal/dateutils"
	"rxledger/bank-import/internal/dialect"
	"rxledger/bank-import/internal/importerr"
	"rxledger/bank-import/internal/logging"
	"rxledger/bank-import/internal/models"
)

// Parser reads statement files for one dialect.
type Parser struct {
	dialect dialect.Dialect
	logger  logging.Logger
}

// New creates a parser for the given dialect. A nil logger is fine.
func New(d dialect.Dialect, logger logging.Logger) *Parser {
	return &Parser{dialect: d, logger: logging.OrNop(logger)}
}

// Parse reads the whole statement. Row-scoped failures come back in the
// second return value; only structural failures (unreadable file, headers
// that match no usable column set) are returned as an error.
func (p *Parser) Parse(r io.Reader) ([]models.CanonicalTransaction, []importerr.ParseError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, &importerr.DialectError{Dialect: p.dialect.Name(), Reason: "file is empty"}
	}
	if err != nil {
		return nil, nil, &importerr.DialectError{Dialect: p.dialect.Name(), Reason: fmt.Sprintf("unreadable CSV header: %v", err)}
	}

	cols, err := p.resolveColumns(header)
	if err != nil {
		return nil, nil, err
	}

	var (
		txns      []models.CanonicalTransaction
		parseErrs []importerr.ParseError
		rowNum    int
	)

	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			rowNum++
			parseErrs = append(parseErrs, importerr.ParseError{
				RowNumber: rowNum,
				Message:   "malformed CSV row",
				RawRow:    record,
				Err:       readErr,
			})
			continue
		}
		if isBlankRow(record) {
			continue
		}
		rowNum++

		tx, perr := p.parseRow(rowNum, record, cols)
		if perr != nil {
			parseErrs = append(parseErrs, *perr)
			continue
		}
		txns = append(txns, tx)
	}

	p.logger.Debug("parsed statement",
		logging.Field{Key: logging.FieldDialect, Value: p.dialect.Name()},
		logging.Field{Key: logging.FieldCount, Value: len(txns)},
		logging.Field{Key: "error_count", Value: len(parseErrs)})

	return txns, parseErrs, nil
}

// columnMap holds the resolved index of each logical column, -1 when absent.
type columnMap struct {
	date        int
	description int
	reference   int
	amount      int
	debit       int
	credit      int
	balance     int
	externalIDs []int // In dialect priority order; first non-empty cell wins
	useSplit    bool
}

func (p *Parser) resolveColumns(header []string) (columnMap, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, exists := index[key]; !exists {
			index[key] = i
		}
	}

	find := func(col dialect.Column) int {
		for _, syn := range p.dialect.Synonyms(col) {
			if i, ok := index[strings.ToLower(syn)]; ok {
				return i
			}
		}
		return -1
	}

	cols := columnMap{
		date:        find(dialect.ColDate),
		description: find(dialect.ColDescription),
		reference:   find(dialect.ColReference),
		amount:      find(dialect.ColAmount),
		debit:       find(dialect.ColDebit),
		credit:      find(dialect.ColCredit),
		balance:     find(dialect.ColBalance),
	}
	for _, syn := range p.dialect.Synonyms(dialect.ColExternalID) {
		if i, ok := index[strings.ToLower(syn)]; ok {
			cols.externalIDs = append(cols.externalIDs, i)
		}
	}

	if cols.date < 0 {
		return cols, &importerr.DialectError{Dialect: p.dialect.Name(), Reason: "no date column found"}
	}

	switch p.dialect.AmountStrategy() {
	case dialect.AmountSigned:
		if cols.amount < 0 {
			return cols, &importerr.DialectError{Dialect: p.dialect.Name(), Reason: "no amount column found"}
		}
	case dialect.AmountSplit:
		if cols.debit < 0 && cols.credit < 0 {
			return cols, &importerr.DialectError{Dialect: p.dialect.Name(), Reason: "no debit/credit columns found"}
		}
		cols.useSplit = true
	default: // AmountAuto
		switch {
		case cols.amount >= 0:
		case cols.debit >= 0 || cols.credit >= 0:
			cols.useSplit = true
		default:
			return cols, &importerr.DialectError{Dialect: p.dialect.Name(), Reason: "no amount or debit/credit columns found"}
		}
	}

	return cols, nil
}

func (p *Parser) parseRow(rowNum int, record []string, cols columnMap) (models.CanonicalTransaction, *importerr.ParseError) {
	fail := func(msg string, err error) *importerr.ParseError {
		return &importerr.ParseError{RowNumber: rowNum, Message: msg, RawRow: record, Err: err}
	}

	rawDate := cell(record, cols.date)
	if rawDate == "" {
		return models.CanonicalTransaction{}, fail("missing date", nil)
	}
	date, err := dateutils.ParseDate(rawDate)
	if err != nil {
		return models.CanonicalTransaction{}, fail(fmt.Sprintf("unparseable date %q", rawDate), err)
	}

	amount, perr := p.parseAmount(record, cols, fail)
	if perr != nil {
		return models.CanonicalTransaction{}, perr
	}

	rawDesc := cell(record, cols.description)
	tx := models.CanonicalTransaction{
		RowNumber:      rowNum,
		Date:           date,
		Description:    models.NormalizeDescription(rawDesc),
		RawDescription: rawDesc,
		Reference:      cell(record, cols.reference),
		Amount:         amount,
	}

	if raw := cell(record, cols.balance); raw != "" {
		if bal, balErr := models.ParseAmount(raw); balErr == nil {
			tx.Balance = &bal
		}
	}

	// Fixed priority scan: first non-empty id-like cell wins; absence is
	// not an error.
	for _, i := range cols.externalIDs {
		if v := cell(record, i); v != "" {
			tx.ExternalID = v
			break
		}
	}

	return tx, nil
}

func (p *Parser) parseAmount(record []string, cols columnMap, fail func(string, error) *importerr.ParseError) (decimal.Decimal, *importerr.ParseError) {
	if !cols.useSplit {
		raw := cell(record, cols.amount)
		if raw == "" {
			return decimal.Zero, fail("missing amount", nil)
		}
		amount, err := models.ParseAmount(raw)
		if err != nil {
			return decimal.Zero, fail(fmt.Sprintf("unparseable amount %q", raw), err)
		}
		return amount, nil
	}

	rawDebit := cell(record, cols.debit)
	rawCredit := cell(record, cols.credit)
	if rawDebit == "" && rawCredit == "" {
		return decimal.Zero, fail("missing amount: debit and credit both empty", nil)
	}

	amount := decimal.Zero
	if rawCredit != "" {
		credit, err := models.ParseAmount(rawCredit)
		if err != nil {
			return decimal.Zero, fail(fmt.Sprintf("unparseable credit amount %q", rawCredit), err)
		}
		amount = amount.Add(credit)
	}
	if rawDebit != "" {
		debit, err := models.ParseAmount(rawDebit)
		if err != nil {
			return decimal.Zero, fail(fmt.Sprintf("unparseable debit amount %q", rawDebit), err)
		}
		// Debit-side values are outflows regardless of how the export signs
		// them; the magnitude is always subtracted.
		amount = amount.Sub(debit.Abs())
	}

	return amount, nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func isBlankRow(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
