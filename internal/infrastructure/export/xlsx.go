// Package export renders ledger reports as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the MIME type of the produced workbooks
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const amountFormat = "#,##0.00"

type sheetWriter struct {
	f      *excelize.File
	sheet  string
	amount int
	bold   int
}

func newSheet(name string) (*sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return nil, err
	}
	format := amountFormat
	amount, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &format})
	if err != nil {
		return nil, err
	}
	return &sheetWriter{f: f, sheet: name, amount: amount, bold: bold}, nil
}

// row writes values starting at column A; decimal values are stored as
// numbers with the amount style
func (s *sheetWriter) row(n int, style int, values ...any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, n)
		if err != nil {
			return err
		}
		if d, ok := v.(decimal.Decimal); ok {
			v = d.InexactFloat64()
			if style == 0 {
				if err := s.f.SetCellStyle(s.sheet, cell, cell, s.amount); err != nil {
					return err
				}
			}
		}
		if err := s.f.SetCellValue(s.sheet, cell, v); err != nil {
			return err
		}
		if style != 0 {
			if err := s.f.SetCellStyle(s.sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *sheetWriter) finish(w io.Writer, widths map[string]float64) error {
	for col, width := range widths {
		if err := s.f.SetColWidth(s.sheet, col, col, width); err != nil {
			return err
		}
	}
	defer s.f.Close()
	if err := s.f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteTrialBalance writes tb as a single-sheet workbook with a totals row
func WriteTrialBalance(w io.Writer, title string, tb *accounting.TrialBalance) error {
	s, err := newSheet("Trial Balance")
	if err != nil {
		return err
	}
	if err := s.row(1, s.bold, title); err != nil {
		return err
	}
	if err := s.row(2, 0, "As of", tb.AsOf.Format("2006-01-02")); err != nil {
		return err
	}
	if err := s.row(4, s.bold, "Code", "Account", "Type", "Debit", "Credit", "Balance"); err != nil {
		return err
	}
	n := 5
	for _, b := range tb.Accounts {
		if err := s.row(n, 0, b.AccountCode, b.AccountName, string(b.AccountType), b.Debit, b.Credit, b.Balance()); err != nil {
			return err
		}
		n++
	}
	if err := s.row(n, s.bold, "", "Total", "", tb.TotalDebit, tb.TotalCredit); err != nil {
		return err
	}
	return s.finish(w, map[string]float64{"A": 12, "B": 40, "C": 12, "D": 18, "E": 18, "F": 18})
}

// WriteAccountLedger writes the lines of one account with running balances
func WriteAccountLedger(w io.Writer, ledger *accounting.AccountLedger) error {
	s, err := newSheet("Ledger")
	if err != nil {
		return err
	}
	header := ledger.Account.Code + " " + ledger.Account.Name
	if err := s.row(1, s.bold, header); err != nil {
		return err
	}
	if err := s.row(2, 0, "Period", ledger.From.Format("2006-01-02")+" to "+ledger.To.Format("2006-01-02")); err != nil {
		return err
	}
	if err := s.row(4, s.bold, "Date", "Entry", "Description", "Source", "Debit", "Credit", "Balance"); err != nil {
		return err
	}
	if err := s.row(5, 0, "", "", "Opening balance", "", "", "", ledger.OpeningBalance); err != nil {
		return err
	}
	n := 6
	for _, l := range ledger.Lines {
		if err := s.row(n, 0, l.EntryDate.Format("2006-01-02"), l.EntryNumber, l.Description,
			string(l.SourceModule), l.Debit, l.Credit, l.RunningBalance); err != nil {
			return err
		}
		n++
	}
	if err := s.row(n, s.bold, "", "", "Closing balance", "", "", "", ledger.ClosingBalance); err != nil {
		return err
	}
	return s.finish(w, map[string]float64{"A": 12, "B": 16, "C": 40, "D": 16, "E": 18, "F": 18, "G": 18})
}
