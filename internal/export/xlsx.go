package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/fundweb/fundsync/internal/domain"
)

const sheetName = "Funds"

// WriteXLSX renders the directory as an xlsx workbook onto w.
func WriteXLSX(w io.Writer, funds domain.FundSet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for i, row := range buildRows(funds) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("computing cell name: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// XLSXFileWriter implements SheetWriter against a local file path.
type XLSXFileWriter struct {
	path string
}

// NewXLSXFileWriter creates a writer that saves the workbook to path.
func NewXLSXFileWriter(path string) *XLSXFileWriter {
	return &XLSXFileWriter{path: path}
}

func (x *XLSXFileWriter) Write(_ context.Context, funds domain.FundSet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	for i, row := range buildRows(funds) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("computing cell name: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(x.path); err != nil {
		return fmt.Errorf("saving workbook to %s: %w", x.path, err)
	}
	return nil
}
