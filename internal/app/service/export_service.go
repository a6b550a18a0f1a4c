package service

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const ExportSheetName = "Cart"

var exportHeader = []interface{}{"Product ID", "Name", "Vendor", "Unit Price", "Quantity", "Line Total"}

type ExportService interface {
	WriteXLSX(w io.Writer, state model.CartState) error
	ReadXLSX(r io.Reader) (*model.Snapshot, int, error)
}

type exportService struct{}

func NewExportService() ExportService {
	return &exportService{}
}

// moneyNumFmt is the built-in "0.00" number format. Cells keep the raw
// price; only the display is rounded.
const moneyNumFmt = 2

// WriteXLSX writes the cart as a one-sheet workbook: a header row, one row
// per line item and a totals row.
func (s *exportService) WriteXLSX(w io.Writer, state model.CartState) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	if err := f.SetSheetRow(ExportSheetName, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, item := range state.Items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			item.Product.ID,
			item.Product.Name,
			item.Product.Vendor,
			item.UnitPrice,
			item.Quantity,
			item.UnitPrice * float64(item.Quantity),
		}
		if err := f.SetSheetRow(ExportSheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	totalsRow := len(state.Items) + 2
	totalsCell, err := excelize.CoordinatesToCellName(1, totalsRow)
	if err != nil {
		return err
	}
	totals := []interface{}{"Total", "", "", "", state.ItemCount, state.Total}
	if err := f.SetSheetRow(ExportSheetName, totalsCell, &totals); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}

	// Unit Price(D), Line Total(F) 열에 금액 서식 적용
	if len(state.Items) > 0 {
		if err := f.SetCellStyle(ExportSheetName, "D2", fmt.Sprintf("D%d", totalsRow-1), moneyStyle); err != nil {
			return fmt.Errorf("failed to style prices: %w", err)
		}
	}
	if err := f.SetCellStyle(ExportSheetName, "F2", fmt.Sprintf("F%d", totalsRow), moneyStyle); err != nil {
		return fmt.Errorf("failed to style totals: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	logger.Debug("Cart exported", map[string]interface{}{
		"rows": len(state.Items),
	})
	return nil
}

// ReadXLSX parses a workbook in the WriteXLSX layout back into a snapshot.
// Rows without a product id or with an unparsable price or quantity are
// skipped and counted. Reading stops at the totals row.
func (s *exportService) ReadXLSX(r io.Reader) (*model.Snapshot, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := ExportSheetName
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, 0, fmt.Errorf("no sheets found in workbook")
	}

	// 표시 서식이 아닌 저장된 값을 읽음
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}

	snapshot := &model.Snapshot{Items: []model.LineItem{}}
	skipped := 0

	// 첫 행은 헤더
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) > 0 && strings.TrimSpace(row[0]) == "Total" {
			break
		}
		if len(row) < 5 {
			skipped++
			continue
		}

		id := strings.TrimSpace(row[0])
		price, errPrice := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		quantity, errQty := strconv.Atoi(strings.TrimSpace(row[4]))
		if id == "" || errPrice != nil || errQty != nil ||
			price < 0 || math.IsNaN(price) || math.IsInf(price, 0) || quantity < 1 {
			skipped++
			continue
		}

		snapshot.Items = append(snapshot.Items, model.LineItem{
			Product: model.Product{
				ID:     id,
				Name:   strings.TrimSpace(row[1]),
				Price:  price,
				Vendor: strings.TrimSpace(row[2]),
			},
			Quantity:   quantity,
			UnitPrice:  price,
			TotalPrice: price * float64(quantity),
		})
	}

	snapshot.ItemCount, snapshot.Total = model.Totals(snapshot.Items)

	logger.Debug("Cart imported", map[string]interface{}{
		"rows":    len(snapshot.Items),
		"skipped": skipped,
	})
	return snapshot, skipped, nil
}
