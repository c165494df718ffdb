package httpapi

import (
	"bytes"
	"fmt"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"

	"github.com/xuri/excelize/v2"
)

const propertiesSheet = "Properties"

var propertyExportHeaders = []string{
	"Name",
	"Portfolio",
	"Sub Portfolio",
	"Expedia ID",
	"Expedia Status",
	"Booking ID",
	"Booking Status",
	"Agoda ID",
	"Agoda Status",
	"User Email",
	"Created At",
}

var propertyExportWidths = []float64{30, 25, 25, 15, 15, 15, 15, 15, 15, 30, 20}

// GeneratePropertiesExport 生成物业导出 Excel（不含密码）
func GeneratePropertiesExport(items []domain.Property) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(propertiesSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	// 删除默认的 Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range propertyExportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(propertiesSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(propertiesSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(propertiesSheet, name, name, propertyExportWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, p := range items {
		row := i + 2 // 第1行是表头
		for col, value := range propertyRow(p) {
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(propertiesSheet, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(propertiesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

// propertyRow 与 propertyExportHeaders 顺序一致
func propertyRow(p domain.Property) []string {
	portfolio := ""
	if p.Portfolio != nil {
		portfolio = p.Portfolio.Name
	}
	subPortfolio := ""
	if p.SubPortfolio != nil {
		subPortfolio = p.SubPortfolio.Name
	}
	created := ""
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt.UTC().Format("2006-01-02 15:04:05")
	}
	return []string{
		p.Name,
		portfolio,
		subPortfolio,
		str(p.ExpediaID),
		str(p.ExpediaStatus),
		str(p.BookingID),
		str(p.BookingStatus),
		str(p.AgodaID),
		str(p.AgodaStatus),
		str(p.UserEmail),
		created,
	}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
