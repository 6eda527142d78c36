package service

import (
	"bytes"
	"fmt"
	"time"

	"leadhub-data/internal/domain"

	"github.com/xuri/excelize/v2"
)

// buyerExcelHeader 导出表头（与CSV同列序）
var buyerExcelHeader = []string{
	"Full Name",
	"Phone",
	"Email",
	"City",
	"Property Type",
	"BHK",
	"Purpose",
	"Budget Min",
	"Budget Max",
	"Timeline",
	"Source",
	"Status",
	"Notes",
	"Tags",
	"Updated At",
}

// encodeBuyersXLSX 生成lead导出 Excel 文件
func encodeBuyersXLSX(buyers []*domain.Buyer) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "Buyers"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range buyerExcelHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for rowIdx, b := range buyers {
		row := rowIdx + 2 // 第1行是表头
		values := []any{
			b.FullName,
			b.Phone,
			strOrEmpty(b.Email),
			b.City,
			b.PropertyType,
			strOrEmpty(b.BHK),
			b.Purpose,
			intCellValue(b.BudgetMin),
			intCellValue(b.BudgetMax),
			b.Timeline,
			b.Source,
			b.Status,
			strOrEmpty(b.Notes),
			strOrEmpty(b.Tags),
			b.UpdatedAt.UTC().Format(time.RFC3339),
		}
		for colIdx, v := range values {
			if v == nil || v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, colIdx+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(sheetName, &excelize.Panes{
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

func intCellValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
