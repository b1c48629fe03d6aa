package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the media type of generated spreadsheets
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var balanceExportHeader = []string{"Código", "SKU", "Unidade", "Local", "Quantidade", "Estoque mínimo", "Abaixo do mínimo"}

var assetExportHeader = []string{"Patrimônio", "Nome", "Nº de série", "Status", "Local", "Cliente", "Aquisição", "Valor"}

// Export is a generated file ready to be streamed
type Export struct {
	Filename    string
	ContentType string
	Content     []byte
}

type ExportService interface {
	ExportBalances(ctx context.Context, filter repository.BalanceFilter) (*Export, error)
	ExportAssets(ctx context.Context, filter repository.AssetFilter) (*Export, error)
}

type exportService struct {
	stockRepo repository.StockRepository
	assetRepo repository.AssetRepository
	now       func() time.Time
}

func NewExportService(stockRepo repository.StockRepository, assetRepo repository.AssetRepository) ExportService {
	return &exportService{stockRepo: stockRepo, assetRepo: assetRepo, now: time.Now}
}

func (s *exportService) ExportBalances(ctx context.Context, filter repository.BalanceFilter) (*Export, error) {
	balances, err := s.stockRepo.AllBalances(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}

	rows := make([][]interface{}, 0, len(balances))
	for _, b := range balances {
		var code, name, unit, location string
		minStock := 0
		if b.SKU != nil {
			code, name, unit, minStock = b.SKU.Code, b.SKU.Name, b.SKU.Unit, b.SKU.MinStock
		}
		if b.Location != nil {
			location = b.Location.Name
		}
		below := "Não"
		if b.Quantity < minStock {
			below = "Sim"
		}
		rows = append(rows, []interface{}{code, name, unit, location, b.Quantity, minStock, below})
	}

	content, err := writeSheet("Estoque", balanceExportHeader, rows)
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    "estoque-" + s.now().Format("20060102-150405") + ".xlsx",
		ContentType: XLSXContentType,
		Content:     content,
	}, nil
}

func (s *exportService) ExportAssets(ctx context.Context, filter repository.AssetFilter) (*Export, error) {
	assets, err := s.assetRepo.All(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	rows := make([][]interface{}, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, assetRow(a))
	}

	content, err := writeSheet("Patrimônio", assetExportHeader, rows)
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    "patrimonio-" + s.now().Format("20060102-150405") + ".xlsx",
		ContentType: XLSXContentType,
		Content:     content,
	}, nil
}

func assetRow(a model.Asset) []interface{} {
	var location, company, acquired string
	if a.Location != nil {
		location = a.Location.Name
	}
	if a.Company != nil {
		company = a.Company.Name
	}
	if a.AcquiredAt != nil {
		acquired = a.AcquiredAt.Format("2006-01-02")
	}
	value, _ := a.Value.Float64()
	return []interface{}{a.Tag, a.Name, a.SerialNumber, a.Status, location, company, acquired, value}
}

// writeSheet renders a single-sheet workbook with a bold header row
func writeSheet(sheet string, header []string, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}
