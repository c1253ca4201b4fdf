package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ImportResult 导入结果
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// 导入表头（大小写不敏感）
var materialImportColumns = []string{
	"code", "name", "material_type", "unit", "grade", "thickness", "width", "length",
	"unit_price", "minimum_stock", "stock_quantity", "description",
}

func decoderFor(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "gbk", "gb2312":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	case "windows-1252", "cp1252", "latin1", "iso-8859-1":
		return charmap.Windows1252, nil
	}
	return nil, invalid("Unsupported encoding \"%s\".", name)
}

// ImportMaterials 从 CSV/TSV/XLSX 导入材料，按编码新增或更新；类别按名称查找，不存在则创建
func (s *MaterialService) ImportMaterials(ctx context.Context, file *FileUpload, enc string, actor Actor) (*ImportResult, error) {
	rows, err := readImportRows(file, enc)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, invalid("The file contains no data rows.")
	}

	index := map[string]int{}
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"code", "name", "material_type"} {
		if _, ok := index[required]; !ok {
			return nil, invalid("Missing required column \"%s\".", required)
		}
	}

	result := &ImportResult{Errors: []string{}}
	types := map[string]string{}
	for n, row := range rows[1:] {
		line := n + 2
		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if cell("code") == "" {
			result.Skipped++
			continue
		}
		created, err := s.importRow(ctx, cell, types, actor)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", line, err.Error()))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

func (s *MaterialService) importRow(ctx context.Context, cell func(string) string, types map[string]string, actor Actor) (bool, error) {
	typeName := cell("material_type")
	if typeName == "" {
		return false, invalid("material_type is required")
	}
	typeID, ok := types[strings.ToLower(typeName)]
	if !ok {
		t, err := s.repo.TypeByName(ctx, typeName)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			t = &entity.MaterialType{ID: entity.NewID(), Name: typeName, IsActive: true}
			if err := s.repo.Types.Create(ctx, t); err != nil {
				return false, err
			}
		case err != nil:
			return false, err
		}
		typeID = t.ID
		types[strings.ToLower(typeName)] = typeID
	}

	req := &MaterialRequest{MaterialTypeID: &typeID}
	code, name := cell("code"), cell("name")
	req.Code = &code
	if name != "" {
		req.Name = &name
	}
	for col, dst := range map[string]**string{"unit": &req.Unit, "grade": &req.Grade, "description": &req.Description} {
		if v := cell(col); v != "" {
			*dst = &v
		}
	}
	for col, dst := range map[string]**decimal.Decimal{"unit_price": &req.UnitPrice, "minimum_stock": &req.MinimumStock, "stock_quantity": &req.StockQuantity} {
		if v := cell(col); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return false, invalid("%s: A valid number is required.", col)
			}
			*dst = &d
		}
	}
	for col, dst := range map[string]**decimal.NullDecimal{"thickness": &req.Thickness, "width": &req.Width, "length": &req.Length} {
		if v := cell(col); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return false, invalid("%s: A valid number is required.", col)
			}
			nd := decimal.NewNullDecimal(d)
			*dst = &nd
		}
	}

	existing, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		_, err = s.Create(ctx, req, actor)
		return true, err
	}
	if err != nil {
		return false, err
	}
	// 库存只能通过流水变更，导入不覆盖已有材料的库存
	req.StockQuantity = nil
	_, err = s.Update(ctx, existing.ID, req, actor)
	return false, err
}

func readImportRows(file *FileUpload, enc string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".xlsx":
		f, err := excelize.OpenReader(file.Reader)
		if err != nil {
			return nil, invalid("Could not read spreadsheet: %s", err.Error())
		}
		defer f.Close()
		return f.GetRows(f.GetSheetName(0))
	case ".csv", ".tsv", ".txt":
		e, err := decoderFor(enc)
		if err != nil {
			return nil, err
		}
		reader := csv.NewReader(transform.NewReader(file.Reader, e.NewDecoder()))
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		if ext := strings.ToLower(filepath.Ext(file.Name)); ext != ".csv" {
			reader.Comma = '\t'
		}
		var rows [][]string
		for {
			rec, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, invalid("Could not parse file: %s", err.Error())
			}
			rows = append(rows, rec)
		}
		return rows, nil
	}
	return nil, invalid("Unsupported file type. Allowed: .csv, .tsv, .txt, .xlsx")
}

// MaterialImportTemplate 导入模板
func MaterialImportTemplate() (*excelize.File, error) {
	return newSheet("Materials", materialImportColumns, nil)
}
