package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/xuri/excelize/v2"
)

// 单次导出上限
const maxExportRows = 10000

// ReportService xlsx 导出
type ReportService struct {
	orderRepo    *repository.OrderRepository
	materialRepo *repository.MaterialRepository
	dashboard    *DashboardService
}

func NewReportService(orderRepo *repository.OrderRepository, materialRepo *repository.MaterialRepository, dashboard *DashboardService) *ReportService {
	return &ReportService{orderRepo: orderRepo, materialRepo: materialRepo, dashboard: dashboard}
}

var orderExportHeaders = []string{
	"Quote Number", "PO Number", "Work Order", "Customer", "Project",
	"Quantity", "Order Date", "Expected Delivery", "Actual Delivery",
	"Status", "Progress %", "Priority", "Unit Price", "Total Amount", "Delayed",
}

var materialExportHeaders = []string{
	"Code", "Name", "Type", "Grade", "Dimensions", "Unit",
	"Unit Price", "Stock", "Minimum Stock", "Low Stock", "Active",
}

// newSheet 新建工作簿并写入加粗表头
func newSheet(sheet string, headers []string, widths []float64) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheet, col+"1", h)
		f.SetCellStyle(sheet, col+"1", col+"1", bold)
	}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
	return f, nil
}

// setRow 从第一列开始写一行
func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func dateCell(d *entity.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func stamp() string {
	return time.Now().Format("20060102_150405")
}

// ExportOrders 按列表过滤条件导出订单
func (s *ReportService) ExportOrders(ctx context.Context, filters map[string]string) (*excelize.File, string, error) {
	orders, err := s.orderRepo.FindAllUnpaged(ctx, filters, maxExportRows)
	if err != nil {
		return nil, "", fmt.Errorf("list orders: %w", err)
	}
	sheet := "Orders"
	f, err := newSheet(sheet, orderExportHeaders, []float64{16, 16, 16, 24, 28, 10, 12, 16, 16, 18, 10, 10, 12, 14, 8})
	if err != nil {
		return nil, "", err
	}
	for i := range orders {
		o := &orders[i]
		customer := ""
		if o.Customer != nil {
			customer = o.Customer.CompanyName
		}
		err := setRow(f, sheet, i+2,
			o.QuoteNumber, o.PONumber, o.WorkOrderNumber, customer, o.ProjectName,
			o.OrderedQuantity, o.OrderDate.String(), dateCell(o.ExpectedDeliveryDate), dateCell(o.ActualDeliveryDate),
			o.Status, o.StatusPercentage, o.Priority, o.UnitPrice.InexactFloat64(), o.TotalAmount.InexactFloat64(),
			yesNo(o.IsDelayed),
		)
		if err != nil {
			return nil, "", err
		}
	}
	return f, fmt.Sprintf("orders_%s.xlsx", stamp()), nil
}

// ExportMaterials 物料库存导出
func (s *ReportService) ExportMaterials(ctx context.Context, filters map[string]string) (*excelize.File, string, error) {
	materials, err := s.materialRepo.FindAllUnpaged(ctx, filters, maxExportRows)
	if err != nil {
		return nil, "", fmt.Errorf("list materials: %w", err)
	}
	sheet := "Materials"
	f, err := newSheet(sheet, materialExportHeaders, []float64{14, 28, 16, 10, 20, 6, 12, 12, 14, 10, 8})
	if err != nil {
		return nil, "", err
	}
	for i := range materials {
		m := &materials[i]
		typeName := ""
		if m.MaterialType != nil {
			typeName = m.MaterialType.Name
		}
		err := setRow(f, sheet, i+2,
			m.Code, m.Name, typeName, m.Grade, m.Dimensions, m.Unit,
			m.UnitPrice.InexactFloat64(), m.StockQuantity.InexactFloat64(), m.MinimumStock.InexactFloat64(),
			yesNo(m.IsLowStock), yesNo(m.IsActive),
		)
		if err != nil {
			return nil, "", err
		}
	}
	return f, fmt.Sprintf("materials_%s.xlsx", stamp()), nil
}

// ExportOverview 看板总览导出，两张表：指标与状态分布
func (s *ReportService) ExportOverview(ctx context.Context) (*excelize.File, string, error) {
	ov, err := s.dashboard.Overview(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("dashboard overview: %w", err)
	}
	sheet := "Overview"
	f, err := newSheet(sheet, []string{"Metric", "Value"}, []float64{28, 16})
	if err != nil {
		return nil, "", err
	}
	metrics := []struct {
		name  string
		value interface{}
	}{
		{"Total Orders", ov.Orders.Total},
		{"Active Orders", ov.Orders.Active},
		{"Orders This Month", ov.Orders.ThisMonth},
		{"Delayed Orders", ov.Orders.Delayed},
		{"Active Customers", ov.Customers.Total},
		{"New Customers This Month", ov.Customers.NewThisMonth},
		{"Produced (30 days)", ov.Production.TotalProduced},
		{"OK (30 days)", ov.Production.TotalOK},
		{"Rework (30 days)", ov.Production.TotalRework},
		{"Rejection (30 days)", ov.Production.TotalRejection},
		{"Average Yield %", ov.Production.AvgYield},
		{"Revenue (30 days)", ov.Revenue30Days},
	}
	for i, m := range metrics {
		if err := setRow(f, sheet, i+2, m.name, m.value); err != nil {
			return nil, "", err
		}
	}

	dist := "Status Distribution"
	if _, err := f.NewSheet(dist); err != nil {
		return nil, "", err
	}
	if err := setRow(f, dist, 1, "Status", "Count"); err != nil {
		return nil, "", err
	}
	for i, sc := range ov.StatusDistribution {
		if err := setRow(f, dist, i+2, sc.Status, sc.Count); err != nil {
			return nil, "", err
		}
	}
	return f, fmt.Sprintf("dashboard_overview_%s.xlsx", stamp()), nil
}

// ImportTemplate 物料导入模板
func (s *ReportService) ImportTemplate() (*excelize.File, string, error) {
	f, err := MaterialImportTemplate()
	if err != nil {
		return nil, "", err
	}
	return f, "material_import_template.xlsx", nil
}
