package entity

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOrderRecalculateTotal(t *testing.T) {
	o := &Order{UnitPrice: dec("125.50"), OrderedQuantity: 4}
	require.NoError(t, o.BeforeSave(nil))
	assert.True(t, o.TotalAmount.Equal(dec("502.00")), "got %s", o.TotalAmount)

	o.OrderedQuantity = 1
	o.RecalculateTotal()
	assert.True(t, o.TotalAmount.Equal(dec("125.50")))
}

func TestOrderDerive(t *testing.T) {
	today, _ := ParseDate("2024-06-10")
	past, _ := ParseDate("2024-06-01")
	future, _ := ParseDate("2024-06-15")

	o := &Order{Status: OrderStatusInProduction, ExpectedDeliveryDate: &past}
	o.Derive(today)
	assert.True(t, o.IsDelayed)
	require.NotNil(t, o.DaysRemaining)
	assert.Equal(t, -9, *o.DaysRemaining)

	o.Status = OrderStatusDispatched
	o.Derive(today)
	assert.False(t, o.IsDelayed)

	o = &Order{Status: OrderStatusConfirmed, ExpectedDeliveryDate: &future}
	o.Derive(today)
	assert.False(t, o.IsDelayed)
	assert.Equal(t, 5, *o.DaysRemaining)

	o = &Order{Status: OrderStatusConfirmed}
	o.Derive(today)
	assert.False(t, o.IsDelayed)
	assert.Nil(t, o.DaysRemaining)
}

func TestNextRevision(t *testing.T) {
	assert.Equal(t, "B", NextRevision("A"))
	assert.Equal(t, "Z", NextRevision("Y"))
	assert.Equal(t, "Z.1", NextRevision("Z"))
	assert.Equal(t, "B.1.1", NextRevision("B.1"))
	assert.Equal(t, "A1.1", NextRevision("A1"))
}

func TestDrawingFiles(t *testing.T) {
	assert.True(t, IsAllowedDrawingFile("part.PDF"))
	assert.True(t, IsAllowedDrawingFile("assy.iges"))
	assert.False(t, IsAllowedDrawingFile("notes.txt"))
	assert.Equal(t, "dwg", FileTypeOf("frame.DWG"))
	assert.Equal(t, "drawings/o1/2/frame.dwg", DrawingFilePath("o1", 2, "../../frame.dwg"))
}

func TestProductionRecordCalculate(t *testing.T) {
	r := &ProductionRecord{OKQuantity: 90, ReworkQuantity: 7, RejectionQuantity: 3}
	r.Calculate()
	assert.Equal(t, 100, r.ProducedQuantity)
	assert.True(t, r.OKPercentage.Equal(dec("90")))
	assert.True(t, r.TotalYieldPercentage.Equal(dec("97")))
	assert.True(t, r.RejectionPercentage.Equal(dec("3")))

	r = &ProductionRecord{OKQuantity: 2, ReworkQuantity: 0, RejectionQuantity: 1}
	r.Calculate()
	assert.True(t, r.OKPercentage.Equal(dec("66.67")), "got %s", r.OKPercentage)

	empty := &ProductionRecord{}
	empty.Calculate()
	assert.True(t, empty.TotalYieldPercentage.IsZero())
}

func TestProductionSummaryRecalculate(t *testing.T) {
	s := &ProductionSummary{TotalProduced: 300, TotalOK: 280, TotalRework: 10, TotalRejection: 10}
	s.Recalculate(200)
	assert.True(t, s.CompletionPercentage.Equal(dec("100")))
	assert.True(t, s.OverallYieldPercentage.Equal(dec("96.67")), "got %s", s.OverallYieldPercentage)

	s.Recalculate(0)
	assert.True(t, s.CompletionPercentage.IsZero())
}

func TestOrderMaterialStatus(t *testing.T) {
	om := &OrderMaterial{RequiredQuantity: dec("200"), Status: OrderMaterialPlanned}
	om.IssuedQuantity = dec("150")
	om.RefreshIssueStatus()
	om.Derive()
	assert.Equal(t, OrderMaterialPartiallyIssued, om.Status)
	assert.True(t, om.PendingQuantity.Equal(dec("50")))

	om.IssuedQuantity = dec("200")
	om.RefreshIssueStatus()
	assert.Equal(t, OrderMaterialFullyIssued, om.Status)

	// 需求量上调后回到部分发料
	om.RequiredQuantity = dec("300")
	om.RefreshIssueStatus()
	assert.Equal(t, OrderMaterialPartiallyIssued, om.Status)

	om.IssuedQuantity = decimal.Zero
	om.Status = OrderMaterialFullyIssued
	om.RefreshIssueStatus()
	assert.Equal(t, OrderMaterialPlanned, om.Status)
}

func TestMaterialDerive(t *testing.T) {
	m := &Material{StockQuantity: dec("10"), MinimumStock: dec("10")}
	m.Thickness = decimal.NewNullDecimal(dec("2"))
	m.Derive()
	assert.True(t, m.IsLowStock)
	assert.Equal(t, "T:2", m.Dimensions)
}

func TestDefaultRolePermissions(t *testing.T) {
	perms := DefaultRolePermissions()
	assert.Len(t, perms, len(Roles)*len(Modules))

	lookup := map[string]string{}
	for _, p := range perms {
		lookup[p.Role+"/"+p.Module] = p.AccessLevel
	}
	assert.Equal(t, AccessFull, lookup["admin/audit"])
	assert.Equal(t, AccessFull, lookup["sales/crm"])
	assert.Equal(t, AccessRead, lookup["sales/inspection"])
	assert.Equal(t, AccessNone, lookup["sales/audit"])
	assert.Equal(t, AccessWrite, lookup["production/materials"])
	assert.Equal(t, AccessFull, lookup["production/surface_treatment"])
	assert.Equal(t, AccessRead, lookup["management/audit"])
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		D  Date  `json:"d"`
		P  *Date `json:"p"`
		RF Date  `json:"rf"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-03-05","p":null,"rf":"2024-03-05T10:00:00Z"}`), &payload))
	assert.Equal(t, "2024-03-05", payload.D.String())
	assert.Nil(t, payload.P)
	assert.Equal(t, "2024-03-05", payload.RF.String())

	out, err := json.Marshal(payload.D)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-05"`, string(out))

	_, err = ParseDate("05/03/2024")
	assert.Error(t, err)
}
