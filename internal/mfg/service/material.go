package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const materialTransactionHistoryLimit = 50

// MaterialService 材料、库存与订单物料
type MaterialService struct {
	db   *gorm.DB
	repo *repository.MaterialRepository
}

func NewMaterialService(db *gorm.DB, repo *repository.MaterialRepository) *MaterialService {
	return &MaterialService{db: db, repo: repo}
}

// ==================== 材料类别 ====================

// MasterDataRequest 主数据通用字段
type MasterDataRequest struct {
	Name        *string `json:"name"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (s *MaterialService) ListTypes(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.MaterialType, int64, error) {
	return s.repo.Types.FindAll(ctx, page, pageSize, filters)
}

func (s *MaterialService) GetType(ctx context.Context, id string) (*entity.MaterialType, error) {
	return s.repo.Types.FindByID(ctx, id)
}

func (s *MaterialService) CreateType(ctx context.Context, req *MasterDataRequest) (*entity.MaterialType, error) {
	t := &entity.MaterialType{ID: entity.NewID(), IsActive: true}
	applyMaster(&t.Name, nil, &t.Description, &t.IsActive, req)
	if strings.TrimSpace(t.Name) == "" {
		return nil, invalid("name: This field may not be blank.")
	}
	if err := s.repo.Types.Create(ctx, t); err != nil {
		return nil, duplicateAs(err, "material type with this name already exists.")
	}
	return t, nil
}

func (s *MaterialService) UpdateType(ctx context.Context, id string, req *MasterDataRequest) (*entity.MaterialType, error) {
	t, err := s.repo.Types.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyMaster(&t.Name, nil, &t.Description, &t.IsActive, req)
	if err := s.repo.Types.Update(ctx, t); err != nil {
		return nil, duplicateAs(err, "material type with this name already exists.")
	}
	return t, nil
}

func (s *MaterialService) DeleteType(ctx context.Context, id string) error {
	n, err := s.repo.Types.CountReferences(ctx, entity.Material{}.TableName(), "material_type_id", id)
	if err != nil {
		return err
	}
	if n > 0 {
		return invalid("Cannot delete a material type that is used by materials.")
	}
	return s.repo.Types.Delete(ctx, id)
}

// ==================== 材料 ====================

// MaterialRequest 创建/更新材料
type MaterialRequest struct {
	MaterialTypeID *string              `json:"material_type_id"`
	Code           *string              `json:"code"`
	Name           *string              `json:"name"`
	Description    *string              `json:"description"`
	Grade          *string              `json:"grade"`
	Thickness      *decimal.NullDecimal `json:"thickness"`
	Width          *decimal.NullDecimal `json:"width"`
	Length         *decimal.NullDecimal `json:"length"`
	Unit           *string              `json:"unit"`
	UnitPrice      *decimal.Decimal     `json:"unit_price"`
	StockQuantity  *decimal.Decimal     `json:"stock_quantity"`
	MinimumStock   *decimal.Decimal     `json:"minimum_stock"`
	IsActive       *bool                `json:"is_active"`
}

func (r *MaterialRequest) apply(m *entity.Material, allowStock bool) error {
	if r.MaterialTypeID != nil {
		m.MaterialTypeID = *r.MaterialTypeID
	}
	if r.Code != nil {
		m.Code = strings.TrimSpace(*r.Code)
	}
	if r.Name != nil {
		m.Name = *r.Name
	}
	if r.Description != nil {
		m.Description = *r.Description
	}
	if r.Grade != nil {
		m.Grade = *r.Grade
	}
	if r.Thickness != nil {
		m.Thickness = *r.Thickness
	}
	if r.Width != nil {
		m.Width = *r.Width
	}
	if r.Length != nil {
		m.Length = *r.Length
	}
	if r.Unit != nil {
		m.Unit = *r.Unit
	}
	if r.UnitPrice != nil {
		m.UnitPrice = *r.UnitPrice
	}
	if r.MinimumStock != nil {
		m.MinimumStock = *r.MinimumStock
	}
	if r.StockQuantity != nil {
		if !allowStock && !r.StockQuantity.Equal(m.StockQuantity) {
			return invalid("stock_quantity can only be changed through adjust_stock or issue.")
		}
		m.StockQuantity = *r.StockQuantity
	}
	if r.IsActive != nil {
		m.IsActive = *r.IsActive
	}
	return validateMaterial(m)
}

func validateMaterial(m *entity.Material) error {
	switch {
	case m.Code == "":
		return invalid("code: This field may not be blank.")
	case m.Name == "":
		return invalid("name: This field may not be blank.")
	case m.MaterialTypeID == "":
		return invalid("material_type_id: This field is required.")
	case !entity.IsValidUnit(m.Unit):
		return invalid("\"%s\" is not a valid choice.", m.Unit)
	case m.UnitPrice.IsNegative(), m.StockQuantity.IsNegative(), m.MinimumStock.IsNegative():
		return invalid("Quantities and prices must not be negative.")
	}
	return nil
}

func (s *MaterialService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Material, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *MaterialService) Get(ctx context.Context, id string) (*entity.Material, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *MaterialService) Create(ctx context.Context, req *MaterialRequest, actor Actor) (*entity.Material, error) {
	m := &entity.Material{
		ID:            entity.NewID(),
		Unit:          "kg",
		UnitPrice:     decimal.Zero,
		StockQuantity: decimal.Zero,
		MinimumStock:  decimal.Zero,
		IsActive:      true,
	}
	if err := req.apply(m, true); err != nil {
		return nil, err
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := ensureExists(tx, &entity.MaterialType{}, m.MaterialTypeID, "material_type_id"); err != nil {
			return err
		}
		return duplicateAs(createEntity(tx, m), "material with this code already exists.")
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, m.ID)
}

func (s *MaterialService) Update(ctx context.Context, id string, req *MaterialRequest, actor Actor) (*entity.Material, error) {
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		m, err := lockByID[entity.Material](tx, id)
		if err != nil {
			return err
		}
		if err := req.apply(m, false); err != nil {
			return err
		}
		if req.MaterialTypeID != nil {
			if err := ensureExists(tx, &entity.MaterialType{}, m.MaterialTypeID, "material_type_id"); err != nil {
				return err
			}
		}
		return duplicateAs(saveEntity(tx, m), "material with this code already exists.")
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// Delete 被订单物料引用的材料不能删除
func (s *MaterialService) Delete(ctx context.Context, id string, actor Actor) error {
	n, err := s.repo.CountOrderUsage(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return invalid("Cannot delete a material that is allocated to orders.")
	}
	return inTx(ctx, s.db, func(tx *gorm.DB) error {
		m, err := lockByID[entity.Material](tx, id)
		if err != nil {
			return err
		}
		if err := tx.Where("material_id = ?", id).Delete(&entity.MaterialTransaction{}).Error; err != nil {
			return err
		}
		return repository.Translate(tx.Delete(m).Error)
	})
}

func (s *MaterialService) LowStock(ctx context.Context) ([]entity.Material, error) {
	return s.repo.LowStock(ctx)
}

// StockAdjustmentRequest 入库/报废/盘点
type StockAdjustmentRequest struct {
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	TransactionType string          `json:"transaction_type" binding:"required"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
}

// AdjustStock receipt 增加，scrap 扣减且不得超过库存，adjustment 直接设为盘点数量
func (s *MaterialService) AdjustStock(ctx context.Context, id string, req *StockAdjustmentRequest, actor Actor) (*entity.Material, error) {
	switch req.TransactionType {
	case entity.TransactionReceipt, entity.TransactionScrap, entity.TransactionAdjustment:
	default:
		return nil, invalid("\"%s\" is not a valid choice.", req.TransactionType)
	}
	if req.Quantity.IsNegative() {
		return nil, invalid("quantity: Ensure this value is greater than or equal to 0.")
	}

	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		m, err := lockByID[entity.Material](tx, id)
		if err != nil {
			return err
		}
		stockBefore := m.StockQuantity
		switch req.TransactionType {
		case entity.TransactionReceipt:
			m.StockQuantity = m.StockQuantity.Add(req.Quantity)
		case entity.TransactionScrap:
			if req.Quantity.GreaterThan(m.StockQuantity) {
				return invalid("Scrap quantity cannot exceed current stock.")
			}
			m.StockQuantity = m.StockQuantity.Sub(req.Quantity)
		case entity.TransactionAdjustment:
			m.StockQuantity = req.Quantity
		}
		if err := saveEntity(tx, m); err != nil {
			return err
		}
		return writeTransaction(tx, m.ID, nil, req.TransactionType, req.Quantity, stockBefore, m.StockQuantity,
			req.ReferenceNumber, req.Notes, actor)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func writeTransaction(tx *gorm.DB, materialID string, orderID *string, kind string, qty, before, after decimal.Decimal, ref, notes string, actor Actor) error {
	t := &entity.MaterialTransaction{
		ID:              entity.NewID(),
		MaterialID:      materialID,
		OrderID:         orderID,
		TransactionType: kind,
		Quantity:        qty,
		StockBefore:     before,
		StockAfter:      after,
		ReferenceNumber: ref,
		Notes:           notes,
		CreatedBy:       actor.ID(),
	}
	if err := tx.Omit("Material").Create(t).Error; err != nil {
		return fmt.Errorf("write material transaction: %w", err)
	}
	return nil
}

// Transactions 材料最近 50 条流水
func (s *MaterialService) Transactions(ctx context.Context, id string) ([]entity.MaterialTransaction, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.RecentTransactions(ctx, id, materialTransactionHistoryLimit)
}

func (s *MaterialService) ListTransactions(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.MaterialTransaction, int64, error) {
	return s.repo.FindTransactions(ctx, page, pageSize, filters)
}

func (s *MaterialService) GetTransaction(ctx context.Context, id string) (*entity.MaterialTransaction, error) {
	return s.repo.FindTransaction(ctx, id)
}

// ==================== 订单物料 ====================

// OrderMaterialRequest 创建/更新订单物料
// status 与各发料数量只由发料动作维护，请求中不可写
type OrderMaterialRequest struct {
	OrderID          *string          `json:"order_id"`
	MaterialID       *string          `json:"material_id"`
	RequiredQuantity *decimal.Decimal `json:"required_quantity"`
	Notes            *string          `json:"notes"`
}

func (r *OrderMaterialRequest) apply(om *entity.OrderMaterial) error {
	if r.OrderID != nil {
		om.OrderID = *r.OrderID
	}
	if r.MaterialID != nil {
		om.MaterialID = *r.MaterialID
	}
	if r.RequiredQuantity != nil {
		om.RequiredQuantity = *r.RequiredQuantity
	}
	if r.Notes != nil {
		om.Notes = *r.Notes
	}
	switch {
	case om.OrderID == "":
		return invalid("order_id: This field is required.")
	case om.MaterialID == "":
		return invalid("material_id: This field is required.")
	case !om.RequiredQuantity.IsPositive():
		return invalid("required_quantity: Ensure this value is greater than 0.")
	case om.IssuedQuantity.GreaterThan(om.RequiredQuantity):
		return invalid("required_quantity cannot be less than the issued quantity.")
	}
	om.RefreshIssueStatus()
	return nil
}

func (s *MaterialService) ListOrderMaterials(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.OrderMaterial, int64, error) {
	return s.repo.FindOrderMaterials(ctx, page, pageSize, filters)
}

func (s *MaterialService) GetOrderMaterial(ctx context.Context, id string) (*entity.OrderMaterial, error) {
	return s.repo.FindOrderMaterial(ctx, id)
}

func (s *MaterialService) CreateOrderMaterial(ctx context.Context, req *OrderMaterialRequest, actor Actor) (*entity.OrderMaterial, error) {
	om := &entity.OrderMaterial{
		ID:               entity.NewID(),
		IssuedQuantity:   decimal.Zero,
		ConsumedQuantity: decimal.Zero,
		ReturnedQuantity: decimal.Zero,
		Status:           entity.OrderMaterialPlanned,
		CreatedBy:        actor.ID(),
	}
	if err := req.apply(om); err != nil {
		return nil, err
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := ensureExists(tx, &entity.Order{}, om.OrderID, "order_id"); err != nil {
			return err
		}
		if err := ensureExists(tx, &entity.Material{}, om.MaterialID, "material_id"); err != nil {
			return err
		}
		if err := createEntity(tx, om); err != nil {
			return err
		}
		return auditCreate(tx, actor, AuditEntityOrderMaterial, om.ID, orderMaterialRepr(om), om)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindOrderMaterial(ctx, om.ID)
}

func (s *MaterialService) UpdateOrderMaterial(ctx context.Context, id string, req *OrderMaterialRequest, actor Actor) (*entity.OrderMaterial, error) {
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		om, err := lockByID[entity.OrderMaterial](tx, id)
		if err != nil {
			return err
		}
		before, err := snapshot(tx, om)
		if err != nil {
			return err
		}
		if err := req.apply(om); err != nil {
			return err
		}
		if req.MaterialID != nil {
			if err := ensureExists(tx, &entity.Material{}, om.MaterialID, "material_id"); err != nil {
				return err
			}
		}
		if err := saveEntity(tx, om); err != nil {
			return err
		}
		_, err = auditChange(tx, actor, entity.AuditUpdate, AuditEntityOrderMaterial, om.ID, orderMaterialRepr(om), before, om, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindOrderMaterial(ctx, id)
}

func (s *MaterialService) DeleteOrderMaterial(ctx context.Context, id string, actor Actor) error {
	return inTx(ctx, s.db, func(tx *gorm.DB) error {
		om, err := lockByID[entity.OrderMaterial](tx, id)
		if err != nil {
			return err
		}
		if om.IssuedQuantity.IsPositive() {
			return invalid("Cannot delete an order material that has already been issued.")
		}
		if err := tx.Delete(om).Error; err != nil {
			return repository.Translate(err)
		}
		return auditDelete(tx, actor, AuditEntityOrderMaterial, om.ID, orderMaterialRepr(om), om)
	})
}

// IssueRequest 发料
type IssueRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	Notes    string          `json:"notes"`
}

// Issue 先锁订单物料行再锁材料行；库存校验先于需求校验
func (s *MaterialService) Issue(ctx context.Context, id string, req *IssueRequest, actor Actor) (*entity.OrderMaterial, error) {
	qty := req.Quantity
	if !qty.IsPositive() {
		return nil, invalid("quantity: Ensure this value is greater than or equal to 0.001.")
	}

	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		om, err := lockByID[entity.OrderMaterial](tx, id)
		if err != nil {
			return err
		}
		m, err := lockByID[entity.Material](tx, om.MaterialID)
		if err != nil {
			return err
		}

		if qty.GreaterThan(m.StockQuantity) {
			return invalid("Insufficient stock available.")
		}
		om.Derive()
		if qty.GreaterThan(om.PendingQuantity) {
			return invalid("Cannot issue more than required quantity.")
		}

		before, err := snapshot(tx, om)
		if err != nil {
			return err
		}

		stockBefore := m.StockQuantity
		m.StockQuantity = m.StockQuantity.Sub(qty)
		if err := saveEntity(tx, m); err != nil {
			return err
		}

		om.IssuedQuantity = om.IssuedQuantity.Add(qty)
		om.RefreshIssueStatus()
		om.IssuedBy = actor.ID()
		om.IssuedAt = nowPtr()
		if err := saveEntity(tx, om); err != nil {
			return err
		}

		orderID := om.OrderID
		if err := writeTransaction(tx, m.ID, &orderID, entity.TransactionIssue, qty, stockBefore, m.StockQuantity,
			"", req.Notes, actor); err != nil {
			return err
		}
		_, err = auditChange(tx, actor, entity.AuditUpdate, AuditEntityOrderMaterial, om.ID, orderMaterialRepr(om), before, om,
			fmt.Sprintf("Issued %s %s", qty.String(), m.Unit))
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindOrderMaterial(ctx, id)
}

func (s *MaterialService) OrderMaterialsByOrder(ctx context.Context, orderID string) ([]entity.OrderMaterial, error) {
	if orderID == "" {
		return nil, invalid("order_id parameter is required.")
	}
	return s.repo.OrderMaterialsByOrder(ctx, orderID)
}

func (s *MaterialService) PendingIssues(ctx context.Context) ([]entity.OrderMaterial, error) {
	return s.repo.PendingIssues(ctx)
}

func orderMaterialRepr(om *entity.OrderMaterial) string {
	return fmt.Sprintf("%s - %s", om.OrderID, om.MaterialID)
}

// ==================== helpers ====================

func applyMaster(name, code, description *string, active *bool, req *MasterDataRequest) {
	if req.Name != nil {
		*name = strings.TrimSpace(*req.Name)
	}
	if code != nil && req.Code != nil {
		*code = strings.TrimSpace(*req.Code)
	}
	if req.Description != nil {
		*description = *req.Description
	}
	if req.IsActive != nil {
		*active = *req.IsActive
	}
}

func duplicateAs(err error, msg string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return invalid("%s", msg)
	}
	return err
}
