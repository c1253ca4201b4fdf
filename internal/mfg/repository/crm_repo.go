package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"gorm.io/gorm"
)

// CustomerRepository 客户仓库
type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerCountsSelect = `crm_customers.*,
	(SELECT COUNT(*) FROM crm_orders o WHERE o.customer_id = crm_customers.id) AS total_orders,
	(SELECT COUNT(*) FROM crm_orders o WHERE o.customer_id = crm_customers.id AND o.status NOT IN ('completed','cancelled')) AS active_orders`

// FindAll 查询客户列表（附带订单统计）
func (r *CustomerRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Customer, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Customer{})
	query = eqFilters(query, filters, "customer_type", "city", "state", "country")
	query = boolFilter(query, "is_active", filters["is_active"])
	query = applySearch(query, filters["search"], "name", "company_name", "email", "phone", "gst_number")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []entity.Customer
	err := query.Select(customerCountsSelect).
		Order(ordering(filters["ordering"], []string{"company_name", "name", "created_at"}, "company_name ASC")).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*entity.Customer, error) {
	var customer entity.Customer
	err := r.db.WithContext(ctx).Model(&entity.Customer{}).
		Select(customerCountsSelect).
		Where("crm_customers.id = ?", id).
		First(&customer).Error
	if err != nil {
		return nil, Translate(err)
	}
	return &customer, nil
}

// CountOrders 客户订单数（删除保护）
func (r *CustomerRepository) CountOrders(ctx context.Context, customerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.Order{}).Where("customer_id = ?", customerID).Count(&n).Error
	return n, err
}

// OrderRepository 订单仓库
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

var orderOrdering = []string{"created_at", "order_date", "expected_delivery_date", "priority", "status", "quote_number", "total_amount"}

// FindAll 查询订单列表
// filters: status, priority, customer_id, assigned_to, created_by, start_date, end_date, delayed, search, ordering
func (r *OrderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Order, int64, error) {
	return paginate[entity.Order](r.filtered(ctx, filters), page, pageSize,
		ordering(filters["ordering"], orderOrdering, "created_at DESC"), "Customer")
}

// FindAllUnpaged 导出用，最多 limit 行
func (r *OrderRepository) FindAllUnpaged(ctx context.Context, filters map[string]string, limit int) ([]entity.Order, error) {
	var items []entity.Order
	err := r.filtered(ctx, filters).Preload("Customer").
		Order(ordering(filters["ordering"], orderOrdering, "created_at DESC")).
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *OrderRepository) filtered(ctx context.Context, filters map[string]string) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.Order{})
	query = eqFilters(query, filters, "status", "priority", "customer_id", "assigned_to", "created_by")
	if v := filters["start_date"]; v != "" {
		query = query.Where("order_date >= ?", v)
	}
	if v := filters["end_date"]; v != "" {
		query = query.Where("order_date <= ?", v)
	}
	if filters["delayed"] == "true" {
		query = delayedOrders(query)
	}
	return applySearch(query, filters["search"], "quote_number", "po_number", "work_order_number", "project_name")
}

func delayedOrders(query *gorm.DB) *gorm.DB {
	return query.
		Where("expected_delivery_date < ?", entity.Today()).
		Where("status NOT IN ?", []string{entity.OrderStatusCompleted, entity.OrderStatusCancelled, entity.OrderStatusDispatched})
}

// FindByID 根据ID查找订单
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	return findByID[entity.Order](ctx, r.db, id, "Customer")
}

// FindDelayed 延期订单，按交期升序
func (r *OrderRepository) FindDelayed(ctx context.Context) ([]entity.Order, error) {
	var items []entity.Order
	err := delayedOrders(r.db.WithContext(ctx).Model(&entity.Order{})).
		Preload("Customer").
		Order("expected_delivery_date ASC").
		Find(&items).Error
	return items, err
}

// StatusCount 状态统计
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (r *OrderRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).Model(&entity.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&rows).Error
	return rows, err
}

// StatusHistory 订单状态历史，按时间倒序
func (r *OrderRepository) StatusHistory(ctx context.Context, orderID string) ([]entity.OrderStatusHistory, error) {
	var items []entity.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// GenerateQuoteNumber 生成报价单号 QT-{year}-{4位}
func (r *OrderRepository) GenerateQuoteNumber(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("QT-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.Order{}).
		Select("COALESCE(MAX(quote_number), '')").
		Where("quote_number LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "QT-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("QT-%s-%04d", year, seq), nil
}
