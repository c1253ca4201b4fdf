package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"gorm.io/gorm"
)

// CustomerService 客户服务
type CustomerService struct {
	db        *gorm.DB
	repo      *repository.CustomerRepository
	orderRepo *repository.OrderRepository
}

func NewCustomerService(db *gorm.DB, repo *repository.CustomerRepository, orderRepo *repository.OrderRepository) *CustomerService {
	return &CustomerService{db: db, repo: repo, orderRepo: orderRepo}
}

// CustomerRequest 创建/更新客户，更新时只应用非空字段
type CustomerRequest struct {
	Name           *string `json:"name"`
	CompanyName    *string `json:"company_name"`
	CustomerType   *string `json:"customer_type"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	AlternatePhone *string `json:"alternate_phone"`
	Address        *string `json:"address"`
	City           *string `json:"city"`
	State          *string `json:"state"`
	Country        *string `json:"country"`
	PostalCode     *string `json:"postal_code"`
	GSTNumber      *string `json:"gst_number"`
	PANNumber      *string `json:"pan_number"`
	ContactPerson  *string `json:"contact_person"`
	ContactEmail   *string `json:"contact_email"`
	ContactPhone   *string `json:"contact_phone"`
	Notes          *string `json:"notes"`
	IsActive       *bool   `json:"is_active"`
}

func (r *CustomerRequest) apply(c *entity.Customer) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&c.Name, r.Name)
	set(&c.CompanyName, r.CompanyName)
	set(&c.CustomerType, r.CustomerType)
	set(&c.Email, r.Email)
	set(&c.Phone, r.Phone)
	set(&c.AlternatePhone, r.AlternatePhone)
	set(&c.Address, r.Address)
	set(&c.City, r.City)
	set(&c.State, r.State)
	set(&c.Country, r.Country)
	set(&c.PostalCode, r.PostalCode)
	set(&c.GSTNumber, r.GSTNumber)
	set(&c.PANNumber, r.PANNumber)
	set(&c.ContactPerson, r.ContactPerson)
	set(&c.ContactEmail, r.ContactEmail)
	set(&c.ContactPhone, r.ContactPhone)
	set(&c.Notes, r.Notes)
	if r.IsActive != nil {
		c.IsActive = *r.IsActive
	}

	if c.Name == "" {
		return invalid("name: This field may not be blank.")
	}
	if c.CompanyName == "" {
		return invalid("company_name: This field may not be blank.")
	}
	if !containsString(entity.CustomerTypes, c.CustomerType) {
		return invalid("\"%s\" is not a valid choice.", c.CustomerType)
	}
	return nil
}

func (s *CustomerService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Customer, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *CustomerService) Get(ctx context.Context, id string) (*entity.Customer, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *CustomerService) Create(ctx context.Context, req *CustomerRequest, actor Actor) (*entity.Customer, error) {
	customer := &entity.Customer{
		ID:           entity.NewID(),
		CustomerType: entity.CustomerTypeRegular,
		Country:      "India",
		IsActive:     true,
		CreatedBy:    actor.ID(),
	}
	if err := req.apply(customer); err != nil {
		return nil, err
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := createEntity(tx, customer); err != nil {
			return err
		}
		return auditCreate(tx, actor, AuditEntityCustomer, customer.ID, customer.String(), customer)
	})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return customer, nil
}

func (s *CustomerService) Update(ctx context.Context, id string, req *CustomerRequest, actor Actor) (*entity.Customer, error) {
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		customer, err := lockByID[entity.Customer](tx, id)
		if err != nil {
			return err
		}
		before, err := snapshot(tx, customer)
		if err != nil {
			return err
		}
		if err := req.apply(customer); err != nil {
			return err
		}
		if err := saveEntity(tx, customer); err != nil {
			return err
		}
		_, err = auditChange(tx, actor, entity.AuditUpdate, AuditEntityCustomer, customer.ID, customer.String(), before, customer, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// ToggleActive 切换启用状态
func (s *CustomerService) ToggleActive(ctx context.Context, id string, actor Actor) (*entity.Customer, error) {
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		customer, err := lockByID[entity.Customer](tx, id)
		if err != nil {
			return err
		}
		before, err := snapshot(tx, customer)
		if err != nil {
			return err
		}
		customer.IsActive = !customer.IsActive
		if err := saveEntity(tx, customer); err != nil {
			return err
		}
		_, err = auditChange(tx, actor, entity.AuditUpdate, AuditEntityCustomer, customer.ID, customer.String(), before, customer, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// Delete 有订单的客户不能删除
func (s *CustomerService) Delete(ctx context.Context, id string, actor Actor) error {
	return inTx(ctx, s.db, func(tx *gorm.DB) error {
		customer, err := lockByID[entity.Customer](tx, id)
		if err != nil {
			return err
		}
		var orders int64
		if err := tx.Model(&entity.Order{}).Where("customer_id = ?", id).Count(&orders).Error; err != nil {
			return err
		}
		if orders > 0 {
			return invalid("Cannot delete customer with existing orders.")
		}
		if err := tx.Delete(customer).Error; err != nil {
			return err
		}
		return auditDelete(tx, actor, AuditEntityCustomer, customer.ID, customer.String(), customer)
	})
}

// Orders 客户的订单
func (s *CustomerService) Orders(ctx context.Context, id string, page, pageSize int) ([]entity.Order, int64, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.orderRepo.FindAll(ctx, page, pageSize, map[string]string{"customer_id": id})
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
