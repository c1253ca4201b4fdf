package service

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// 审计目标类型
const (
	AuditEntityCustomer         = "customer"
	AuditEntityOrder            = "order"
	AuditEntityDrawing          = "drawing"
	AuditEntityOrderMaterial    = "order_material"
	AuditEntityProductionRecord = "production_record"
	AuditEntityFabrication      = "order_fabrication"
	AuditEntitySurfaceTreatment = "order_surface_treatment"
	AuditEntityInspection       = "order_inspection"
	AuditEntityDispatch         = "order_dispatch"
	AuditEntityUser             = "user"
)

var schemaCache = &sync.Map{}

// 不参与比较的列
var auditSkipColumns = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// snapshot 取出模型所有持久化标量列，值转为字符串（nil 表示空）
func snapshot(db *gorm.DB, model interface{}) (map[string]interface{}, error) {
	sch, err := schema.Parse(model, schemaCache, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	ctx := context.Background()
	if db.Statement != nil && db.Statement.Context != nil {
		ctx = db.Statement.Context
	}

	rv := reflect.Indirect(reflect.ValueOf(model))
	values := make(map[string]interface{}, len(sch.Fields))
	for _, field := range sch.Fields {
		if field.DBName == "" || auditSkipColumns[field.DBName] {
			continue
		}
		// 只读的统计列
		if !field.Creatable && !field.Updatable {
			continue
		}
		v, _ := field.ValueOf(ctx, rv)
		values[field.DBName] = stringify(v)
	}
	return values, nil
}

func stringify(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}

	switch x := rv.Interface().(type) {
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x.UTC().Format(time.RFC3339)
	case entity.Date:
		if x.IsZero() {
			return nil
		}
		return x.String()
	case decimal.Decimal:
		return x.String()
	case decimal.NullDecimal:
		if !x.Valid {
			return nil
		}
		return x.Decimal.String()
	case entity.JSONB:
		if x == nil {
			return nil
		}
		b, _ := json.Marshal(x)
		return string(b)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// diffSnapshots 只输出变化的列 {field: {old, new}}
func diffSnapshots(before, after map[string]interface{}) entity.JSONB {
	changes := entity.JSONB{}
	for field, newValue := range after {
		oldValue := before[field]
		if oldValue != newValue {
			changes[field] = map[string]interface{}{"old": oldValue, "new": newValue}
		}
	}
	return changes
}

type auditEntry struct {
	Action     string
	EntityType string
	EntityID   string
	Repr       string
	Notes      string
	OldValues  entity.JSONB
	NewValues  entity.JSONB
	Changes    entity.JSONB
}

// truncateRunes 按字符截断，varchar 长度以字符计
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func writeAudit(tx *gorm.DB, actor Actor, e auditEntry) error {
	repr := truncateRunes(e.Repr, 255)
	log := &entity.AuditLog{
		ID:         entity.NewID(),
		UserID:     actor.ID(),
		UserEmail:  actor.Email,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		ObjectRepr: repr,
		OldValues:  e.OldValues,
		NewValues:  e.NewValues,
		Changes:    e.Changes,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
		Notes:      e.Notes,
	}
	if err := tx.Create(log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// auditCreate 创建记录，不含 diff
func auditCreate(tx *gorm.DB, actor Actor, entityType, entityID, repr string, model interface{}) error {
	snap, err := snapshot(tx, model)
	if err != nil {
		return err
	}
	return writeAudit(tx, actor, auditEntry{
		Action:     entity.AuditCreate,
		EntityType: entityType,
		EntityID:   entityID,
		Repr:       repr,
		NewValues:  entity.JSONB(snap),
	})
}

func auditDelete(tx *gorm.DB, actor Actor, entityType, entityID, repr string, model interface{}) error {
	snap, err := snapshot(tx, model)
	if err != nil {
		return err
	}
	return writeAudit(tx, actor, auditEntry{
		Action:     entity.AuditDelete,
		EntityType: entityType,
		EntityID:   entityID,
		Repr:       repr,
		OldValues:  entity.JSONB(snap),
	})
}

// auditChange 与写前快照比较，无变化时不写审计行
func auditChange(tx *gorm.DB, actor Actor, action, entityType, entityID, repr string, before map[string]interface{}, model interface{}, notes string) (bool, error) {
	after, err := snapshot(tx, model)
	if err != nil {
		return false, err
	}
	changes := diffSnapshots(before, after)
	if len(changes) == 0 {
		return false, nil
	}

	oldValues := entity.JSONB{}
	newValues := entity.JSONB{}
	for field := range changes {
		oldValues[field] = before[field]
		newValues[field] = after[field]
	}
	return true, writeAudit(tx, actor, auditEntry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Repr:       repr,
		Notes:      notes,
		OldValues:  oldValues,
		NewValues:  newValues,
		Changes:    changes,
	})
}
