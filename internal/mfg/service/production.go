package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLowYieldThreshold 低良率默认阈值（%）
const DefaultLowYieldThreshold = 90.0

// ProductionService 生产日报与汇总
type ProductionService struct {
	db   *gorm.DB
	repo *repository.ProductionRepository
}

func NewProductionService(db *gorm.DB, repo *repository.ProductionRepository) *ProductionService {
	return &ProductionService{db: db, repo: repo}
}

// ProductionRecordRequest 创建/更新生产日报；produced 由 ok+rework+rejection 得出
type ProductionRecordRequest struct {
	OrderID           *string      `json:"order_id"`
	ProductionDate    *entity.Date `json:"production_date"`
	Shift             *string      `json:"shift"`
	PlannedQuantity   *int         `json:"planned_quantity"`
	OKQuantity        *int         `json:"ok_quantity"`
	ReworkQuantity    *int         `json:"rework_quantity"`
	RejectionQuantity *int         `json:"rejection_quantity"`
	Remarks           *string      `json:"remarks"`
	RejectionReasons  *string      `json:"rejection_reasons"`
}

func (r *ProductionRecordRequest) apply(rec *entity.ProductionRecord) error {
	if r.OrderID != nil {
		rec.OrderID = *r.OrderID
	}
	if r.ProductionDate != nil {
		rec.ProductionDate = *r.ProductionDate
	}
	if r.Shift != nil {
		rec.Shift = *r.Shift
	}
	for _, f := range []struct {
		src *int
		dst *int
	}{
		{r.PlannedQuantity, &rec.PlannedQuantity},
		{r.OKQuantity, &rec.OKQuantity},
		{r.ReworkQuantity, &rec.ReworkQuantity},
		{r.RejectionQuantity, &rec.RejectionQuantity},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	if r.Remarks != nil {
		rec.Remarks = *r.Remarks
	}
	if r.RejectionReasons != nil {
		rec.RejectionReasons = *r.RejectionReasons
	}

	switch {
	case rec.OrderID == "":
		return invalid("order_id: This field is required.")
	case rec.ProductionDate.IsZero():
		return invalid("production_date: This field is required.")
	case !containsString(entity.Shifts, rec.Shift):
		return invalid("\"%s\" is not a valid choice.", rec.Shift)
	case rec.PlannedQuantity < 0, rec.OKQuantity < 0, rec.ReworkQuantity < 0, rec.RejectionQuantity < 0:
		return invalid("Quantities must not be negative.")
	}
	rec.Calculate()
	return nil
}

func productionRecordRepr(r *entity.ProductionRecord) string {
	return fmt.Sprintf("%s - %s (%s)", r.OrderID, r.ProductionDate.String(), r.Shift)
}

func (s *ProductionService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionRecord, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *ProductionService) Get(ctx context.Context, id string) (*entity.ProductionRecord, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ProductionService) Create(ctx context.Context, req *ProductionRecordRequest, actor Actor) (*entity.ProductionRecord, error) {
	rec := &entity.ProductionRecord{
		ID:             entity.NewID(),
		ProductionDate: entity.Today(),
		Shift:          entity.ShiftDay,
		RecordedBy:     actor.ID(),
	}
	if err := req.apply(rec); err != nil {
		return nil, err
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := ensureExists(tx, &entity.Order{}, rec.OrderID, "order_id"); err != nil {
			return err
		}
		if err := createEntity(tx, rec); err != nil {
			return duplicateAs(err, "The fields order, production_date, shift must make a unique set.")
		}
		if err := auditCreate(tx, actor, AuditEntityProductionRecord, rec.ID, productionRecordRepr(rec), rec); err != nil {
			return err
		}
		return refreshSummary(tx, rec.OrderID)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *ProductionService) Update(ctx context.Context, id string, req *ProductionRecordRequest, actor Actor) (*entity.ProductionRecord, error) {
	var rec *entity.ProductionRecord
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		rec, err = lockByID[entity.ProductionRecord](tx, id)
		if err != nil {
			return err
		}
		before, err := snapshot(tx, rec)
		if err != nil {
			return err
		}
		previousOrder := rec.OrderID
		if err := req.apply(rec); err != nil {
			return err
		}
		if rec.OrderID != previousOrder {
			if err := ensureExists(tx, &entity.Order{}, rec.OrderID, "order_id"); err != nil {
				return err
			}
		}
		if err := saveEntity(tx, rec); err != nil {
			return duplicateAs(err, "The fields order, production_date, shift must make a unique set.")
		}
		if _, err := auditChange(tx, actor, entity.AuditUpdate, AuditEntityProductionRecord, rec.ID, productionRecordRepr(rec), before, rec, ""); err != nil {
			return err
		}
		if rec.OrderID != previousOrder {
			if err := refreshSummary(tx, previousOrder); err != nil {
				return err
			}
		}
		return refreshSummary(tx, rec.OrderID)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *ProductionService) Delete(ctx context.Context, id string, actor Actor) error {
	return inTx(ctx, s.db, func(tx *gorm.DB) error {
		rec, err := lockByID[entity.ProductionRecord](tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(rec).Error; err != nil {
			return repository.Translate(err)
		}
		if err := auditDelete(tx, actor, AuditEntityProductionRecord, rec.ID, productionRecordRepr(rec), rec); err != nil {
			return err
		}
		return refreshSummary(tx, rec.OrderID)
	})
}

// Verify 记录核实人与时间
func (s *ProductionService) Verify(ctx context.Context, id string, actor Actor) (*entity.ProductionRecord, error) {
	var rec *entity.ProductionRecord
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		rec, err = lockByID[entity.ProductionRecord](tx, id)
		if err != nil {
			return err
		}
		before, err := snapshot(tx, rec)
		if err != nil {
			return err
		}
		rec.VerifiedBy = actor.ID()
		rec.VerifiedAt = nowPtr()
		if err := saveEntity(tx, rec); err != nil {
			return err
		}
		_, err = auditChange(tx, actor, entity.AuditApprove, AuditEntityProductionRecord, rec.ID, productionRecordRepr(rec), before, rec, "Verified")
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// refreshSummary 按订单重算汇总，汇总行不存在时创建
func refreshSummary(tx *gorm.DB, orderID string) error {
	var totals struct {
		TotalPlanned   int64
		TotalProduced  int64
		TotalOK        int64
		TotalRework    int64
		TotalRejection int64
	}
	err := tx.Model(&entity.ProductionRecord{}).
		Select(`COALESCE(SUM(planned_quantity), 0) AS total_planned,
			COALESCE(SUM(produced_quantity), 0) AS total_produced,
			COALESCE(SUM(ok_quantity), 0) AS total_ok,
			COALESCE(SUM(rework_quantity), 0) AS total_rework,
			COALESCE(SUM(rejection_quantity), 0) AS total_rejection`).
		Where("order_id = ?", orderID).
		Scan(&totals).Error
	if err != nil {
		return fmt.Errorf("sum production records: %w", err)
	}

	var order entity.Order
	if err := tx.Select("id", "ordered_quantity").Where("id = ?", orderID).First(&order).Error; err != nil {
		return repository.Translate(err)
	}

	var summary entity.ProductionSummary
	err = tx.Clauses(lockingUpdate()).Where("order_id = ?", orderID).First(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		summary = entity.ProductionSummary{ID: entity.NewID(), OrderID: orderID}
	} else if err != nil {
		return fmt.Errorf("load production summary: %w", err)
	}

	summary.TotalPlanned = totals.TotalPlanned
	summary.TotalProduced = totals.TotalProduced
	summary.TotalOK = totals.TotalOK
	summary.TotalRework = totals.TotalRework
	summary.TotalRejection = totals.TotalRejection
	summary.Recalculate(order.OrderedQuantity)
	return repository.Translate(tx.Omit(clause.Associations).Save(&summary).Error)
}

func (s *ProductionService) ByOrder(ctx context.Context, orderID string) ([]entity.ProductionRecord, error) {
	if orderID == "" {
		return nil, invalid("order_id parameter is required.")
	}
	return s.repo.ByOrder(ctx, orderID)
}

// DailySummary 某日产量合计
type DailySummary struct {
	Date               entity.Date `json:"date"`
	RecordCount        int         `json:"record_count"`
	TotalPlanned       int64       `json:"total_planned"`
	TotalProduced      int64       `json:"total_produced"`
	TotalOK            int64       `json:"total_ok"`
	TotalRework        int64       `json:"total_rework"`
	TotalRejection     int64       `json:"total_rejection"`
	AvgOKPercentage    float64     `json:"avg_ok_percentage"`
	AvgYieldPercentage float64     `json:"avg_yield_percentage"`
}

// DailySummary date 为空时取今天
func (s *ProductionService) DailySummary(ctx context.Context, date string) (*DailySummary, error) {
	day := entity.Today()
	if date != "" {
		d, err := entity.ParseDate(date)
		if err != nil {
			return nil, invalid("Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
		}
		day = d
	}
	records, err := s.repo.ByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	return summarizeDay(day, records), nil
}

func summarizeDay(day entity.Date, records []entity.ProductionRecord) *DailySummary {
	out := &DailySummary{Date: day, RecordCount: len(records)}
	if len(records) == 0 {
		return out
	}
	var okSum, yieldSum float64
	for _, r := range records {
		out.TotalPlanned += int64(r.PlannedQuantity)
		out.TotalProduced += int64(r.ProducedQuantity)
		out.TotalOK += int64(r.OKQuantity)
		out.TotalRework += int64(r.ReworkQuantity)
		out.TotalRejection += int64(r.RejectionQuantity)
		okSum += r.OKPercentage.InexactFloat64()
		yieldSum += r.TotalYieldPercentage.InexactFloat64()
	}
	n := float64(len(records))
	out.AvgOKPercentage = roundTo2(okSum / n)
	out.AvgYieldPercentage = roundTo2(yieldSum / n)
	return out
}

func (s *ProductionService) YieldAnalysis(ctx context.Context, startDate, endDate string) ([]repository.DailyYield, error) {
	for _, v := range []string{startDate, endDate} {
		if v == "" {
			continue
		}
		if _, err := entity.ParseDate(v); err != nil {
			return nil, invalid("Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
		}
	}
	return s.repo.YieldAnalysis(ctx, startDate, endDate)
}

func (s *ProductionService) ListSummaries(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionSummary, int64, error) {
	return s.repo.FindSummaries(ctx, page, pageSize, filters)
}

func (s *ProductionService) SummaryByOrder(ctx context.Context, orderID string) (*entity.ProductionSummary, error) {
	if orderID == "" {
		return nil, invalid("order_id parameter is required.")
	}
	return s.repo.SummaryByOrder(ctx, orderID)
}

// LowYield threshold<=0 时使用默认阈值
func (s *ProductionService) LowYield(ctx context.Context, threshold float64) ([]entity.ProductionSummary, error) {
	if threshold <= 0 {
		threshold = DefaultLowYieldThreshold
	}
	return s.repo.LowYield(ctx, threshold)
}

func roundTo2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
