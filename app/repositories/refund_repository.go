package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"medical/app/models/record"
)

// RefundRepository 退费记录仓库，在通用仓库之上增加金额统计
type RefundRepository struct {
	*RecordRepository[record.RefundRecord, *record.RefundRecord]
}

// NewRefundRepository 创建退费记录仓库，db 为 nil 时使用全局连接
func NewRefundRepository(db *gorm.DB, opts ...RepositoryOption) *RefundRepository {
	return &RefundRepository{
		RecordRepository: newRecordRepository[record.RefundRecord, *record.RefundRecord](db, opts...),
	}
}

// FindByRealRefundAmountBetween 根据实退金额范围查询，金额大的在前
func (r *RefundRepository) FindByRealRefundAmountBetween(ctx context.Context, lo, hi decimal.Decimal) ([]*record.RefundRecord, error) {
	list := make([]*record.RefundRecord, 0)
	err := r.db.WithContext(ctx).
		Where("real_refund_amount >= ? AND real_refund_amount <= ?", lo, hi).
		Order("real_refund_amount DESC, create_time DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// SumRefundAmountByAddressID 统计某个医院已确认的退费总额
func (r *RefundRepository) SumRefundAmountByAddressID(ctx context.Context, addressID string) (decimal.Decimal, error) {
	return r.sumConfirmed(ctx, "address_id = ?", addressID)
}

// SumRefundAmountByWindowID 统计某个窗口已确认的退费总额
func (r *RefundRepository) SumRefundAmountByWindowID(ctx context.Context, windowID string) (decimal.Decimal, error) {
	return r.sumConfirmed(ctx, "window_id = ?", windowID)
}

func (r *RefundRepository) sumConfirmed(ctx context.Context, cond string, arg string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&record.RefundRecord{}).
		Select("SUM(real_refund_amount)").
		Where(cond, arg).
		Where("status = ?", record.StatusConfirmed).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal.Round(2), nil
}
