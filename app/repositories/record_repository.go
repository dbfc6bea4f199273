package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"medical/app/models/record"
	"medical/pkg/database"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

// 排序方式
const (
	OrderCreateAsc   = "create_time ASC, id ASC"
	OrderCreateDesc  = "create_time DESC, id DESC"
	OrderOperateDesc = "operate_time DESC, create_time DESC"
)

// RecordFilter 记录查询条件，零值字段不参与过滤
type RecordFilter struct {
	IdentityCardNumber   string
	SocialSecurityNumber string
	Status               record.Status
	AddressID            string
	WindowID             string
	Operator             string
	Name                 string

	// 创建时间戳范围（毫秒，闭区间）
	CreateTimeStart int64
	CreateTimeEnd   int64

	// 操作时间范围（按字符串比较，闭区间）
	OperateTimeStart string
	OperateTimeEnd   string

	Order    string
	Page     int
	PageSize int
}

// RepositoryOption 仓库可选配置
type RepositoryOption func(*repositoryOptions)

type repositoryOptions struct {
	now func() time.Time
}

// WithClock 替换仓库使用的时钟
func WithClock(now func() time.Time) RepositoryOption {
	return func(o *repositoryOptions) {
		o.now = now
	}
}

// RecordRepository 收费、退费记录的通用仓库
// 负责分配 id 与毫秒时间戳，确认更新使用按状态比较的条件更新
type RecordRepository[R any, PR record.Pointer[R]] struct {
	db  *gorm.DB
	now func() time.Time
}

// ChargeRepository 收费记录仓库
type ChargeRepository = RecordRepository[record.ChargeRecord, *record.ChargeRecord]

// NewChargeRepository 创建收费记录仓库，db 为 nil 时使用全局连接
func NewChargeRepository(db *gorm.DB, opts ...RepositoryOption) *ChargeRepository {
	return newRecordRepository[record.ChargeRecord, *record.ChargeRecord](db, opts...)
}

func newRecordRepository[R any, PR record.Pointer[R]](db *gorm.DB, opts ...RepositoryOption) *RecordRepository[R, PR] {
	o := repositoryOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if db == nil {
		db = database.DB
	}
	return &RecordRepository[R, PR]{
		db:  db,
		now: o.now,
	}
}

// Create 插入新记录，分配 id，createTime 与 updateTime 取同一时刻
func (r *RecordRepository[R, PR]) Create(ctx context.Context, rec *R) error {
	meta := PR(rec).Meta()
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	now := r.now().UnixMilli()
	meta.CreateTime = now
	meta.UpdateTime = now

	return r.db.WithContext(ctx).Create(rec).Error
}

// TransitionStatus 仅当库中记录的状态仍为 from 时，写入 rec 的可变列（含新状态）
// 返回 false 表示记录已被其他请求改变
func (r *RecordRepository[R, PR]) TransitionStatus(ctx context.Context, rec *R, from record.Status) (bool, error) {
	meta := PR(rec).Meta()
	prev := meta.UpdateTime
	meta.UpdateTime = r.nextUpdateTime(prev)

	result := r.db.WithContext(ctx).
		Model(rec).
		Select(PR(rec).MutableColumns()).
		Where("status = ?", from).
		Updates(rec)
	if result.Error != nil || result.RowsAffected == 0 {
		meta.UpdateTime = prev
		return false, result.Error
	}
	return true, nil
}

// nextUpdateTime 保证 updateTime 严格递增
func (r *RecordRepository[R, PR]) nextUpdateTime(prev int64) int64 {
	now := r.now().UnixMilli()
	if now <= prev {
		now = prev + 1
	}
	return now
}

// GetByID 根据 id 获取记录
func (r *RecordRepository[R, PR]) GetByID(ctx context.Context, id string) (*R, error) {
	rec := new(R)
	err := r.db.WithContext(ctx).Where("id = ?", id).First(rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Search 组合条件分页查询，PageSize 为 0 时不分页
func (r *RecordRepository[R, PR]) Search(ctx context.Context, f RecordFilter) ([]*R, int64, error) {
	var total int64
	if err := r.query(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	list, err := r.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// List 组合条件查询
func (r *RecordRepository[R, PR]) List(ctx context.Context, f RecordFilter) ([]*R, error) {
	order := f.Order
	if order == "" {
		order = OrderCreateAsc
	}

	q := r.query(ctx, f).Order(order)
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * f.PageSize).Limit(f.PageSize)
	}

	list := make([]*R, 0)
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Count 统计符合条件的记录数
func (r *RecordRepository[R, PR]) Count(ctx context.Context, f RecordFilter) (int64, error) {
	var total int64
	err := r.query(ctx, f).Count(&total).Error
	return total, err
}

func (r *RecordRepository[R, PR]) query(ctx context.Context, f RecordFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(new(R))

	if f.IdentityCardNumber != "" {
		q = q.Where("identity_card_number = ?", f.IdentityCardNumber)
	}
	if f.SocialSecurityNumber != "" {
		q = q.Where("social_security_number = ?", f.SocialSecurityNumber)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.AddressID != "" {
		q = q.Where("address_id = ?", f.AddressID)
	}
	if f.WindowID != "" {
		q = q.Where("window_id = ?", f.WindowID)
	}
	if f.Operator != "" {
		q = q.Where("operator = ?", f.Operator)
	}
	if f.Name != "" {
		q = q.Where("name = ?", f.Name)
	}
	if f.CreateTimeStart > 0 {
		q = q.Where("create_time >= ?", f.CreateTimeStart)
	}
	if f.CreateTimeEnd > 0 {
		q = q.Where("create_time <= ?", f.CreateTimeEnd)
	}
	if f.OperateTimeStart != "" {
		q = q.Where("operate_time >= ?", f.OperateTimeStart)
	}
	if f.OperateTimeEnd != "" {
		q = q.Where("operate_time <= ?", f.OperateTimeEnd)
	}
	return q
}

// FindPendingByIdentityCard 查询某身份证号的待确认记录，按创建时间升序，最后一条为最新
func (r *RecordRepository[R, PR]) FindPendingByIdentityCard(ctx context.Context, identityCardNumber string) ([]*R, error) {
	return r.FindByIdentityCardNumberAndStatus(ctx, identityCardNumber, record.StatusPending)
}

// FindByIdentityCardNumber 根据身份证号查询记录
func (r *RecordRepository[R, PR]) FindByIdentityCardNumber(ctx context.Context, identityCardNumber string) ([]*R, error) {
	return r.List(ctx, RecordFilter{IdentityCardNumber: identityCardNumber})
}

// FindBySocialSecurityNumber 根据社保号查询记录
func (r *RecordRepository[R, PR]) FindBySocialSecurityNumber(ctx context.Context, ssn string) ([]*R, error) {
	return r.List(ctx, RecordFilter{SocialSecurityNumber: ssn})
}

// FindByIdentityCardNumberAndStatus 根据身份证号和状态查询记录
func (r *RecordRepository[R, PR]) FindByIdentityCardNumberAndStatus(ctx context.Context, identityCardNumber string, status record.Status) ([]*R, error) {
	return r.List(ctx, RecordFilter{IdentityCardNumber: identityCardNumber, Status: status})
}

// FindByStatus 根据状态查询记录，最新的在前
func (r *RecordRepository[R, PR]) FindByStatus(ctx context.Context, status record.Status) ([]*R, error) {
	return r.List(ctx, RecordFilter{Status: status, Order: OrderCreateDesc})
}

// FindPending 查询待确认记录
func (r *RecordRepository[R, PR]) FindPending(ctx context.Context) ([]*R, error) {
	return r.FindByStatus(ctx, record.StatusPending)
}

// FindConfirmed 查询已确认记录
func (r *RecordRepository[R, PR]) FindConfirmed(ctx context.Context) ([]*R, error) {
	return r.FindByStatus(ctx, record.StatusConfirmed)
}

// FindByAddressID 根据医院ID查询记录
func (r *RecordRepository[R, PR]) FindByAddressID(ctx context.Context, addressID string) ([]*R, error) {
	return r.List(ctx, RecordFilter{AddressID: addressID})
}

// FindByWindowID 根据窗口ID查询记录
func (r *RecordRepository[R, PR]) FindByWindowID(ctx context.Context, windowID string) ([]*R, error) {
	return r.List(ctx, RecordFilter{WindowID: windowID})
}

// FindByAddressIDAndWindowID 根据医院ID和窗口ID查询记录
func (r *RecordRepository[R, PR]) FindByAddressIDAndWindowID(ctx context.Context, addressID, windowID string) ([]*R, error) {
	return r.List(ctx, RecordFilter{AddressID: addressID, WindowID: windowID})
}

// FindByOperator 根据操作人查询记录
func (r *RecordRepository[R, PR]) FindByOperator(ctx context.Context, operator string) ([]*R, error) {
	return r.List(ctx, RecordFilter{Operator: operator})
}

// FindByName 根据患者姓名查询记录
func (r *RecordRepository[R, PR]) FindByName(ctx context.Context, name string) ([]*R, error) {
	return r.List(ctx, RecordFilter{Name: name})
}

// FindByCreateTimeBetween 根据创建时间戳范围查询，最新的在前
func (r *RecordRepository[R, PR]) FindByCreateTimeBetween(ctx context.Context, start, end int64) ([]*R, error) {
	return r.List(ctx, RecordFilter{CreateTimeStart: start, CreateTimeEnd: end, Order: OrderCreateDesc})
}

// FindByCreateTimeAfter 查询指定时间戳之后（含）创建的记录
func (r *RecordRepository[R, PR]) FindByCreateTimeAfter(ctx context.Context, timestamp int64) ([]*R, error) {
	return r.List(ctx, RecordFilter{CreateTimeStart: timestamp, Order: OrderCreateDesc})
}

// FindByCreateTimeBefore 查询指定时间戳之前（含）创建的记录
func (r *RecordRepository[R, PR]) FindByCreateTimeBefore(ctx context.Context, timestamp int64) ([]*R, error) {
	return r.List(ctx, RecordFilter{CreateTimeEnd: timestamp, Order: OrderCreateDesc})
}

// FindByOperateTimeBetween 根据操作时间范围查询
func (r *RecordRepository[R, PR]) FindByOperateTimeBetween(ctx context.Context, start, end string) ([]*R, error) {
	return r.List(ctx, RecordFilter{OperateTimeStart: start, OperateTimeEnd: end, Order: OrderOperateDesc})
}

// CountByAddressID 统计某个医院的记录数量
func (r *RecordRepository[R, PR]) CountByAddressID(ctx context.Context, addressID string) (int64, error) {
	return r.Count(ctx, RecordFilter{AddressID: addressID})
}

// CountByWindowID 统计某个窗口的记录数量
func (r *RecordRepository[R, PR]) CountByWindowID(ctx context.Context, windowID string) (int64, error) {
	return r.Count(ctx, RecordFilter{WindowID: windowID})
}
