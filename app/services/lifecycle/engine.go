// Package lifecycle 收费、退费两阶段生命周期：按钮点击生成待确认记录，确认事件将其转为已确认
package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"medical/app/models/record"
	"medical/pkg/logger"
)

// DefaultStoreTimeout 单次操作访问存储的默认时限
const DefaultStoreTimeout = 5 * time.Second

// DefaultNotifyTimeout 写入后通知终端的默认时限
const DefaultNotifyTimeout = 2 * time.Second

// Store 引擎依赖的存储能力
type Store[R any] interface {
	// Create 插入记录，由存储分配 id 与时间戳
	Create(ctx context.Context, rec *R) error
	// FindPendingByIdentityCard 按创建时间升序返回待确认记录
	FindPendingByIdentityCard(ctx context.Context, identityCardNumber string) ([]*R, error)
	// TransitionStatus 仅当库中状态仍为 from 时写入，返回是否写入成功
	TransitionStatus(ctx context.Context, rec *R, from record.Status) (bool, error)
}

// Kind 一种事件的规则集合
type Kind[E any, R any] struct {
	Name      record.Kind
	Validate  func(E) error
	MatchKey  func(E) string
	NewRecord func(E) *R
	Merge     func(*R, E)
}

// Notice 一次成功写入后的通知
type Notice struct {
	Kind   record.Kind
	Record record.Entity
}

// Notifier 接收写入通知，失败不影响引擎结果
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// Resolution 确认事件的处理结果
type Resolution struct {
	ID string
	// Matched 为 true 表示更新了已有的待确认记录，否则为直接新增
	Matched bool
}

// Option 引擎可选配置
type Option func(*options)

type options struct {
	notifier      Notifier
	timeout       time.Duration
	notifyTimeout time.Duration
}

// WithNotifier 设置写入通知
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithStoreTimeout 设置存储访问时限，非正数时使用默认值
func WithStoreTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithNotifyTimeout 设置通知时限，非正数时使用默认值
func WithNotifyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.notifyTimeout = d
		}
	}
}

// Engine 生命周期引擎，本身无状态，并发安全依赖存储的条件更新
type Engine[E any, R any, PR record.Pointer[R]] struct {
	kind          Kind[E, R]
	store         Store[R]
	notifier      Notifier
	timeout       time.Duration
	notifyTimeout time.Duration
}

// New 创建引擎
func New[E any, R any, PR record.Pointer[R]](kind Kind[E, R], store Store[R], opts ...Option) *Engine[E, R, PR] {
	o := options{timeout: DefaultStoreTimeout, notifyTimeout: DefaultNotifyTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine[E, R, PR]{
		kind:     kind,
		store:    store,
		notifier:      o.notifier,
		timeout:       o.timeout,
		notifyTimeout: o.notifyTimeout,
	}
}

// CreatePending 按钮点击：校验后新增一条待确认记录，返回记录 id
// 不查询已有记录，同一患者可以存在多条待确认记录
func (e *Engine[E, R, PR]) CreatePending(ctx context.Context, event E) (string, error) {
	if err := e.kind.Validate(event); err != nil {
		return "", err
	}

	rec := e.kind.NewRecord(event)
	meta := PR(rec).Meta()
	meta.Status = record.StatusPending

	if err := e.create(ctx, rec); err != nil {
		return "", err
	}

	logger.Info("lifecycle", zap.String("kind", string(e.kind.Name)),
		zap.String("action", "pending"), zap.String("id", meta.ID))
	e.notify(ctx, rec)
	return meta.ID, nil
}

// ResolveConfirm 确认事件：更新该身份证号最新的待确认记录，没有则直接新增一条已确认记录
// 每次调用最多写入一次，重复确认会产生新的已确认记录
func (e *Engine[E, R, PR]) ResolveConfirm(ctx context.Context, event E) (Resolution, error) {
	if err := e.kind.Validate(event); err != nil {
		return Resolution{}, err
	}

	sctx, cancel := context.WithTimeout(ctx, e.timeout)
	pending, err := e.store.FindPendingByIdentityCard(sctx, e.kind.MatchKey(event))
	cancel()
	if err != nil {
		return Resolution{}, &StoreError{Kind: e.kind.Name, Op: "查询", Err: err}
	}

	if len(pending) == 0 {
		rec := e.kind.NewRecord(event)
		meta := PR(rec).Meta()
		meta.Status = record.StatusConfirmed
		if err := e.create(ctx, rec); err != nil {
			return Resolution{}, err
		}

		logger.Info("lifecycle", zap.String("kind", string(e.kind.Name)),
			zap.String("action", "confirm-insert"), zap.String("id", meta.ID))
		e.notify(ctx, rec)
		return Resolution{ID: meta.ID}, nil
	}

	target := latest[R, PR](pending)
	meta := PR(target).Meta()
	if !record.CanTransition(meta.Status, record.StatusConfirmed) {
		return Resolution{}, &ConflictError{Kind: e.kind.Name, ID: meta.ID}
	}

	e.kind.Merge(target, event)
	meta.Status = record.StatusConfirmed

	sctx, cancel = context.WithTimeout(ctx, e.timeout)
	ok, err := e.store.TransitionStatus(sctx, target, record.StatusPending)
	cancel()
	if err != nil {
		return Resolution{}, &StoreError{Kind: e.kind.Name, Op: "更新", Err: err}
	}
	if !ok {
		logger.WarnString("lifecycle", string(e.kind.Name), "确认冲突: "+meta.ID)
		return Resolution{}, &ConflictError{Kind: e.kind.Name, ID: meta.ID}
	}

	logger.Info("lifecycle", zap.String("kind", string(e.kind.Name)),
		zap.String("action", "confirm-update"), zap.String("id", meta.ID))
	e.notify(ctx, target)
	return Resolution{ID: meta.ID, Matched: true}, nil
}

func (e *Engine[E, R, PR]) create(ctx context.Context, rec *R) error {
	sctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.store.Create(sctx, rec); err != nil {
		return &StoreError{Kind: e.kind.Name, Op: "新增", Err: err}
	}
	return nil
}

// notify 记录已提交，通知不受请求取消影响，但最多占用 notifyTimeout
func (e *Engine[E, R, PR]) notify(ctx context.Context, rec *R) {
	if e.notifier == nil {
		return
	}

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.notifyTimeout)
	defer cancel()
	e.notifier.Notify(nctx, Notice{Kind: e.kind.Name, Record: PR(rec)})
}

// latest 取创建时间最大的记录，相同时取列表中靠后的
func latest[R any, PR record.Pointer[R]](list []*R) *R {
	best := list[0]
	for _, rec := range list[1:] {
		if PR(rec).Meta().CreateTime >= PR(best).Meta().CreateTime {
			best = rec
		}
	}
	return best
}
