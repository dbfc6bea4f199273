package lifecycle

import (
	"strings"

	"github.com/shopspring/decimal"

	"medical/app/models/record"
	"medical/app/requests"
)

// ChargeEngine 收费生命周期引擎
type ChargeEngine = Engine[requests.ChargeRequest, record.ChargeRecord, *record.ChargeRecord]

// RefundEngine 退费生命周期引擎
type RefundEngine = Engine[requests.RefundRequest, record.RefundRecord, *record.RefundRecord]

// ChargeKind 收费事件的校验、匹配与合并规则
var ChargeKind = Kind[requests.ChargeRequest, record.ChargeRecord]{
	Name:     record.KindCharge,
	Validate: requests.ValidateCharge,
	MatchKey: func(req requests.ChargeRequest) string {
		return strings.TrimSpace(req.IdentityCardNumber)
	},
	NewRecord: func(req requests.ChargeRequest) *record.ChargeRecord {
		rec := &record.ChargeRecord{}
		mergeCharge(rec, req)
		return rec
	},
	Merge: mergeCharge,
}

// RefundKind 退费事件的校验、匹配与合并规则
var RefundKind = Kind[requests.RefundRequest, record.RefundRecord]{
	Name:     record.KindRefund,
	Validate: requests.ValidateRefund,
	MatchKey: func(req requests.RefundRequest) string {
		return strings.TrimSpace(req.IdentityCardNumber)
	},
	NewRecord: func(req requests.RefundRequest) *record.RefundRecord {
		rec := &record.RefundRecord{}
		mergeRefund(rec, req)
		return rec
	},
	Merge: mergeRefund,
}

// NewChargeEngine 创建收费引擎
func NewChargeEngine(store Store[record.ChargeRecord], opts ...Option) *ChargeEngine {
	return New[requests.ChargeRequest, record.ChargeRecord, *record.ChargeRecord](ChargeKind, store, opts...)
}

// NewRefundEngine 创建退费引擎
func NewRefundEngine(store Store[record.RefundRecord], opts ...Option) *RefundEngine {
	return New[requests.RefundRequest, record.RefundRecord, *record.RefundRecord](RefundKind, store, opts...)
}

// mergeCharge 用事件覆盖除 id、createTime、status 以外的全部字段
func mergeCharge(rec *record.ChargeRecord, req requests.ChargeRequest) {
	mergeCounter(&rec.Base, req.CounterFields)
	rec.Receivable = amount(req.Receivable)
	rec.PaidUp = amount(req.PaidUp)
	rec.Change = amount(req.Change)
}

func mergeRefund(rec *record.RefundRecord, req requests.RefundRequest) {
	mergeCounter(&rec.Base, req.CounterFields)
	rec.Receivable = amount(req.Receivable)
	rec.RealRefundAmount = amount(req.RealRefundAmount)
}

// mergeCounter 写入前去除首尾空白，与校验和匹配使用同一取值
func mergeCounter(b *record.Base, f requests.CounterFields) {
	b.AddressID = strings.TrimSpace(f.AddressID)
	b.AddressName = strings.TrimSpace(f.AddressName)
	b.WindowID = strings.TrimSpace(f.WindowID)
	b.WindowName = strings.TrimSpace(f.WindowName)
	b.Name = strings.TrimSpace(f.Name)
	b.Age = strings.TrimSpace(f.Age)
	b.Sex = strings.TrimSpace(f.Sex)
	b.SocialSecurityNumber = strings.TrimSpace(f.SocialSecurityNumber)
	b.IdentityCardNumber = strings.TrimSpace(f.IdentityCardNumber)
	b.Operator = strings.TrimSpace(f.Operator)
	b.OperateTime = strings.TrimSpace(f.OperateTime)
}

// amount 金额统一保留两位小数
func amount(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return d.Round(2)
}
