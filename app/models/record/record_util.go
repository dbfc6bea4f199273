package record

// Status 记录状态
type Status string

const (
	StatusPending   Status = "PENDING"   // 待确认
	StatusConfirmed Status = "CONFIRMED" // 已确认
)

// Kind 记录种类
type Kind string

const (
	KindCharge Kind = "charge" // 收费
	KindRefund Kind = "refund" // 退费
)

// Entity 收费、退费记录的通用行为，存储层和生命周期引擎只依赖它
type Entity interface {
	// Meta 返回公共字段
	Meta() *Base
	// MutableColumns 确认时允许覆盖的列，不含 id 与 create_time
	MutableColumns() []string
	// Params 推送给窗口终端的展示参数
	Params() map[string]interface{}
}

// Pointer 约束 *R 实现 Entity，供泛型仓库与引擎使用
type Pointer[R any] interface {
	*R
	Entity
}

// baseMutableColumns 公共字段中可被确认事件覆盖的列
var baseMutableColumns = []string{
	"address_id", "address_name", "window_id", "window_name",
	"name", "age", "sex", "social_security_number", "identity_card_number",
	"operator", "operate_time", "status", "update_time",
}

// ValidStatus 检查状态值是否合法
func ValidStatus(s string) bool {
	return s == string(StatusPending) || s == string(StatusConfirmed)
}

// CanTransition 状态只允许 PENDING -> CONFIRMED，CONFIRMED 为终态
func CanTransition(from, to Status) bool {
	return from == StatusPending && to == StatusConfirmed
}

// Meta 返回公共字段
func (b *Base) Meta() *Base {
	return b
}

// IsPending 检查是否待确认
func (b *Base) IsPending() bool {
	return b.Status == StatusPending
}

// IsConfirmed 检查是否已确认
func (b *Base) IsConfirmed() bool {
	return b.Status == StatusConfirmed
}

func (b *Base) params() map[string]interface{} {
	return map[string]interface{}{
		"id":                 b.ID,
		"addressId":          b.AddressID,
		"windowId":           b.WindowID,
		"windowName":         b.WindowName,
		"name":               b.Name,
		"identityCardNumber": b.IdentityCardNumber,
		"operator":           b.Operator,
		"operateTime":        b.OperateTime,
		"status":             string(b.Status),
	}
}

// MutableColumns 实现 Entity
func (r *ChargeRecord) MutableColumns() []string {
	return append(append([]string{}, baseMutableColumns...), "receivable", "paid_up", "change_amount")
}

// Params 实现 Entity
func (r *ChargeRecord) Params() map[string]interface{} {
	p := r.params()
	p["receivable"] = r.Receivable.StringFixed(2)
	p["paidUp"] = r.PaidUp.StringFixed(2)
	p["change"] = r.Change.StringFixed(2)
	return p
}

// MutableColumns 实现 Entity
func (r *RefundRecord) MutableColumns() []string {
	return append(append([]string{}, baseMutableColumns...), "receivable", "real_refund_amount")
}

// Params 实现 Entity
func (r *RefundRecord) Params() map[string]interface{} {
	p := r.params()
	p["receivable"] = r.Receivable.StringFixed(2)
	p["realRefundAmount"] = r.RealRefundAmount.StringFixed(2)
	return p
}
