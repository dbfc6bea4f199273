package requests

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

// CounterFields 收费、退费请求共有的字段
type CounterFields struct {
	AddressID            string `json:"addressId"`            // 医院/店名ID
	AddressName          string `json:"addressName"`          // 医院/店名
	WindowID             string `json:"windowId"`             // 窗口id
	WindowName           string `json:"windowName"`           // 窗口名
	Name                 string `json:"name"`                 // 姓名
	Age                  string `json:"age"`                  // 年龄
	Sex                  string `json:"sex"`                  // 性别
	SocialSecurityNumber string `json:"socialSecurityNumber"` // 社保号
	IdentityCardNumber   string `json:"identityCardNumber"`   // 身份证号
	Operator             string `json:"operator"`             // 操作人
	OperateTime          string `json:"operateTime"`          // 操作时间
}

// ChargeRequest 收费按钮点击 / 确认收费请求
type ChargeRequest struct {
	CounterFields
	Receivable *decimal.Decimal `json:"receivable"` // 应收
	PaidUp     *decimal.Decimal `json:"paidUp"`     // 实收
	Change     *decimal.Decimal `json:"change"`     // 找零
}

// RefundRequest 退费按钮点击 / 确认退费请求
type RefundRequest struct {
	CounterFields
	Receivable       *decimal.Decimal `json:"receivable"`       // 应收
	RealRefundAmount *decimal.Decimal `json:"realRefundAmount"` // 实退
}

// fieldView 交给 govalidator 的扁平视图，金额转成字符串，缺失即为空
type fieldView struct {
	AddressID            string `json:"addressId"`
	AddressName          string `json:"addressName"`
	WindowID             string `json:"windowId"`
	WindowName           string `json:"windowName"`
	Name                 string `json:"name"`
	Age                  string `json:"age"`
	Sex                  string `json:"sex"`
	Receivable           string `json:"receivable"`
	PaidUp               string `json:"paidUp"`
	Change               string `json:"change"`
	RealRefundAmount     string `json:"realRefundAmount"`
	SocialSecurityNumber string `json:"socialSecurityNumber"`
	IdentityCardNumber   string `json:"identityCardNumber"`
	Operator             string `json:"operator"`
	OperateTime          string `json:"operateTime"`
}

// 字段校验顺序，决定报告哪一个字段
var (
	chargeFieldOrder = []string{
		"addressId", "addressName", "windowId", "windowName", "name", "age", "sex",
		"receivable", "paidUp", "change",
		"socialSecurityNumber", "identityCardNumber", "operator", "operateTime",
	}
	refundFieldOrder = []string{
		"addressId", "addressName", "windowId", "windowName", "name", "age", "sex",
		"receivable", "realRefundAmount",
		"socialSecurityNumber", "identityCardNumber", "operator", "operateTime",
	}
)

var fieldMessages = map[string]string{
	"addressId":            "医院/店名ID不能为空",
	"addressName":          "医院/店名不能为空",
	"windowId":             "窗口ID不能为空",
	"windowName":           "窗口名不能为空",
	"name":                 "患者姓名不能为空",
	"age":                  "患者年龄不能为空",
	"sex":                  "患者性别不能为空",
	"receivable":           "应收金额不能为空且不能为负数",
	"paidUp":               "实收金额不能为空且不能为负数",
	"change":               "找零金额不能为空且不能为负数",
	"realRefundAmount":     "实退金额不能为空且不能为负数",
	"socialSecurityNumber": "社保号不能为空",
	"identityCardNumber":   "身份证号不能为空",
	"operator":             "操作人不能为空",
	"operateTime":          "操作时间不能为空",
}

// ValidateCharge 校验收费请求，返回第一个未通过字段的 *ValidationError
func ValidateCharge(req ChargeRequest) error {
	view := counterView(req.CounterFields)
	view.Receivable = amountString(req.Receivable)
	view.PaidUp = amountString(req.PaidUp)
	view.Change = amountString(req.Change)

	errs := ValidateStruct(&view, buildRules(chargeFieldOrder), buildMessages(chargeFieldOrder))
	checkNonNegative(errs, "receivable", req.Receivable)
	checkNonNegative(errs, "paidUp", req.PaidUp)
	checkNonNegative(errs, "change", req.Change)

	return FirstError(chargeFieldOrder, errs)
}

// ValidateRefund 校验退费请求，返回第一个未通过字段的 *ValidationError
func ValidateRefund(req RefundRequest) error {
	view := counterView(req.CounterFields)
	view.Receivable = amountString(req.Receivable)
	view.RealRefundAmount = amountString(req.RealRefundAmount)

	errs := ValidateStruct(&view, buildRules(refundFieldOrder), buildMessages(refundFieldOrder))
	checkNonNegative(errs, "receivable", req.Receivable)
	checkNonNegative(errs, "realRefundAmount", req.RealRefundAmount)

	return FirstError(refundFieldOrder, errs)
}

// counterView 去除首尾空白，纯空白视为未填写
func counterView(f CounterFields) fieldView {
	return fieldView{
		AddressID:            strings.TrimSpace(f.AddressID),
		AddressName:          strings.TrimSpace(f.AddressName),
		WindowID:             strings.TrimSpace(f.WindowID),
		WindowName:           strings.TrimSpace(f.WindowName),
		Name:                 strings.TrimSpace(f.Name),
		Age:                  strings.TrimSpace(f.Age),
		Sex:                  strings.TrimSpace(f.Sex),
		SocialSecurityNumber: strings.TrimSpace(f.SocialSecurityNumber),
		IdentityCardNumber:   strings.TrimSpace(f.IdentityCardNumber),
		Operator:             strings.TrimSpace(f.Operator),
		OperateTime:          strings.TrimSpace(f.OperateTime),
	}
}

func amountString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func checkNonNegative(errs url.Values, field string, d *decimal.Decimal) {
	if d != nil && d.IsNegative() && len(errs[field]) == 0 {
		errs.Add(field, fieldMessages[field])
	}
}

func buildRules(order []string) govalidator.MapData {
	rules := govalidator.MapData{}
	for _, field := range order {
		rules[field] = []string{"required"}
	}
	return rules
}

func buildMessages(order []string) govalidator.MapData {
	messages := govalidator.MapData{}
	for _, field := range order {
		messages[field] = []string{"required:" + fieldMessages[field]}
	}
	return messages
}
