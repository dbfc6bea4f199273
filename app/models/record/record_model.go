// Package record 收费、退费记录模型
package record

import (
	"medical/app/models"

	"github.com/shopspring/decimal"
)

// Base 收费记录与退费记录共有的字段
type Base struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	// 医院/店名与收费窗口
	AddressID   string `gorm:"type:varchar(50);not null;index" json:"addressId"`
	AddressName string `gorm:"type:varchar(100);not null" json:"addressName"`
	WindowID    string `gorm:"type:varchar(50);not null;index" json:"windowId"`
	WindowName  string `gorm:"type:varchar(100);not null" json:"windowName"`

	// 患者信息，身份证号用于匹配点击与确认
	Name                 string `gorm:"type:varchar(50);not null;index" json:"name"`
	Age                  string `gorm:"type:varchar(10);not null" json:"age"`
	Sex                  string `gorm:"type:varchar(10);not null" json:"sex"`
	SocialSecurityNumber string `gorm:"type:varchar(50);not null;index" json:"socialSecurityNumber"`
	IdentityCardNumber   string `gorm:"type:varchar(20);not null;index" json:"identityCardNumber"`

	Operator    string `gorm:"type:varchar(50);not null;index" json:"operator"`
	OperateTime string `gorm:"type:varchar(50);not null" json:"operateTime"`
	Status      Status `gorm:"type:varchar(20);index" json:"status"`

	models.MilliTimestampsField
}

// ChargeRecord 收费记录
type ChargeRecord struct {
	Base

	Receivable decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"receivable"`                    // 应收
	PaidUp     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"paidUp"`                        // 实收
	Change     decimal.Decimal `gorm:"column:change_amount;type:decimal(10,2);not null" json:"change"` // 找零
}

// TableName 指定表名
func (ChargeRecord) TableName() string {
	return "tb_charge_record"
}

// RefundRecord 退费记录
type RefundRecord struct {
	Base

	Receivable       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"receivable"`       // 应收
	RealRefundAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"realRefundAmount"` // 实退
}

// TableName 指定表名
func (RefundRecord) TableName() string {
	return "tb_refund_record"
}
