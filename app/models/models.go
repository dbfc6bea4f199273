// Package models 模型通用属性和方法
package models

// MilliTimestampsField 毫秒时间戳，由存储层在写入时赋值
type MilliTimestampsField struct {
	CreateTime int64 `gorm:"column:create_time;index" json:"createTime"`
	UpdateTime int64 `gorm:"column:update_time" json:"updateTime"`
}
