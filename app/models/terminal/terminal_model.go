// Package terminal 收费窗口显示终端模型
package terminal

import (
	"time"
)

// OnlineState 终端在线状态
type OnlineState int

const (
	StateOffline OnlineState = 0 // 离线
	StatePowerOn OnlineState = 1 // 开机
	StateShutoff OnlineState = 2 // 关机
)

// Terminal 终端模型，ExtraID2 绑定收费窗口 ID
type Terminal struct {
	ID           string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CstmID       string      `gorm:"type:varchar(50)" json:"cstmId"`
	TerminalID   string      `gorm:"type:varchar(50);index" json:"terminalId"`
	ExtraID1     string      `gorm:"column:extra_id1;type:varchar(50)" json:"extraId1"`
	ExtraID2     string      `gorm:"column:extra_id2;type:varchar(50);index" json:"extraId2"`
	TerminalName string      `gorm:"type:varchar(100)" json:"terminalName"`
	TerminalDesc string      `gorm:"type:varchar(255)" json:"terminalDesc"`
	OnlineState  OnlineState `gorm:"default:0" json:"onlineState"`
	IPAddr       string      `gorm:"column:ipaddr;type:varchar(64)" json:"ipaddr"`
	AppVersion   string      `gorm:"type:varchar(50)" json:"appVersion"`
	CreateTime   time.Time   `gorm:"autoCreateTime" json:"createTime"`
}

// TableName 指定表名
func (Terminal) TableName() string {
	return "tb_terminal"
}

// IsOnline 是否开机在线
func (t *Terminal) IsOnline() bool {
	return t.OnlineState == StatePowerOn
}
