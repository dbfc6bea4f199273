package migrations

import (
	"medical/app/models/record"
	"medical/app/models/terminal"
)

// RegisterTables 返回需要迁移的表的模型列表
func RegisterTables() []interface{} {
	return []interface{}{
		&record.ChargeRecord{},
		&record.RefundRecord{},
		&terminal.Terminal{},
	}
}
