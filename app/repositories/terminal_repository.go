package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"medical/app/models/terminal"
	"medical/pkg/database"
)

// TerminalRepository 终端仓库
type TerminalRepository struct {
	db *gorm.DB
}

// NewTerminalRepository 创建终端仓库，db 为 nil 时使用全局连接
func NewTerminalRepository(db *gorm.DB) *TerminalRepository {
	if db == nil {
		db = database.DB
	}
	return &TerminalRepository{db: db}
}

// Create 登记终端
func (r *TerminalRepository) Create(ctx context.Context, t *terminal.Terminal) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(t).Error
}

// GetByID 根据 id 获取终端
func (r *TerminalRepository) GetByID(ctx context.Context, id string) (*terminal.Terminal, error) {
	var t terminal.Terminal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindByExtraID2 查询绑定到某个收费窗口的终端
func (r *TerminalRepository) FindByExtraID2(ctx context.Context, windowID string) ([]*terminal.Terminal, error) {
	list := make([]*terminal.Terminal, 0)
	err := r.db.WithContext(ctx).
		Where("extra_id2 = ?", windowID).
		Order("terminal_id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
