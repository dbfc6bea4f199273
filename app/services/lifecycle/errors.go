package lifecycle

import (
	"fmt"

	"medical/app/models/record"
)

// StoreError 存储层失败，原样向上传递，引擎不做重试
type StoreError struct {
	Kind record.Kind
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s 记录%s失败: %v", e.Kind, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ConflictError 待确认记录已被并发的确认请求抢先确认
type ConflictError struct {
	Kind record.Kind
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s 记录 %s 已被其他请求确认", e.Kind, e.ID)
}
