// Package notify 收退费结果推送到窗口终端
package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"medical/app/models/record"
	"medical/app/models/terminal"
	"medical/app/services/lifecycle"
	"medical/pkg/app"
	"medical/pkg/logger"
	"medical/pkg/queue"
)

// ServiceName 终端报文中的服务类型
const ServiceName = "ServiceMedical"

// Enqueuer 指令入队
type Enqueuer interface {
	PushCommand(ctx context.Context, cmd *queue.Command) error
}

// Finder 查询窗口绑定的终端
type Finder interface {
	FindByExtraID2(ctx context.Context, windowID string) ([]*terminal.Terminal, error)
}

// Notifier 每次收退费写入成功后，给该窗口绑定的每台终端入队一条指令
type Notifier struct {
	terminals   Finder
	queue       Enqueuer
	topicPrefix string
	qos         int
}

var _ lifecycle.Notifier = (*Notifier)(nil)

// NewNotifier 创建终端通知
func NewNotifier(terminals Finder, q Enqueuer, topicPrefix string, qos int) *Notifier {
	return &Notifier{
		terminals:   terminals,
		queue:       q,
		topicPrefix: topicPrefix,
		qos:         qos,
	}
}

// Operation 报文操作类型，如 CHARGE_PENDING、REFUND_CONFIRMED
func Operation(kind record.Kind, status record.Status) string {
	return strings.ToUpper(string(kind)) + "_" + string(status)
}

// Topic 终端订阅的主题
func (n *Notifier) Topic(terminalID string) string {
	return n.topicPrefix + terminalID
}

// Notify 实现 lifecycle.Notifier，失败只记录日志
func (n *Notifier) Notify(ctx context.Context, notice lifecycle.Notice) {
	meta := notice.Record.Meta()

	terminals, err := n.terminals.FindByExtraID2(ctx, meta.WindowID)
	if err != nil {
		logger.ErrorString("Terminal", "Find", fmt.Sprintf("窗口 %s 查询终端失败: %v", meta.WindowID, err))
		return
	}
	if len(terminals) == 0 {
		logger.DebugString("Terminal", "Notify", "窗口未绑定终端: "+meta.WindowID)
		return
	}

	operation := Operation(notice.Kind, meta.Status)
	params := notice.Record.Params()
	params["sendTime"] = app.OperateTimeNow()

	for _, t := range terminals {
		cmd := queue.NewCommand(n.Topic(t.TerminalID), n.qos, ServiceName, operation, params)
		if err := n.queue.PushCommand(ctx, cmd); err != nil {
			logger.Error("Terminal", zap.String("action", "enqueue"),
				zap.String("terminal", t.TerminalID), zap.String("record", meta.ID), zap.Error(err))
			continue
		}
		logger.Debug("Terminal", zap.String("action", "enqueue"),
			zap.String("terminal", t.TerminalID), zap.String("operation", operation), zap.String("command", cmd.ID))
	}
}

// Send 原样下发一条报文
func (n *Notifier) Send(ctx context.Context, topic, content string, qos int) (*queue.Command, error) {
	cmd := queue.NewRawCommand(topic, qos, content)
	if err := n.queue.PushCommand(ctx, cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}
