// Package terminal 窗口终端接口
package terminal

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medical/app/repositories"
	"medical/app/requests"
	"medical/app/services/notify"
	"medical/pkg/config"
	"medical/pkg/database"
	"medical/pkg/queue"
	"medical/pkg/response"
)

// TerminalController 终端查询与报文下发
type TerminalController struct {
	terminals *repositories.TerminalRepository
	queue     *queue.QueueService
	notifier  *notify.Notifier
	qos       int
}

// NewTerminalController 使用全局依赖创建控制器
func NewTerminalController() *TerminalController {
	return NewTerminalControllerWith(
		database.DB,
		queue.Default,
		config.GetString("gateway.topic_prefix", "bt_client/"),
		config.GetInt("gateway.qos", 1),
	)
}

// NewTerminalControllerWith 使用指定依赖创建控制器，q 为 nil 时下发接口不可用
func NewTerminalControllerWith(db *gorm.DB, q *queue.QueueService, topicPrefix string, qos int) *TerminalController {
	tc := &TerminalController{
		terminals: repositories.NewTerminalRepository(db),
		queue:     q,
		qos:       qos,
	}
	if q != nil {
		tc.notifier = notify.NewNotifier(tc.terminals, q, topicPrefix, qos)
	}
	return tc
}

// Send 向指定主题下发报文
func (tc *TerminalController) Send(c *gin.Context) {
	req, err := requests.ParseJSON[requests.SendRequest](c)
	if err == nil {
		err = requests.ValidateSend(req)
	}
	if err != nil {
		var verr *requests.ValidationError
		if errors.As(err, &verr) {
			response.ValidationError(c, verr.Field, verr.Message)
			return
		}
		response.BadRequest(c, err)
		return
	}

	if tc.notifier == nil {
		response.Abort500(c, "终端指令队列未启用")
		return
	}

	qos := tc.qos
	if req.QoS != nil {
		qos = *req.QoS
	}
	cmd, err := tc.notifier.Send(c.Request.Context(), req.Topic, req.Content, qos)
	if err != nil {
		response.ServerError(c, err, "指令入队失败: "+err.Error())
		return
	}

	response.Data(c, gin.H{
		"id":      cmd.ID,
		"topic":   cmd.Topic,
		"qos":     cmd.QoS,
		"status":  queue.CommandPending,
		"message": fmt.Sprintf("send topic: %s, message : %s", cmd.Topic, req.Content),
	})
}

// CommandStatus 查询指令下发状态
func (tc *TerminalController) CommandStatus(c *gin.Context) {
	if tc.queue == nil {
		response.Abort500(c, "终端指令队列未启用")
		return
	}

	id := c.Param("id")
	status, err := tc.queue.GetStatus(c.Request.Context(), id)
	if err != nil {
		response.ServerError(c, err, "获取指令状态失败")
		return
	}
	if status == "" {
		response.Abort404(c, "指令不存在或已过期")
		return
	}

	response.Data(c, gin.H{
		"id":     id,
		"status": status,
	})
}

// WindowTerminals 查询绑定到某个收费窗口的终端
func (tc *TerminalController) WindowTerminals(c *gin.Context) {
	list, err := tc.terminals.FindByExtraID2(c.Request.Context(), c.Param("windowId"))
	if err != nil {
		response.ServerError(c, err, "查询终端失败: "+err.Error())
		return
	}
	response.Data(c, list)
}

// Show 根据 id 获取终端
func (tc *TerminalController) Show(c *gin.Context) {
	t, err := tc.terminals.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repositories.ErrNotFound) {
		response.Abort404(c, "终端不存在")
		return
	}
	if err != nil {
		response.ServerError(c, err, "查询终端失败: "+err.Error())
		return
	}
	response.Data(c, t)
}
