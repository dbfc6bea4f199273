// Package medical 收费、退费接口
package medical

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medical/app/models/record"
	"medical/app/repositories"
	"medical/app/requests"
	"medical/app/services/lifecycle"
	"medical/app/services/notify"
	"medical/pkg/config"
	"medical/pkg/database"
	"medical/pkg/logger"
	"medical/pkg/queue"
	"medical/pkg/response"
)

// MedicalController 收退费按钮点击、确认以及记录查询
type MedicalController struct {
	db           *gorm.DB
	queue        *queue.QueueService
	charges      *repositories.ChargeRepository
	refunds      *repositories.RefundRepository
	chargeEngine *lifecycle.ChargeEngine
	refundEngine *lifecycle.RefundEngine
}

// NewMedicalController 使用全局数据库连接与终端指令队列创建控制器
func NewMedicalController() *MedicalController {
	var notifier lifecycle.Notifier
	if queue.Default != nil {
		notifier = notify.NewNotifier(
			repositories.NewTerminalRepository(database.DB),
			queue.Default,
			config.GetString("gateway.topic_prefix", "bt_client/"),
			config.GetInt("gateway.qos", 1),
		)
	}

	mc := NewMedicalControllerWith(database.DB, notifier, config.GetDuration("lifecycle.store_timeout", 5),
		lifecycle.WithNotifyTimeout(config.GetDuration("lifecycle.notify_timeout", 2)))
	mc.queue = queue.Default
	return mc
}

// NewMedicalControllerWith 使用指定依赖创建控制器，notifier 可以为 nil
func NewMedicalControllerWith(db *gorm.DB, notifier lifecycle.Notifier, storeTimeout time.Duration, extra ...lifecycle.Option) *MedicalController {
	opts := append([]lifecycle.Option{lifecycle.WithStoreTimeout(storeTimeout)}, extra...)
	if notifier != nil {
		opts = append(opts, lifecycle.WithNotifier(notifier))
	}

	charges := repositories.NewChargeRepository(db)
	refunds := repositories.NewRefundRepository(db)
	return &MedicalController{
		db:           db,
		charges:      charges,
		refunds:      refunds,
		chargeEngine: lifecycle.NewChargeEngine(charges, opts...),
		refundEngine: lifecycle.NewRefundEngine(refunds.RecordRepository, opts...),
	}
}

// ChargeButtonClick 收费按钮点击，生成待确认收费记录
func (mc *MedicalController) ChargeButtonClick(c *gin.Context) {
	handleClick(c, mc.chargeEngine, "收费按钮点击")
}

// ConfirmPayment 确认收费
func (mc *MedicalController) ConfirmPayment(c *gin.Context) {
	handleConfirm(c, mc.chargeEngine, "确认收费")
}

// RefundButtonClick 退费按钮点击，生成待确认退费记录
func (mc *MedicalController) RefundButtonClick(c *gin.Context) {
	handleClick(c, mc.refundEngine, "退费按钮点击")
}

// ConfirmRefund 确认退费
func (mc *MedicalController) ConfirmRefund(c *gin.Context) {
	handleConfirm(c, mc.refundEngine, "确认退费")
}

func handleClick[E any, R any, PR record.Pointer[R]](c *gin.Context, engine *lifecycle.Engine[E, R, PR], action string) {
	req, err := requests.ParseJSON[E](c)
	if err != nil {
		handleParseError(c, err, action)
		return
	}

	id, err := engine.CreatePending(c.Request.Context(), req)
	if err != nil {
		handleLifecycleError(c, err, action)
		return
	}

	logger.InfoString("Medical", action, "处理成功 记录: "+id)
	response.Success(c)
}

func handleConfirm[E any, R any, PR record.Pointer[R]](c *gin.Context, engine *lifecycle.Engine[E, R, PR], action string) {
	req, err := requests.ParseJSON[E](c)
	if err != nil {
		handleParseError(c, err, action)
		return
	}

	res, err := engine.ResolveConfirm(c.Request.Context(), req)
	if err != nil {
		handleLifecycleError(c, err, action)
		return
	}

	how := "新增"
	if res.Matched {
		how = "更新待确认记录"
	}
	logger.InfoString("Medical", action, fmt.Sprintf("处理成功 记录: %s (%s)", res.ID, how))
	response.Success(c)
}

// handleParseError 字段格式错误按校验失败处理，其余解析错误响应 400
func handleParseError(c *gin.Context, err error, action string) {
	var verr *requests.ValidationError
	if errors.As(err, &verr) {
		logger.WarnString("Medical", action, "参数格式错误: "+verr.Field)
		response.ValidationError(c, verr.Field, verr.Message)
		return
	}
	response.BadRequest(c, err)
}

// handleLifecycleError 校验失败 400，并发冲突 409，其余 500
func handleLifecycleError(c *gin.Context, err error, action string) {
	var (
		verr *requests.ValidationError
		cerr *lifecycle.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		logger.WarnString("Medical", action, "参数错误: "+verr.Message)
		response.ValidationError(c, verr.Field, verr.Message)
	case errors.As(err, &cerr):
		response.Abort409(c, action+"失败: "+cerr.Error())
	default:
		response.ServerError(c, err, action+"处理失败: "+err.Error())
	}
}

// Health 健康检查，数据库不可用时返回 500
func (mc *MedicalController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	sqlDB, err := mc.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		response.ServerError(c, err, "数据库不可用")
		return
	}

	queueState := "disabled"
	if mc.queue != nil {
		queueState = "ok"
		if err := mc.queue.Ping(ctx); err != nil {
			queueState = "unavailable"
			logger.WarnString("Medical", "Health", "队列不可用: "+err.Error())
		}
	}

	response.Data(c, gin.H{
		"message":  "医疗收费系统运行正常",
		"database": "ok",
		"queue":    queueState,
		"time":     time.Now().Unix(),
	})
}
