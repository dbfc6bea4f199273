package medical

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"medical/app/models/record"
	"medical/app/repositories"
	"medical/pkg/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// RecordQuery 收费、退费共用的只读查询
type RecordQuery[R any, PR record.Pointer[R]] struct {
	repo  *repositories.RecordRepository[R, PR]
	label string
}

// ChargeQuery 收费记录查询
func (mc *MedicalController) ChargeQuery() RecordQuery[record.ChargeRecord, *record.ChargeRecord] {
	return RecordQuery[record.ChargeRecord, *record.ChargeRecord]{repo: mc.charges, label: "收费"}
}

// RefundQuery 退费记录查询
func (mc *MedicalController) RefundQuery() RecordQuery[record.RefundRecord, *record.RefundRecord] {
	return RecordQuery[record.RefundRecord, *record.RefundRecord]{repo: mc.refunds.RecordRepository, label: "退费"}
}

// ByIdentityCard 根据身份证号查询记录
func (q RecordQuery[R, PR]) ByIdentityCard(c *gin.Context) {
	list, err := q.repo.FindByIdentityCardNumber(c.Request.Context(), c.Param("identityCardNumber"))
	q.respond(c, list, err)
}

// Pending 查询待确认记录，最新的在前
func (q RecordQuery[R, PR]) Pending(c *gin.Context) {
	list, err := q.repo.FindPending(c.Request.Context())
	q.respond(c, list, err)
}

// ByAddress 根据医院ID查询记录
func (q RecordQuery[R, PR]) ByAddress(c *gin.Context) {
	list, err := q.repo.FindByAddressID(c.Request.Context(), c.Param("addressId"))
	q.respond(c, list, err)
}

// Show 根据 id 获取单条记录
func (q RecordQuery[R, PR]) Show(c *gin.Context) {
	rec, err := q.repo.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repositories.ErrNotFound) {
		response.Abort404(c, q.label+"记录不存在")
		return
	}
	if err != nil {
		response.ServerError(c, err, fmt.Sprintf("查询%s记录失败: %v", q.label, err))
		return
	}
	response.Data(c, rec)
}

// Search 组合条件分页查询
func (q RecordQuery[R, PR]) Search(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		response.Abort400(c, err.Error())
		return
	}

	list, total, err := q.repo.Search(c.Request.Context(), filter)
	if err != nil {
		response.ServerError(c, err, fmt.Sprintf("查询%s记录失败: %v", q.label, err))
		return
	}

	response.Data(c, gin.H{
		"list":     list,
		"total":    total,
		"page":     filter.Page,
		"pageSize": filter.PageSize,
	})
}

// HospitalStats 某个医院的记录数量统计
func (q RecordQuery[R, PR]) HospitalStats(c *gin.Context) {
	stats, err := q.countStats(c, repositories.RecordFilter{AddressID: c.Param("addressId")})
	if err != nil {
		response.ServerError(c, err, fmt.Sprintf("统计%s记录失败: %v", q.label, err))
		return
	}
	stats["addressId"] = c.Param("addressId")
	response.Data(c, stats)
}

func (q RecordQuery[R, PR]) countStats(c *gin.Context, filter repositories.RecordFilter) (gin.H, error) {
	ctx := c.Request.Context()

	total, err := q.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	filter.Status = record.StatusPending
	pending, err := q.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return gin.H{
		"total":     total,
		"pending":   pending,
		"confirmed": total - pending,
	}, nil
}

func (q RecordQuery[R, PR]) respond(c *gin.Context, list []*R, err error) {
	if err != nil {
		response.ServerError(c, err, fmt.Sprintf("查询%s记录失败: %v", q.label, err))
		return
	}
	response.Data(c, list)
}

// parseFilter 读取查询参数，分页默认第 1 页、每页 20 条
func parseFilter(c *gin.Context) (repositories.RecordFilter, error) {
	f := repositories.RecordFilter{
		IdentityCardNumber:   c.Query("identityCardNumber"),
		SocialSecurityNumber: c.Query("socialSecurityNumber"),
		AddressID:            c.Query("addressId"),
		WindowID:             c.Query("windowId"),
		Operator:             c.Query("operator"),
		Name:                 c.Query("name"),
		OperateTimeStart:     c.Query("operateTimeStart"),
		OperateTimeEnd:       c.Query("operateTimeEnd"),
	}

	if status := c.Query("status"); status != "" {
		if !record.ValidStatus(status) {
			return f, fmt.Errorf("状态只能是 %s 或 %s", record.StatusPending, record.StatusConfirmed)
		}
		f.Status = record.Status(status)
	}

	var err error
	if f.CreateTimeStart, err = cast.ToInt64E(c.DefaultQuery("createTimeStart", "0")); err != nil {
		return f, errors.New("createTimeStart 必须是毫秒时间戳")
	}
	if f.CreateTimeEnd, err = cast.ToInt64E(c.DefaultQuery("createTimeEnd", "0")); err != nil {
		return f, errors.New("createTimeEnd 必须是毫秒时间戳")
	}

	f.Page = cast.ToInt(c.DefaultQuery("page", "1"))
	if f.Page < 1 {
		f.Page = 1
	}
	f.PageSize = cast.ToInt(c.DefaultQuery("pageSize", "0"))
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	if c.Query("order") == "desc" {
		f.Order = repositories.OrderCreateDesc
	}
	return f, nil
}

// RefundHospitalStats 某个医院的退费数量与已确认退费总额
func (mc *MedicalController) RefundHospitalStats(c *gin.Context) {
	addressID := c.Param("addressId")
	q := mc.RefundQuery()

	stats, err := q.countStats(c, repositories.RecordFilter{AddressID: addressID})
	if err != nil {
		response.ServerError(c, err, "统计退费记录失败: "+err.Error())
		return
	}
	sum, err := mc.refunds.SumRefundAmountByAddressID(c.Request.Context(), addressID)
	if err != nil {
		response.ServerError(c, err, "统计退费金额失败: "+err.Error())
		return
	}

	stats["addressId"] = addressID
	stats["confirmedRefundAmount"] = sum.StringFixed(2)
	response.Data(c, stats)
}

// RefundWindowStats 某个窗口的退费数量与已确认退费总额
func (mc *MedicalController) RefundWindowStats(c *gin.Context) {
	windowID := c.Param("windowId")
	q := mc.RefundQuery()

	stats, err := q.countStats(c, repositories.RecordFilter{WindowID: windowID})
	if err != nil {
		response.ServerError(c, err, "统计退费记录失败: "+err.Error())
		return
	}
	sum, err := mc.refunds.SumRefundAmountByWindowID(c.Request.Context(), windowID)
	if err != nil {
		response.ServerError(c, err, "统计退费金额失败: "+err.Error())
		return
	}

	stats["windowId"] = windowID
	stats["confirmedRefundAmount"] = sum.StringFixed(2)
	response.Data(c, stats)
}

// RefundAmountRange 按实退金额范围查询退费记录
func (mc *MedicalController) RefundAmountRange(c *gin.Context) {
	lo, err := decimal.NewFromString(c.Query("min"))
	if err != nil {
		response.Abort400(c, "min 必须是金额")
		return
	}
	hi, err := decimal.NewFromString(c.Query("max"))
	if err != nil {
		response.Abort400(c, "max 必须是金额")
		return
	}

	list, err := mc.refunds.FindByRealRefundAmountBetween(c.Request.Context(), lo, hi)
	if err != nil {
		response.ServerError(c, err, "查询退费记录失败: "+err.Error())
		return
	}
	response.Data(c, list)
}
