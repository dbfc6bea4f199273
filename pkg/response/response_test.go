package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func run(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)
	return w
}

func TestSuccessHasNullData(t *testing.T) {
	w := run(Success)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":200,"message":"success","data":null}`, w.Body.String())
}

func TestValidationError(t *testing.T) {
	w := run(func(c *gin.Context) { ValidationError(c, "name", "患者姓名不能为空") })
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code":400,"message":"name: 患者姓名不能为空","data":null}`, w.Body.String())
}

func TestStatusMatchesCode(t *testing.T) {
	cases := map[int]gin.HandlerFunc{
		http.StatusBadRequest:          func(c *gin.Context) { Abort400(c) },
		http.StatusNotFound:            func(c *gin.Context) { Abort404(c) },
		http.StatusConflict:            func(c *gin.Context) { Abort409(c) },
		http.StatusTooManyRequests:     func(c *gin.Context) { Abort429(c) },
		http.StatusInternalServerError: func(c *gin.Context) { ServerError(c, errors.New("db down")) },
	}
	for code, h := range cases {
		w := run(h)
		assert.Equal(t, code, w.Code)
		assert.Contains(t, w.Body.String(), `"code":`+strconv.Itoa(code))
		assert.Contains(t, w.Body.String(), `"data":null`)
	}
}

func TestServerErrorMessage(t *testing.T) {
	w := run(func(c *gin.Context) { ServerError(c, errors.New("db down")) })
	assert.Contains(t, w.Body.String(), "服务器内部错误: db down")

	w = run(func(c *gin.Context) { ServerError(c, errors.New("db down"), "确认收费处理失败") })
	assert.Contains(t, w.Body.String(), `"message":"确认收费处理失败"`)
}
