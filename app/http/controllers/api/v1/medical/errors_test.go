package medical

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"medical/app/models/record"
	"medical/app/requests"
	"medical/app/services/lifecycle"
)

func TestLifecycleErrorsCarryNullData(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &requests.ValidationError{Field: "windowName", Message: "窗口名不能为空"}, http.StatusBadRequest},
		{"conflict", &lifecycle.ConflictError{Kind: record.KindCharge, ID: "r1"}, http.StatusConflict},
		{"store", &lifecycle.StoreError{Kind: record.KindRefund, Op: "新增", Err: errors.New("db down")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

			handleLifecycleError(c, tc.err, "确认收费")

			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, w.Body.String(), `"data":null`)
		})
	}
}

func TestValidationErrorMessageNamesField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	handleLifecycleError(c, &requests.ValidationError{Field: "windowName", Message: "窗口名不能为空"}, "收费按钮点击")

	assert.JSONEq(t, `{"code":400,"message":"windowName: 窗口名不能为空","data":null}`, w.Body.String())
}
