// Package requests 处理请求数据和表单验证
package requests

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/thedevsaddam/govalidator"
)

// ValidationError 表单验证错误，Field 为按字段顺序第一个未通过的字段
type ValidationError struct {
	Field   string
	Message string
	Errors  url.Values
}

// Error 实现 error 接口
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateStruct 通用的结构体验证函数，返回所有未通过的字段
func ValidateStruct(data interface{}, rules govalidator.MapData, messages govalidator.MapData) url.Values {
	opts := govalidator.Options{
		Data:          data,
		Rules:         rules,
		TagIdentifier: "json", // 使用 json 标签作为字段名
		Messages:      messages,
	}

	errs := govalidator.New(opts).ValidateStruct()
	if errs == nil {
		errs = url.Values{}
	}
	return errs
}

// FirstError 按 order 中的字段顺序返回第一个验证错误，全部通过时返回 nil
func FirstError(order []string, errs url.Values) error {
	for _, field := range order {
		if msgs := errs[field]; len(msgs) > 0 {
			return &ValidationError{
				Field:   field,
				Message: msgs[0],
				Errors:  errs,
			}
		}
	}
	return nil
}

// ParseJSON 通用的请求解析函数，只负责解析 JSON，字段校验由各业务完成
// 字段类型不符（如金额不是数字）时返回该字段的 *ValidationError
func ParseJSON[T any](c *gin.Context) (T, error) {
	var req T

	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		var zero T
		if verr := invalidField[T](c); verr != nil {
			return zero, verr
		}
		return zero, fmt.Errorf("解析请求失败: %w", err)
	}

	return req, nil
}

// formatMessages 字段格式错误时的提示，未列出的字段使用默认提示
var formatMessages = map[string]string{
	"receivable":       "应收金额必须是数字",
	"paidUp":           "实收金额必须是数字",
	"change":           "找零金额必须是数字",
	"realRefundAmount": "实退金额必须是数字",
	"qos":              "qos 必须是整数",
}

// invalidField 按结构体字段声明顺序逐个解码，找出第一个格式错误的字段
func invalidField[T any](c *gin.Context) *ValidationError {
	cached, ok := c.Get(gin.BodyBytesKey)
	if !ok {
		return nil
	}
	body, _ := cached.([]byte)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}

	for _, f := range jsonFields(reflect.TypeOf((*T)(nil)).Elem()) {
		value, ok := raw[f.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, reflect.New(f.typ).Interface()); err != nil {
			msg, ok := formatMessages[f.name]
			if !ok {
				msg = "格式错误"
			}
			return &ValidationError{
				Field:   f.name,
				Message: msg,
				Errors:  url.Values{f.name: []string{msg}},
			}
		}
	}
	return nil
}

type jsonField struct {
	name string
	typ  reflect.Type
}

// jsonFields 展开匿名嵌入的结构体，返回带 json 标签的字段
func jsonFields(t reflect.Type) []jsonField {
	if t.Kind() != reflect.Struct {
		return nil
	}

	var fields []jsonField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := strings.Split(sf.Tag.Get("json"), ",")[0]
		if sf.Anonymous && tag == "" {
			fields = append(fields, jsonFields(sf.Type)...)
			continue
		}
		if !sf.IsExported() || tag == "" || tag == "-" {
			continue
		}
		fields = append(fields, jsonField{name: tag, typ: sf.Type})
	}
	return fields
}
