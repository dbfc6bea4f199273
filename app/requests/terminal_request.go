package requests

import (
	"strconv"
	"strings"

	"github.com/thedevsaddam/govalidator"
)

// SendRequest 直接向终端主题下发报文
type SendRequest struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
	QoS     *int   `json:"qos"`
}

var sendFieldOrder = []string{"topic", "content", "qos"}

// ValidateSend 校验下发请求，qos 可省略，省略时使用默认值
func ValidateSend(req SendRequest) error {
	view := struct {
		Topic   string `json:"topic"`
		Content string `json:"content"`
		QoS     string `json:"qos"`
	}{
		Topic:   strings.TrimSpace(req.Topic),
		Content: req.Content,
	}
	rules := govalidator.MapData{
		"topic":   []string{"required", "max:255"},
		"content": []string{"required"},
	}
	if req.QoS != nil {
		view.QoS = strconv.Itoa(*req.QoS)
		rules["qos"] = []string{"in:0,1,2"}
	}
	messages := govalidator.MapData{
		"topic":   []string{"required:主题不能为空", "max:主题长度不能超过 255"},
		"content": []string{"required:消息内容不能为空"},
		"qos":     []string{"in:qos 只能是 0、1、2"},
	}

	return FirstError(sendFieldOrder, ValidateStruct(&view, rules, messages))
}
