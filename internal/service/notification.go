package service

import (
	"fmt"

	"github.com/orderpulse/internal/logger"
)

// Notifier 通知发送接口。引擎只决定何时发送，不关心传输方式。
type Notifier interface {
	Send(recipient, message string) error
}

// LogNotifier 日志落地的通知实现：未接入真实短信网关时使用
type LogNotifier struct {
	sender string
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(sender string) *LogNotifier {
	return &LogNotifier{sender: sender}
}

// Send 将通知内容写入日志
func (n *LogNotifier) Send(recipient, message string) error {
	logger.Infow("notification_logged",
		"sender", n.sender,
		"recipient", recipient,
		"message", message,
	)
	return nil
}

// DeliveryCodeMessage 拼装交付验证码短信文案
func DeliveryCodeMessage(orderNo, code string, expireHours int) string {
	return fmt.Sprintf("您的订单 %s 交付验证码为 %s，%d 小时内有效。请在签收时出示给配送员。", orderNo, code, expireHours)
}
