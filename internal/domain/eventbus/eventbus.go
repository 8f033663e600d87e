package eventbus

import (
	evbus "github.com/asaskevich/EventBus"
)

// Bus 发布方与审计订阅方共用的总线接口，由 bootstrap 持有唯一实例
type Bus interface {
	Subscriber
	PublishAsync(topic string, args ...interface{})
}

var _ Bus = (*AsyncEventBus)(nil)

// New 创建新的同步事件总线
func New() evbus.Bus {
	return evbus.New()
}
