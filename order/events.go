package order

// EventLogger 上报业务遥测事件。实现必须是非阻塞且不可失败的：
// 遥测故障不允许影响订单流程。
type EventLogger interface {
	SpendOrderCreationRequested(offerID string, external bool)
	SpendOrderCompletionSubmitted(offerID, orderID string, external bool)
	SpendOrderCompleted(offerID, orderID string, external bool)
	SpendOrderFailed(reason, offerID, orderID string, external bool)
	EarnOrderPaymentConfirmed(transactionID, orderID string)
}

// NopEventLogger 丢弃所有事件，用于测试或禁用遥测的场景。
type NopEventLogger struct{}

func (NopEventLogger) SpendOrderCreationRequested(string, bool)           {}
func (NopEventLogger) SpendOrderCompletionSubmitted(string, string, bool) {}
func (NopEventLogger) SpendOrderCompleted(string, string, bool)           {}
func (NopEventLogger) SpendOrderFailed(string, string, string, bool)      {}
func (NopEventLogger) EarnOrderPaymentConfirmed(string, string)           {}
