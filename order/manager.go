package order

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"marketplace-client-go/infrastructure/logger"
	"marketplace-client-go/payment"
)

// Remote 订单服务接口。所有调用单发、不重试；重试策略由网关自行决定。
type Remote interface {
	CreateOrder(ctx context.Context, offerID string) (*OpenOrder, error)
	CreateExternalOrder(ctx context.Context, offerJWT string) (*OpenOrder, error)
	SubmitOrder(ctx context.Context, content, orderID string) (*Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	ChangeOrder(ctx context.Context, orderID string, body Body) (*Order, error)
	GetAllOrderHistory(ctx context.Context) (*OrderList, error)
	GetFilteredOrderHistory(ctx context.Context, origin Origin, offerID string) (*OrderList, error)
}

// Local 本地标志存储。
type Local interface {
	FirstSpendOrder() (bool, error)
	SetFirstSpendOrder(bool) error
}

// PaymentSource 支付结果的多路通知流；一条订阅复用多个订单。
type PaymentSource interface {
	AddObserver(payment.Observer)
	RemoveObserver(payment.Observer)
}

// PaymentTracker 支付源的可选能力：为订单安排超时补发，到期没有真实
// 结果时补一条失败事件。
type PaymentTracker interface {
	Track(orderID string, direction payment.Direction)
}

// Metrics 运行指标落点；nil 时不采集。
type Metrics interface {
	PaymentEvent(succeeded bool)
	Reconciled()
	OrderCanceled()
}

// BlockchainSource 提交一笔链上转账。签名细节由实现负责。
type BlockchainSource interface {
	SendTransaction(ctx context.Context, recipient string, amount decimal.Decimal, orderID string) (string, error)
}

// 回调类型：所有异步操作都立即返回，结果只经由回调送达。
type (
	OpenOrderCallback    func(*OpenOrder, error)
	OrderCallback        func(*Order, error)
	ConfirmationCallback func(*OrderConfirmation, error)
	ListCallback         func(*OrderList, error)
	ErrCallback          func(error)
	BoolCallback         func(bool, error)
)

// 支付失败上报给订单服务时使用的错误码。
const transactionFailedCode = 600

// Config Manager 的运行参数。
type Config struct {
	// FlowTimeout 外部订单流等待终态的期限。
	FlowTimeout time.Duration
}

// Manager 订单生命周期编排器。独占持有在途订单计数、未完结订单缓存和
// 对支付事件流的唯一一条订阅；订单状态变更经由 Watcher 对外发布。
type Manager struct {
	remote     Remote
	local      Local
	payments   PaymentSource
	blockchain BlockchainSource
	events     EventLogger
	metrics    Metrics
	log        *logger.Logger

	flowTimeout time.Duration

	watcher   *Watcher
	openOrder *OpenOrderCell

	pendingOrders atomic.Int64

	paymentMu            sync.Mutex
	paymentObserverCount int
	paymentObserver      *payment.FuncObserver

	cacheMu       sync.RWMutex
	cachedHistory *OrderList

	runMu  sync.RWMutex
	runCtx context.Context
	cancel context.CancelFunc
}

func NewManager(remote Remote, local Local, payments PaymentSource,
	blockchain BlockchainSource, events EventLogger, log *logger.Logger, cfg Config) *Manager {
	if events == nil {
		events = NopEventLogger{}
	}
	if cfg.FlowTimeout <= 0 {
		cfg.FlowTimeout = 2 * time.Minute
	}
	return &Manager{
		remote:      remote,
		local:       local,
		payments:    payments,
		blockchain:  blockchain,
		events:      events,
		log:         log,
		flowTimeout: cfg.FlowTimeout,
		watcher:     NewWatcher(),
		openOrder:   NewOpenOrderCell(),
	}
}

// SetMetrics 注入指标采集器，须在 Start 之前调用。
func (m *Manager) SetMetrics(rec Metrics) { m.metrics = rec }

// Start 记录后台回调使用的根上下文。
func (m *Manager) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	m.runMu.Lock()
	m.runCtx = runCtx
	m.cancel = cancel
	m.runMu.Unlock()
	return nil
}

// Stop 注销残留的支付订阅并取消后台上下文。
func (m *Manager) Stop() error {
	m.runMu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.runMu.Unlock()

	m.paymentMu.Lock()
	if m.paymentObserver != nil {
		m.payments.RemoveObserver(m.paymentObserver)
		m.paymentObserver = nil
	}
	m.paymentObserverCount = 0
	m.paymentMu.Unlock()
	return nil
}

// Health 组件健康状态。
func (m *Manager) Health() error { return nil }

func (m *Manager) runContext() context.Context {
	m.runMu.RLock()
	defer m.runMu.RUnlock()
	if m.runCtx != nil {
		return m.runCtx
	}
	return context.Background()
}

// OpenOrder 当前未完结订单的可观察缓存，外部只读。
func (m *Manager) OpenOrder() *OpenOrderCell { return m.openOrder }

// OrderWatcher 订单状态变更的发布通道。
func (m *Manager) OrderWatcher() *Watcher { return m.watcher }

// AddOrderObserver 订阅订单状态变更。
func (m *Manager) AddOrderObserver(o Observer) { m.watcher.AddObserver(o) }

// RemoveOrderObserver 退订订单状态变更。
func (m *Manager) RemoveOrderObserver(o Observer) { m.watcher.RemoveObserver(o) }

// PendingOrderCount 已提交未对账的订单数，仅用于指标与测试。
func (m *Manager) PendingOrderCount() int64 { return m.pendingOrders.Load() }

// PaymentObserverRefCount 共享支付订阅的逻辑等待者数量，仅用于指标与测试。
func (m *Manager) PaymentObserverRefCount() int {
	m.paymentMu.Lock()
	defer m.paymentMu.Unlock()
	return m.paymentObserverCount
}

// CreateOrder 创建订单；成功后缓存未完结订单句柄。
func (m *Manager) CreateOrder(ctx context.Context, offerID string, cb OpenOrderCallback) {
	go func() {
		open, err := m.remote.CreateOrder(ctx, offerID)
		if err != nil {
			m.logOrderError("create_failed", "", err)
			if cb != nil {
				cb(nil, fromRemoteError(err))
			}
			return
		}
		m.openOrder.Set(open)
		if cb != nil {
			cb(open, nil)
		}
	}()
}

// SubmitOrder 提交订单完成凭据。先注册支付监听（幂等），再调用订单服务；
// 成功时计入在途订单并发布 pending 状态，失败时归还订阅计数并发布合成的
// failed 订单。
func (m *Manager) SubmitOrder(ctx context.Context, offerID, content, orderID string, cb OrderCallback) {
	m.listenForCompletedPayment()
	go func() {
		o, err := m.remote.SubmitOrder(ctx, content, orderID)
		if err != nil {
			m.logOrderError("submit_failed", orderID, err)
			// 提交失败不会再有支付事件，订阅计数在这里归还
			m.decrementPaymentObserverCount()
			m.watcher.Publish(&Order{
				OrderID: orderID,
				OfferID: offerID,
				Status:  StatusFailed,
				Error:   responseBody(err),
			})
			m.removeCachedOpenOrder(orderID)
			if cb != nil {
				cb(nil, fromRemoteError(err))
			}
			return
		}
		m.pendingOrders.Add(1)
		// 支付源支持跟踪时为订单安排超时补发，保证等待者最终能等到事件
		if tr, ok := m.payments.(PaymentTracker); ok {
			tr.Track(o.OrderID, directionOf(o.OfferType))
		}
		m.watcher.Publish(o)
		if cb != nil {
			cb(o, nil)
		}
	}()
}

// CancelOrder 取消本地跟踪并调用订单服务撤单。已广播的链上交易不会被撤回。
func (m *Manager) CancelOrder(ctx context.Context, offerID, orderID string, cb ErrCallback) {
	m.removeCachedOpenOrder(orderID)
	go func() {
		err := m.remote.CancelOrder(ctx, orderID)
		if err == nil && m.metrics != nil {
			m.metrics.OrderCanceled()
		}
		if cb == nil {
			return
		}
		if err != nil {
			cb(fromRemoteError(err))
			return
		}
		cb(nil)
	}()
}

// AllOrderHistory 拉取全部订单历史并替换缓存；失败时缓存保持旧值。
func (m *Manager) AllOrderHistory(ctx context.Context, cb ListCallback) {
	go func() {
		list, err := m.remote.GetAllOrderHistory(ctx)
		if err != nil {
			if cb != nil {
				cb(nil, fromRemoteError(err))
			}
			return
		}
		m.cacheMu.Lock()
		m.cachedHistory = list
		m.cacheMu.Unlock()
		if cb != nil {
			cb(list, nil)
		}
	}()
}

// AllCachedOrderHistory 返回最近一次成功拉取的历史，不触发新请求。
func (m *Manager) AllCachedOrderHistory() *OrderList {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()
	return m.cachedHistory
}

// FirstSpendOrder 读取"首次消费"标志；本地存储故障会被报告为内部
// 一致性错误，而不是静默取默认值。
func (m *Manager) FirstSpendOrder(cb BoolCallback) {
	go func() {
		v, err := m.local.FirstSpendOrder()
		if err != nil {
			if cb != nil {
				cb(false, internalError("first spend order flag unavailable", err))
			}
			return
		}
		if cb != nil {
			cb(v, nil)
		}
	}()
}

// SetFirstSpendOrder 写入"首次消费"标志。
func (m *Manager) SetFirstSpendOrder(v bool) error {
	if err := m.local.SetFirstSpendOrder(v); err != nil {
		return internalError("first spend order flag not persisted", err)
	}
	return nil
}

// ExternalOrderStatus 查询某个 offer 最近一笔外部订单的终态确认。
func (m *Manager) ExternalOrderStatus(ctx context.Context, offerID string, cb ConfirmationCallback) {
	go func() {
		list, err := m.remote.GetFilteredOrderHistory(ctx, OriginExternal, offerID)
		if err != nil {
			if cb != nil {
				cb(nil, fromRemoteError(err))
			}
			return
		}
		last := list.Last()
		if last == nil {
			if cb != nil {
				cb(nil, internalError("no external orders for offer", nil))
			}
			return
		}
		conf := &OrderConfirmation{Status: confirmationStatusOf(last.Status)}
		if conf.Status == ConfirmationCompleted {
			if last.Result == nil || last.Result.Type != ResultTypePaymentConfirmation || last.Result.JWT == "" {
				if cb != nil {
					cb(nil, internalError("completed order carries no payment confirmation", nil))
				}
				return
			}
			conf.JWTConfirmation = last.Result.JWT
		}
		if cb != nil {
			cb(conf, nil)
		}
	}()
}

// listenForCompletedPayment 保证整个进程对支付事件流只有一条订阅：
// 计数 0→1 时安装处理器，之后的等待者只递增计数。
func (m *Manager) listenForCompletedPayment() {
	m.paymentMu.Lock()
	defer m.paymentMu.Unlock()
	if m.paymentObserverCount == 0 {
		obs := &payment.FuncObserver{Fn: m.onPaymentEvent}
		m.paymentObserver = obs
		m.payments.AddObserver(obs)
		if m.log != nil {
			m.log.Info("payment observer installed")
		}
	}
	m.paymentObserverCount++
}

// onPaymentEvent 支付结果到达：失败先回报订单服务，然后归还订阅计数，
// 最后无条件向订单服务对账拿权威终态。
func (m *Manager) onPaymentEvent(ev payment.Event) {
	ctx := m.runContext()
	if m.metrics != nil {
		m.metrics.PaymentEvent(ev.Succeeded)
	}
	if !ev.Succeeded {
		body := Body{Error: &ErrorInfo{
			Error:   "Transaction failed",
			Message: ev.FailureReason,
			Code:    transactionFailedCode,
		}}
		// 尽力而为：上报失败本身不升级
		if _, err := m.remote.ChangeOrder(ctx, ev.OrderID, body); err != nil {
			m.logOrderError("change_order_failed", ev.OrderID, err)
		}
	}
	if ev.Succeeded && ev.IsEarn() && !ev.Amount.IsZero() {
		m.events.EarnOrderPaymentConfirmed(ev.TransactionID, ev.OrderID)
	}
	m.decrementPaymentObserverCount()
	m.reconcile(ctx, ev.OrderID)
}

// decrementPaymentObserverCount 计数 1→0 时拆除支付订阅。
func (m *Manager) decrementPaymentObserverCount() {
	m.paymentMu.Lock()
	defer m.paymentMu.Unlock()
	if m.paymentObserverCount > 0 {
		m.paymentObserverCount--
	}
	if m.paymentObserverCount == 0 && m.paymentObserver != nil {
		m.payments.RemoveObserver(m.paymentObserver)
		m.paymentObserver = nil
		if m.log != nil {
			m.log.Info("payment observer removed")
		}
	}
}

// reconcile 以订单服务的状态为准：拿到终态后发布给观察者；
// 没有更多在途订单时清掉匹配的未完结缓存。
func (m *Manager) reconcile(ctx context.Context, orderID string) {
	if m.metrics != nil {
		m.metrics.Reconciled()
	}
	o, err := m.remote.GetOrder(ctx, orderID)
	m.decrementPendingOrders()
	if err != nil {
		m.logOrderError("reconcile_failed", orderID, err)
		return
	}
	m.watcher.Publish(o)
	m.reportSpendOutcome(o)
	if m.pendingOrders.Load() == 0 {
		m.removeCachedOpenOrder(o.OrderID)
	}
}

// decrementPendingOrders CAS 循环保证计数不降到负数。
func (m *Manager) decrementPendingOrders() {
	for {
		n := m.pendingOrders.Load()
		if n <= 0 {
			return
		}
		if m.pendingOrders.CompareAndSwap(n, n-1) {
			return
		}
	}
}

func (m *Manager) reportSpendOutcome(o *Order) {
	if o.OfferType != OfferTypeSpend {
		return
	}
	if o.Status == StatusCompleted {
		m.events.SpendOrderCompleted(o.OfferID, o.OrderID, false)
		return
	}
	reason := "Timed out"
	if o.Error != nil {
		reason = o.Error.Message
	}
	m.events.SpendOrderFailed(reason, o.OfferID, o.OrderID, false)
}

func (m *Manager) removeCachedOpenOrder(orderID string) {
	if cur := m.openOrder.Get(); cur != nil && cur.ID == orderID {
		m.openOrder.Set(nil)
	}
}

// releaseAfterFlowFailure 外部订单流在提交后失败时回收其占用的
// 在途计数与支付订阅计数。
func (m *Manager) releaseAfterFlowFailure() {
	m.decrementPendingOrders()
	m.decrementPaymentObserverCount()
}

func (m *Manager) logOrderError(event, orderID string, err error) {
	if m.log == nil {
		return
	}
	m.log.LogOrder(event, orderID, map[string]interface{}{"error": err.Error()})
}
