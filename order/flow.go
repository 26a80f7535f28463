package order

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Purchase 以 offer 令牌驱动一次完整的消费流：创建外部订单 → 发送链上
// 转账 → 提交 → 等待确认令牌。结果只经由回调送达。
func (m *Manager) Purchase(ctx context.Context, offerJWT string, cb ConfirmationCallback) {
	m.events.SpendOrderCreationRequested("", true)
	f := &externalFlow{m: m, kind: OfferTypeSpend, offerJWT: offerJWT}
	go f.run(ctx, cb)
}

// RequestPayment 以 offer 令牌驱动一次完整的发放流：创建外部订单 → 提交
// → 等待确认令牌。发放方向没有出站转账。
func (m *Manager) RequestPayment(ctx context.Context, offerJWT string, cb ConfirmationCallback) {
	f := &externalFlow{m: m, kind: OfferTypeEarn, offerJWT: offerJWT}
	go f.run(ctx, cb)
}

// externalFlow 一次外部订单流的短生命周期协议。所有失败经由单一通道
// 上报；订单到达"已提交"状态后失败会回收在途计数与支付订阅计数。
type externalFlow struct {
	m        *Manager
	kind     OfferType
	offerJWT string

	once      sync.Once
	submitted atomic.Bool
}

func (f *externalFlow) run(ctx context.Context, cb ConfirmationCallback) {
	m := f.m

	open, err := m.remote.CreateExternalOrder(ctx, f.offerJWT)
	if err != nil {
		f.fail(cb, fromRemoteError(err), nil)
		return
	}
	m.openOrder.Set(open)

	if f.kind == OfferTypeSpend {
		if _, err := m.blockchain.SendTransaction(ctx, open.RecipientAddress, open.Amount, open.ID); err != nil {
			m.removeCachedOpenOrder(open.ID)
			f.fail(cb, blockchainError("transaction send failed", err), open)
			return
		}
	}

	// 在提交前订阅，保证不漏掉提交失败时的合成 failed 发布。
	terminal := make(chan *Order, 1)
	obs := &FuncObserver{Fn: func(o *Order) {
		if o != nil && o.OrderID == open.ID && o.Status.IsTerminal() {
			select {
			case terminal <- o:
			default:
			}
		}
	}}
	m.watcher.AddObserver(obs)
	defer m.watcher.RemoveObserver(obs)

	m.SubmitOrder(ctx, open.OfferID, "", open.ID, func(_ *Order, err error) {
		if err == nil {
			f.submitted.Store(true)
		}
	})
	if f.kind == OfferTypeSpend {
		m.events.SpendOrderCompletionSubmitted(open.OfferID, open.ID, true)
	}

	select {
	case o := <-terminal:
		f.finish(cb, open, o)
	case <-time.After(m.flowTimeout):
		f.rollback(open)
		f.fail(cb, blockchainError("order confirmation timed out", nil), open)
	case <-ctx.Done():
		f.rollback(open)
		f.fail(cb, blockchainError("order flow canceled", ctx.Err()), open)
	}
}

func (f *externalFlow) finish(cb ConfirmationCallback, open *OpenOrder, o *Order) {
	if o.Status == StatusCompleted {
		if o.Result == nil || o.Result.Type != ResultTypePaymentConfirmation || o.Result.JWT == "" {
			f.fail(cb, internalError("completed order carries no payment confirmation", nil), open)
			return
		}
		if f.kind == OfferTypeSpend {
			f.m.events.SpendOrderCompleted(o.OfferID, o.OrderID, true)
		}
		f.done(cb, &OrderConfirmation{
			Status:          ConfirmationCompleted,
			JWTConfirmation: o.Result.JWT,
		})
		return
	}

	f.rollback(open)
	reason := "Timed out"
	if o.Error != nil {
		reason = o.Error.Message
	}
	var ferr *Error
	if f.submitted.Load() {
		ferr = blockchainError(reason, nil)
	} else {
		ferr = &Error{Kind: KindGateway, Message: reason}
	}
	f.fail(cb, ferr, open)
}

// rollback 清掉缓存句柄；提交过的订单还要归还计数。
func (f *externalFlow) rollback(open *OpenOrder) {
	if f.submitted.Load() {
		f.m.releaseAfterFlowFailure()
	}
	f.m.removeCachedOpenOrder(open.ID)
}

func (f *externalFlow) fail(cb ConfirmationCallback, ferr *Error, open *OpenOrder) {
	f.once.Do(func() {
		if f.kind == OfferTypeSpend {
			offerID, orderID := "null", "null"
			if open != nil {
				offerID, orderID = open.OfferID, open.ID
			}
			f.m.events.SpendOrderFailed(ferr.Reason(), offerID, orderID, true)
		}
		if cb != nil {
			cb(nil, ferr)
		}
	})
}

func (f *externalFlow) done(cb ConfirmationCallback, conf *OrderConfirmation) {
	f.once.Do(func() {
		if cb != nil {
			cb(conf, nil)
		}
	})
}
