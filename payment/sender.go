package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Sender 向支付服务提交一笔链上转账。签名与共识细节由服务端负责，
// 这里只暴露提交接口；成功提交后开始在 Watcher 上跟踪结果。
type Sender struct {
	BaseURL    string
	HTTPClient *http.Client

	watcher *Watcher
}

func NewSender(baseURL string, watcher *Watcher) *Sender {
	return &Sender{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		watcher:    watcher,
	}
}

type sendRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	OrderID   string `json:"order_id"`
}

type sendResponse struct {
	TransactionID string `json:"transaction_id"`
}

// SendTransaction 提交转账，返回交易 ID。提交成功即开始跟踪订单的支付结果。
func (s *Sender) SendTransaction(ctx context.Context, recipient string, amount decimal.Decimal, orderID string) (string, error) {
	if s == nil || s.HTTPClient == nil {
		return "", fmt.Errorf("http client not set")
	}
	payload, err := json.Marshal(sendRequest{
		Recipient: recipient,
		Amount:    amount.String(),
		OrderID:   orderID,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/v1/transactions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("send transaction status %d", resp.StatusCode)
	}
	var sr sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", err
	}
	if sr.TransactionID == "" {
		return "", fmt.Errorf("empty transaction_id")
	}
	if s.watcher != nil {
		s.watcher.Track(orderID, DirectionSpend)
	}
	return sr.TransactionID, nil
}
