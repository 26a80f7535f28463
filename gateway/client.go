package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"marketplace-client-go/order"
)

// RESTClient 订单服务客户端，实现 order.Remote。单发调用、不重试；
// HTTPClient 可注入 httptest。
type RESTClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Limiter    RateLimiter
	Recorder   RequestRecorder
}

// RequestRecorder 网关调用指标落点；nil 时不采集。
type RequestRecorder interface {
	GatewayRequest(op string, err error, seconds float64)
}

// 限流权重：列表接口返回整页数据，按重接口计费。
const (
	costSingle = 1
	costList   = 2
)

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

type createExternalRequest struct {
	JWT string `json:"jwt"`
}

type submitRequest struct {
	Content string `json:"content,omitempty"`
}

// CreateOrder 调用 POST /v2/offers/{offerID}/orders 创建订单。
func (c *RESTClient) CreateOrder(ctx context.Context, offerID string) (*order.OpenOrder, error) {
	var open order.OpenOrder
	path := "/v2/offers/" + url.PathEscape(offerID) + "/orders"
	if err := c.doJSON(ctx, "create_order", http.MethodPost, path, costSingle, nil, &open); err != nil {
		return nil, err
	}
	return &open, nil
}

// CreateExternalOrder 以 offer 令牌创建外部订单。
func (c *RESTClient) CreateExternalOrder(ctx context.Context, offerJWT string) (*order.OpenOrder, error) {
	var open order.OpenOrder
	if err := c.doJSON(ctx, "create_external_order", http.MethodPost, "/v2/offers/external/orders", costSingle, createExternalRequest{JWT: offerJWT}, &open); err != nil {
		return nil, err
	}
	return &open, nil
}

// SubmitOrder 提交订单完成凭据。
func (c *RESTClient) SubmitOrder(ctx context.Context, content, orderID string) (*order.Order, error) {
	var o order.Order
	path := "/v2/orders/" + url.PathEscape(orderID)
	if err := c.doJSON(ctx, "submit_order", http.MethodPost, path, costSingle, submitRequest{Content: content}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CancelOrder 撤销订单。
func (c *RESTClient) CancelOrder(ctx context.Context, orderID string) error {
	path := "/v2/orders/" + url.PathEscape(orderID)
	return c.doJSON(ctx, "cancel_order", http.MethodDelete, path, costSingle, nil, nil)
}

// GetOrder 查询订单权威状态。
func (c *RESTClient) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	var o order.Order
	path := "/v2/orders/" + url.PathEscape(orderID)
	if err := c.doJSON(ctx, "get_order", http.MethodGet, path, costSingle, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ChangeOrder 以 PATCH 告知服务端客户端侧观察到的状态。
func (c *RESTClient) ChangeOrder(ctx context.Context, orderID string, body order.Body) (*order.Order, error) {
	var o order.Order
	path := "/v2/orders/" + url.PathEscape(orderID)
	if err := c.doJSON(ctx, "change_order", http.MethodPatch, path, costSingle, body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetAllOrderHistory 拉取全部订单历史。
func (c *RESTClient) GetAllOrderHistory(ctx context.Context) (*order.OrderList, error) {
	var list order.OrderList
	if err := c.doJSON(ctx, "order_history", http.MethodGet, "/v2/orders", costList, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetFilteredOrderHistory 按来源与 offer 过滤订单历史。
func (c *RESTClient) GetFilteredOrderHistory(ctx context.Context, origin order.Origin, offerID string) (*order.OrderList, error) {
	q := url.Values{}
	q.Set("origin", string(origin))
	q.Set("offer_id", offerID)
	var list order.OrderList
	if err := c.doJSON(ctx, "filtered_order_history", http.MethodGet, "/v2/orders?"+q.Encode(), costList, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *RESTClient) doJSON(ctx context.Context, op, method, path string, cost float64, in, out interface{}) (err error) {
	if c == nil || c.HTTPClient == nil {
		return fmt.Errorf("http client not set")
	}
	if c.Limiter != nil {
		c.Limiter.Wait(cost)
	}
	start := time.Now()
	defer func() {
		if c.Recorder != nil {
			c.Recorder.GatewayRequest(op, err, time.Since(start).Seconds())
		}
	}()

	var body io.Reader
	if in != nil {
		raw, merr := json.Marshal(in)
		if merr != nil {
			return merr
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-KEY", c.APIKey)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeAPIError 保留服务端返回的状态码与错误体。
func decodeAPIError(resp *http.Response) error {
	apiErr := &order.APIError{Status: resp.StatusCode}
	var info order.ErrorInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err == nil && (info.Message != "" || info.Code != 0) {
		apiErr.Body = &info
	}
	return apiErr
}
