package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"marketplace-client-go/config"
	"marketplace-client-go/gateway"
	"marketplace-client-go/order"
)

// 小工具：拉取订单历史并打印，便于排查线上订单状态。
func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	offerID := flag.String("offer", "", "只看某个 offer 的外部订单")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	client := &gateway.RESTClient{
		BaseURL:    cfg.Gateway.BaseURL,
		APIKey:     cfg.Gateway.APIKey,
		HTTPClient: gateway.NewDefaultHTTPClient(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var list *order.OrderList
	if *offerID != "" {
		list, err = client.GetFilteredOrderHistory(ctx, order.OriginExternal, *offerID)
	} else {
		list, err = client.GetAllOrderHistory(ctx)
	}
	if err != nil {
		log.Fatalf("拉取历史失败: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		log.Fatalf("输出失败: %v", err)
	}
	fmt.Fprintf(os.Stderr, "%d orders\n", len(list.Orders))
}
