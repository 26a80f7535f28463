// Package monitor provides Prometheus metrics for the order client
package monitor

import (
	"context"
	"net/http"
	"time"
)

// Server 指标HTTP服务器
type Server struct {
	addr   string
	server *http.Server
}

func NewServer(addr string, m *Monitor) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &Server{
		addr:   addr,
		server: &http.Server{Addr: addr, Handler: mux},
	}
}

// Start 启动指标服务器
func (s *Server) Start(ctx context.Context) error {
	go func() {
		_ = s.server.ListenAndServe()
	}()
	return nil
}

// Stop 优雅关闭
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Health 服务健康状态
func (s *Server) Health() error { return nil }
