package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Server 独立端口上的指标拉取服务
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen 立即绑定监听端口；端口被占用时返回错误，由调用方决定是否退出
func Listen(addr, path string, handler http.Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind metrics listener on %s: %w", addr, err)
	}

	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	return &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln: ln,
	}, nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve 阻塞处理请求，Shutdown 后返回 nil
func (s *Server) Serve() error {
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭；未调用 Serve 时也会释放端口
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	_ = s.ln.Close()
	return err
}
