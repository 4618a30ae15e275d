// Package server は gin による HTTP サーバーとその起動・停止処理を提供します。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shouni/go-x-scraper/internal/logger"
)

const (
	DefaultPort            = 3000
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 10 * time.Minute // バッチ処理はURL数に比例して長くなる
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// Config はサーバーの設定です。
type Config struct {
	Port            int
	Debug           bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SetDefaults は未設定の項目に既定値を入れます。
func (c *Config) SetDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Server はライフサイクル管理付きの HTTP サーバーです。
type Server struct {
	router *gin.Engine
	server *http.Server
	log    logger.Logger
	cfg    Config
}

// New は標準のミドルウェアを適用したサーバーを生成し、setupRoutes でルートを登録します。
func New(cfg Config, log logger.Logger, setupRoutes func(*gin.Engine)) *Server {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NewNop()
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// パニックの捕捉を最初に置く
	router.Use(RecoveryMiddleware(log))
	router.Use(RequestIDMiddleware(log))
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware())

	if setupRoutes != nil {
		setupRoutes(router)
	}

	return &Server{
		router: router,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
		cfg: cfg,
	}
}

// Router は gin のエンジンを返します。
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start はサーバーを起動し、停止するまでブロックします。
func (s *Server) Start() error {
	s.log.Info("HTTPサーバーを起動します",
		logger.String("address", s.server.Addr),
		logger.Duration("write_timeout", s.server.WriteTimeout),
	)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync はサーバーをゴルーチンで起動し、エラー通知用のチャネルを返します。
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown は処理中のリクエストの完了を待ってからサーバーを停止します。
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTPサーバーを停止しました")
	return nil
}

// Run はサーバーを起動し、SIGINT/SIGTERM またはコンテキストの終了で停止します。
func (s *Server) Run(ctx context.Context) error {
	errCh := s.StartAsync()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		s.log.Info("停止シグナルを受信しました", logger.String("signal", sig.String()))
	case <-ctx.Done():
		s.log.Info("コンテキストが終了したため停止します")
	}

	return s.Shutdown(context.WithoutCancel(ctx))
}
