package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/himakhaitan/memkv/engine"
	"github.com/himakhaitan/memkv/pkg/config"
	"github.com/himakhaitan/memkv/types"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewMux constructs the admin HTTP mux
func NewMux(db *engine.DB, listener *Listener, metrics *Metrics, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// Health Check Route
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// GET /v1/stats
	mux.HandleFunc("/v1/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			_ = json.NewEncoder(w).Encode(types.BaseResponse{Success: false, Message: "Method not allowed", Timestamp: time.Now().Unix()})
			return
		}
		stats := db.Stats()
		if err := json.NewEncoder(w).Encode(types.StatsResponse{
			TotalKeys:         stats.TotalKeys,
			TotalSize:         stats.TotalSize,
			ActiveConnections: listener.ActiveSessions(),
			BaseResponse: types.BaseResponse{
				Success:   true,
				Timestamp: time.Now().Unix(),
				Message:   "stats fetched successfully",
			},
		}); err != nil {
			logger.Warn("Could not write stats response", zap.Error(err))
		}
	})

	// GET /metrics
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		metrics.WritePrometheus(w)
	})

	return mux
}

// NewAdminServer constructs the admin http.Server, or nil when no admin
// address is configured
func NewAdminServer(cfg *config.Config, mux *http.ServeMux) *http.Server {
	if cfg.AdminAddr == "" {
		return nil
	}
	return &http.Server{Addr: cfg.AdminAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

// RegisterHooks starts and stops the cache listener and the admin server
// using fx Lifecycle. A bind failure aborts application start.
func RegisterHooks(lc fx.Lifecycle, listener *Listener, admin *http.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := listener.Listen(ctx); err != nil {
				return err
			}
			go func() {
				if err := listener.Serve(); err != nil {
					logger.Error("Cache listener stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping cache listener")
			return listener.Close()
		},
	})

	if admin == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", admin.Addr)
			if err != nil {
				return err
			}
			logger.Info("Starting admin HTTP server", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := admin.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Admin server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping admin HTTP server")
			return admin.Shutdown(ctx)
		},
	})
}
