package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"car-companion/internal/application/pairing"
	appsession "car-companion/internal/application/session"
	"car-companion/internal/infrastructure/config"
	"car-companion/internal/infrastructure/db"
	"car-companion/internal/infrastructure/external/cloud"
	"car-companion/internal/infrastructure/external/gateway"
	"car-companion/internal/infrastructure/external/vehicle"
	"car-companion/internal/infrastructure/store"
	"car-companion/internal/infrastructure/token"
	httpapi "car-companion/internal/interface/http"
)

func main() {
	cfg, err := config.LoadFromFile("config.yaml")
	if err != nil {
		log.Fatalf("CRITICAL: load config failed: %v", err)
	}
	log.Printf("configuration loaded (HTTP_ADDR=%s)", cfg.HTTP.Addr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	log.Printf("testing database connection...")
	pool, err := db.Connect(ctx, cfg.DB)
	cancel()
	if err != nil {
		log.Printf("warning: database connection failed, falling back to in-memory store: %v", err)
		pool = nil
	} else if pool == nil {
		log.Printf("no DB_DSN provided; running with in-memory store only")
	} else {
		defer pool.Close()
		log.Printf("database connected successfully")
	}

	var credStore store.Store
	if pool != nil {
		credStore = store.NewPostgres(pool)
	} else {
		credStore = store.NewMemory()
	}

	codec := token.NewCodec()

	// 雲端與車上後端各自獨立的 gateway，認證失敗的處理完全隔離。
	cloudClient := cloud.NewClient(gateway.NewClient("Cloud", cfg.Remote.BaseURL, cfg.Remote.Timeout, nil))
	vehClient := vehicle.NewClient(gateway.NewClient("Vehicle", cfg.Vehicle.Address, cfg.Vehicle.Timeout, nil))

	manager := appsession.NewManager(credStore, codec, cloudClient)
	cloudClient.Gateway().SetTokenSource(manager.CurrentRemoteToken)
	vehClient.Gateway().SetTokenSource(manager.CurrentLocalToken)

	orchestrator := pairing.NewOrchestrator(vehClient, cloudClient, credStore, manager)
	coordinator := appsession.NewCoordinator(manager, codec, orchestrator, cfg.Session.RefreshSkew)
	defer coordinator.Stop()

	// local 側 401/403 時由 coordinator 換發後重試一次；
	// remote 側 401 視為 session 失效，直接強制登出。
	vehClient.Gateway().SetRefresher(coordinator, manager.IsPaired)
	cloudClient.Gateway().SetAuthExpiredHook(func(ctx context.Context) {
		log.Printf("[Session] remote session rejected, forcing logout")
		if err := manager.ClearAll(ctx); err != nil {
			log.Printf("[Session] forced logout failed: %v", err)
		}
	})

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := manager.Restore(bootCtx); err != nil {
		log.Printf("warning: session restore failed: %v", err)
	}
	if addr, err := credStore.Get(bootCtx, store.KeyVehicleAddress); err == nil && addr != "" {
		vehClient.SetAddress(addr)
		log.Printf("[Vehicle] restored address %s", addr)
	}
	bootCancel()

	supervisor := appsession.NewSupervisor(manager, codec, coordinator, cfg.Session.RefreshSkew, cfg.Session.SweepInterval)
	supervisor.Start()
	defer supervisor.Stop()

	apiServer := httpapi.NewServer(manager, orchestrator, vehClient, credStore, pool)
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: apiServer.Handler()}

	go func() {
		log.Printf("starting HTTP server on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: HTTP shutdown failed: %v", err)
	}
	log.Printf("shutdown complete")
}
