package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorwatch/internal/api"
	"github.com/wonny/sectorwatch/internal/api/handlers"
)

var apiPort string

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작 (읽기 전용)",
	Long: `저장소를 읽어 섹터 트리와 워치리스트를 제공하는 API 서버를 시작합니다.

수집은 하지 않습니다. 실시간 피드(/ws)가 필요하면 agent start --api를 사용하세요.

Endpoints:
  GET /health
  GET /api/stocks
  GET /api/stocks/graph
  GET /api/stocks/{symbol}
  GET /api/watchlist
  GET /api/last-updated
  GET /api/status

Example:
  go run ./cmd/sectorwatch api
  go run ./cmd/sectorwatch api --port 8090`,
	RunE: runAPIServer,
}

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVarP(&apiPort, "port", "p", "", "port override (default PORT env)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setupStore(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if apiPort != "" {
		rt.cfg.Port = apiPort
	}

	// api 단독 모드: 사이클 리포트/스케줄러 없음
	router := api.NewRouter(
		handlers.NewStockHandler(rt.store, rt.log),
		handlers.NewStatusHandler(nil, nil),
		nil,
		rt.log,
	)
	server := api.New(rt.cfg, rt.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	fmt.Printf("🌐 API listening on %s\n", server.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
