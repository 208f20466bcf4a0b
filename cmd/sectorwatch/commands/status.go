package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorwatch/internal/api/handlers"
	"github.com/wonny/sectorwatch/internal/contracts"
)

// statusCmd summarizes what the store holds
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "저장소 현황 (섹터별 종목 수)",
	Long: `저장된 종목을 섹터별로 집계하고 워치리스트 크기를 표시합니다.

Example:
  go run ./cmd/sectorwatch status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rt, err := setupStore(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	records, err := rt.store.Stocks(ctx)
	if err != nil {
		return fmt.Errorf("load stocks: %w", err)
	}
	watchlist, err := rt.store.Watchlist(ctx)
	if err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}

	var (
		views  = make([]contracts.StockView, 0, len(records))
		newest time.Time
	)
	for _, rec := range records {
		views = append(views, rec.View())
		if rec.LastUpdate.After(newest) {
			newest = rec.LastUpdate
		}
	}

	now := time.Now()
	PrintHeader("sectorwatch Status")
	PrintKeyValue("Stocks", fmt.Sprintf("%d", len(records)), 12)
	PrintKeyValue("Watchlist", fmt.Sprintf("%d / %d", len(watchlist), rt.cfg.Agent.TargetSize), 12)
	PrintKeyValue("Last update", formatAge(newest, now), 12)
	PrintSeparator()

	tree := handlers.BuildSectorTree(views)
	widths := []int{28, 10, 8}
	PrintTableHeader([]string{"Sector", "Industries", "Stocks"}, widths)
	for _, sector := range tree {
		count := 0
		for _, ind := range sector.Children {
			count += len(ind.Children)
		}
		PrintTableRow([]string{
			truncate(sector.Name, widths[0]),
			fmt.Sprintf("%d", len(sector.Children)),
			fmt.Sprintf("%d", count),
		}, widths)
	}

	if len(watchlist) < rt.cfg.Agent.TargetSize {
		PrintInfo(fmt.Sprintf("Watchlist below target by %d; the next cycle will top up", rt.cfg.Agent.TargetSize-len(watchlist)))
	}
	return nil
}
