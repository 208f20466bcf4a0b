package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorwatch/internal/contracts"
)

// watchlistCmd prints the watchlist joined with stored records
var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "워치리스트 조회",
	Long: `워치리스트 종목과 최신 지표(AO/AC)를 표로 출력합니다.

Example:
  go run ./cmd/sectorwatch watchlist`,
	RunE: runWatchlist,
}

func init() {
	rootCmd.AddCommand(watchlistCmd)
}

func runWatchlist(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rt, err := setupStore(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	watchlist, err := rt.store.Watchlist(ctx)
	if err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}
	records, err := rt.store.Stocks(ctx)
	if err != nil {
		return fmt.Errorf("load stocks: %w", err)
	}

	bySymbol := make(map[string]contracts.StockView, len(records))
	for _, rec := range records {
		bySymbol[rec.Symbol] = rec.View()
	}

	if len(watchlist) == 0 {
		PrintWarning("Watchlist is empty; run `agent run-once` to fill it")
		return nil
	}

	now := time.Now()
	widths := []int{8, 24, 22, 10, 10, 10, 10, 14}
	PrintTableHeader([]string{"Symbol", "Name", "Sector", "Cap", "Price", "AO", "AC", "Updated"}, widths)
	for _, entry := range watchlist {
		v, ok := bySymbol[entry.Symbol]
		if !ok {
			PrintTableRow([]string{entry.Symbol, truncate(entry.Name, widths[1]), "-", "-", "-", "-", "-", "no record"}, widths)
			continue
		}
		PrintTableRow([]string{
			v.Symbol,
			truncate(v.Name, widths[1]),
			truncate(v.Sector, widths[2]),
			formatMarketCap(v.MarketCap),
			formatOptional(v.LatestPrice),
			formatOptional(v.Oscillator),
			formatOptional(v.Acceleration),
			formatAge(v.LastUpdate, now),
		}, widths)
	}
	PrintSeparator()
	PrintInfo(fmt.Sprintf("%d of %d tracked", len(watchlist), rt.cfg.Agent.TargetSize))
	return nil
}
