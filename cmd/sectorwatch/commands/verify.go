package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// verifyCmd re-checks the watchlist once
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "워치리스트 재검증",
	Long: `워치리스트의 모든 종목을 선정 기준으로 다시 평가하고
기준을 벗어난 종목을 제거합니다.

- 일시적 오류: 종목 유지 (unverified)
- 프로바이더 오류 / 기준 미달: 제거
- 쿼터 소진: 중단, 워치리스트 변경 없음

Example:
  go run ./cmd/sectorwatch verify`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setupAll(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.newAgent().Verify(ctx)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintHeader("Watchlist Verification")
	PrintKeyValue("Checked", fmt.Sprintf("%d", report.Checked), 10)
	PrintKeyValue("Kept", fmt.Sprintf("%d", len(report.Kept)), 10)
	PrintKeyValue("Unverified", fmt.Sprintf("%d %v", len(report.Unverified), report.Unverified), 10)
	PrintKeyValue("Duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String(), 10)

	if len(report.Dropped) > 0 {
		PrintSeparator()
		symbols := make([]string, 0, len(report.Dropped))
		for s := range report.Dropped {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			fmt.Printf("   ✂️  %-8s %s\n", s, report.Dropped[s])
		}
	}
	PrintSeparator()
	PrintSuccess(fmt.Sprintf("Verification completed (%d dropped)", len(report.Dropped)))
	return nil
}
