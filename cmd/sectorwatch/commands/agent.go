package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorwatch/internal/agent"
	"github.com/wonny/sectorwatch/internal/api"
	"github.com/wonny/sectorwatch/internal/api/handlers"
	"github.com/wonny/sectorwatch/internal/realtime"
	"github.com/wonny/sectorwatch/internal/scheduler"
	"github.com/wonny/sectorwatch/internal/scheduler/jobs"
)

var (
	withAPI    bool
	jsonOutput bool
)

// agentCmd represents the agent command group
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "워치리스트 수집 에이전트",
	Long: `워치리스트 수집 에이전트를 실행합니다.

Subcommands:
  start     - 스케줄러로 주기 실행 (15분 사이클 + 매일 검증)
  run-once  - 사이클 1회 실행 후 리포트 출력`,
}

var agentStartCmd = &cobra.Command{
	Use:   "start",
	Short: "에이전트 데몬 시작",
	Long: `에이전트를 시작하고 아래 작업을 스케줄합니다.

등록되는 작업:
- watchlist_cycle: AGENT_CYCLE_INTERVAL마다 (기본 15분)
- watchlist_verify: AGENT_VERIFY_SCHEDULE (기본 매일 06:30)
- store_health: 5분마다

--api 플래그를 주면 같은 프로세스에서 API 서버와 /ws 실시간 피드를 함께 띄웁니다.
Ctrl+C로 종료할 수 있습니다.

Example:
  go run ./cmd/sectorwatch agent start
  go run ./cmd/sectorwatch agent start --api`,
	RunE: runAgentStart,
}

var agentRunOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "사이클 1회 실행",
	RunE:  runAgentOnce,
}

func init() {
	rootCmd.AddCommand(agentCmd)
	agentCmd.AddCommand(agentStartCmd)
	agentCmd.AddCommand(agentRunOnceCmd)

	agentStartCmd.Flags().BoolVar(&withAPI, "api", false, "serve the API and websocket feed in-process")
	agentRunOnceCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
}

func runAgentStart(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setupAll(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.provider.Ping(ctx); err != nil {
		return fmt.Errorf("provider check failed: %w", err)
	}
	rt.log.Info("Provider reachable")

	hub := realtime.NewHub(rt.log)
	go hub.Run(ctx)

	ag := rt.newAgent(agent.WithPublisher(hub))

	sched := scheduler.New(rt.log)
	for _, job := range []scheduler.Job{
		jobs.NewCycleJob(ag, rt.cfg.Agent.CycleInterval, rt.log),
		jobs.NewVerifyJob(ag, rt.cfg.Agent.VerifySchedule, rt.log),
		jobs.NewStoreHealthJob(rt.store, rt.log),
	} {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("register job: %w", err)
		}
	}

	var server *api.Server
	if withAPI {
		router := api.NewRouter(
			handlers.NewStockHandler(rt.store, rt.log),
			handlers.NewStatusHandler(ag, sched),
			hub.ServeWS,
			rt.log,
		)
		server = api.New(rt.cfg, rt.log, router)
		go func() {
			if err := server.Start(); err != nil {
				rt.log.WithError(err).Error("API server stopped")
				stop()
			}
		}()
	}

	sched.Start()
	defer sched.Stop()

	fmt.Println("\n✅ Agent started")
	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.GetAllJobs() {
		next, _ := sched.NextRun(name)
		fmt.Printf("  - %-18s next: %s\n", name, next.Format(time.RFC3339))
	}
	if server != nil {
		fmt.Printf("\n🌐 API listening on %s (/ws for live updates)\n", server.Addr())
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// 시작 직후 첫 사이클 (초기 배치)
	if _, err := sched.RunJob(ctx, "watchlist_cycle"); err != nil {
		rt.log.WithError(err).Warn("Initial cycle failed")
	}

	<-ctx.Done()
	fmt.Println("\nShutting down agent...")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			rt.log.WithError(err).Warn("API shutdown incomplete")
		}
	}
	return nil
}

func runAgentOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setupAll(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.newAgent().RunCycle(ctx)
	if report != nil {
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(report); encErr != nil {
				return encErr
			}
		} else {
			printCycleReport(report)
		}
	}
	return err
}

func printCycleReport(r *agent.CycleReport) {
	PrintHeader("Cycle " + r.CycleID)

	states := make([]string, 0, len(r.States))
	for _, s := range r.States {
		states = append(states, string(s))
	}

	PrintKeyValue("States", strings.Join(states, " → "), 14)
	PrintKeyValue("Duration", r.Duration().Round(time.Millisecond).String(), 14)
	PrintKeyValue("Tracked", fmt.Sprintf("%d", r.Tracked), 14)
	PrintKeyValue("Refreshed", fmt.Sprintf("%d (failed %d)", r.Refreshed, r.RefreshFailed), 14)
	PrintKeyValue("Need", fmt.Sprintf("%d", r.Need), 14)
	PrintKeyValue("Candidates", fmt.Sprintf("%d", r.Candidates), 14)
	PrintKeyValue("Evaluated", fmt.Sprintf("%d (fetch errors %d)", r.Evaluated, r.FetchErrors), 14)
	PrintKeyValue("Accepted", fmt.Sprintf("%d %v", len(r.Accepted), r.Accepted), 14)

	if len(r.Rejected) > 0 {
		rules := make([]string, 0, len(r.Rejected))
		for rule, n := range r.Rejected {
			rules = append(rules, fmt.Sprintf("%s=%d", rule, n))
		}
		sort.Strings(rules)
		PrintKeyValue("Rejected", strings.Join(rules, ", "), 14)
	}
	PrintSeparator()

	switch {
	case r.Error != "":
		PrintError(r.Error)
	case r.QuotaExhausted:
		PrintWarning("Provider quota exhausted; the next cycle resumes where this one stopped")
	default:
		PrintSuccess("Cycle completed")
	}
}
