package agent

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/internal/s1_universe"
	"github.com/wonny/sectorwatch/pkg/config"
	"github.com/wonny/sectorwatch/pkg/logger"
)

// Config holds watchlist sizing and pacing
type Config struct {
	TargetSize   int           // watchlist size the agent tops up to
	InitialBatch int           // max accepts on the first cycle
	TopUpSize    int           // max accepts on later cycles
	RefreshPace  time.Duration // min gap between refreshed symbols; 0 disables
}

// ConfigFrom extracts agent settings from application config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		TargetSize:   cfg.Agent.TargetSize,
		InitialBatch: cfg.Agent.InitialBatch,
		TopUpSize:    cfg.Agent.TopUpSize,
		RefreshPace:  cfg.Agent.RefreshPace,
	}
}

// Agent maintains the watchlist and the stock records.
// It is the only writer of both; one cycle runs at a time.
// ⭐ SSOT: 워치리스트 관리 사이클은 여기서만
type Agent struct {
	provider  contracts.Provider
	store     contracts.Store
	policy    *s1_universe.Policy
	logger    *logger.Logger
	cfg       Config
	pacer     *rate.Limiter
	publisher contracts.Publisher

	now     func() time.Time
	shuffle func([]contracts.Candidate)
	newID   func() string

	mu        sync.Mutex // serializes cycles and verify passes
	cyclesRun int

	reportMu   sync.RWMutex
	lastReport *CycleReport
}

// Option customizes an Agent
type Option func(*Agent)

// WithPublisher pushes update events to live subscribers
func WithPublisher(p contracts.Publisher) Option {
	return func(a *Agent) { a.publisher = p }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// WithShuffle overrides candidate shuffling; nil keeps listing order
func WithShuffle(shuffle func([]contracts.Candidate)) Option {
	return func(a *Agent) { a.shuffle = shuffle }
}

// WithIDGenerator overrides cycle id generation
func WithIDGenerator(newID func() string) Option {
	return func(a *Agent) { a.newID = newID }
}

// New creates an agent
func New(provider contracts.Provider, store contracts.Store, policy *s1_universe.Policy, cfg Config, log *logger.Logger, opts ...Option) *Agent {
	a := &Agent{
		provider: provider,
		store:    store,
		policy:   policy,
		logger:   log.WithModule("agent"),
		cfg:      cfg,
		now:      time.Now,
		shuffle:  shuffleCandidates,
		newID:    uuid.NewString,
	}

	if cfg.RefreshPace > 0 {
		a.pacer = rate.NewLimiter(rate.Every(cfg.RefreshPace), 1)
	}

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LastReport returns the most recent cycle report, nil before the first cycle.
// It does not wait for a running cycle.
func (a *Agent) LastReport() *CycleReport {
	a.reportMu.RLock()
	defer a.reportMu.RUnlock()
	return a.lastReport
}

func (a *Agent) setLastReport(r *CycleReport) {
	a.reportMu.Lock()
	a.lastReport = r
	a.reportMu.Unlock()
}

func (a *Agent) publish(event contracts.UpdateEvent) {
	if a.publisher == nil {
		return
	}
	if event.At.IsZero() {
		event.At = a.now()
	}
	a.publisher.Publish(event)
}

// 같은 종목만 반복 검사하지 않도록 섞음
func shuffleCandidates(c []contracts.Candidate) {
	rand.Shuffle(len(c), func(i, j int) { c[i], c[j] = c[j], c[i] })
}
