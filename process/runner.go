package process

import (
	"context"
	"time"

	"github.com/kbukum/scribe/provider"
)

// Executor runs commands. *Runner is the production implementation; tests
// substitute fakes that materialize output files.
type Executor interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, cmd Command) (*Result, error)

// Run calls f.
func (f ExecutorFunc) Run(ctx context.Context, cmd Command) (*Result, error) { return f(ctx, cmd) }

// Config configures a Runner.
type Config struct {
	// Timeout bounds each invocation. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// GracePeriod is the default SIGTERM to SIGKILL delay.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
	// Resilience wraps every invocation; circuit breaker state persists across calls.
	Resilience provider.ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// Runner executes subprocesses with a per-call timeout and optional resilience.
type Runner struct {
	cfg   Config
	state *provider.ResilienceState
}

var _ Executor = (*Runner)(nil)

// NewRunner creates a Runner. name identifies the tool in resilience errors.
func NewRunner(name string, cfg Config) *Runner {
	return &Runner{cfg: cfg, state: provider.BuildResilience(name, cfg.Resilience)}
}

// Run executes cmd, applying the runner's timeout and resilience chain.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.GracePeriod == 0 {
		cmd.GracePeriod = r.cfg.GracePeriod
	}
	return provider.ExecuteWithResilience(ctx, r.state, func() (*Result, error) {
		callCtx := ctx
		if r.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
			defer cancel()
		}
		return Run(callCtx, cmd)
	})
}
