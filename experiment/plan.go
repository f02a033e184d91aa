package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/AntonStoeckl/contention-lab/contention"
)

const defaultRepeat = 1

var (
	ErrEmptyPlan         = errors.New("plan must contain at least one run")
	ErrInvalidRepeat     = errors.New("repeat must not be negative")
	ErrInvalidRunSpec    = errors.New("invalid run")
	ErrLoadingPlanFailed = errors.New("loading plan failed")
)

// RunSpec describes one run of a plan.
type RunSpec struct {
	Strategy     contention.StrategyKind `yaml:"strategy" json:"strategy"`
	Capacity     int64                   `yaml:"capacity" json:"capacity"`
	Participants int                     `yaml:"participants" json:"participants"`
}

// Plan is a named series of runs, executed Repeat times.
type Plan struct {
	Name   string    `yaml:"name" json:"name"`
	Repeat int       `yaml:"repeat" json:"repeat"`
	Runs   []RunSpec `yaml:"runs" json:"runs"`
}

// ParsePlan decodes and validates a YAML plan. Strategy names are normalized with
// contention.ParseStrategyKind and a missing repeat means one iteration.
func ParsePlan(data []byte) (Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return Plan{}, fmt.Errorf("failed to decode plan: %w", err)
	}

	if err := plan.normalize(); err != nil {
		return Plan{}, err
	}

	return plan, nil
}

// LoadPlan downloads the plan at URL through fs and parses it.
func LoadPlan(ctx context.Context, fs afs.Service, URL string) (Plan, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return Plan{}, errors.Join(ErrLoadingPlanFailed, fmt.Errorf("failed to read plan %s: %w", URL, err))
	}

	return ParsePlan(data)
}

func (p *Plan) normalize() error {
	if len(p.Runs) == 0 {
		return ErrEmptyPlan
	}

	switch {
	case p.Repeat < 0:
		return ErrInvalidRepeat
	case p.Repeat == 0:
		p.Repeat = defaultRepeat
	}

	for i := range p.Runs {
		run := &p.Runs[i]

		kind, err := contention.ParseStrategyKind(string(run.Strategy))
		if err != nil {
			return fmt.Errorf("%w %d: %w", ErrInvalidRunSpec, i+1, err)
		}

		run.Strategy = kind

		if run.Capacity < 0 {
			return fmt.Errorf("%w %d: %w", ErrInvalidRunSpec, i+1, contention.ErrInvalidCapacity)
		}

		if run.Participants <= 0 {
			return fmt.Errorf("%w %d: %w", ErrInvalidRunSpec, i+1, contention.ErrInvalidParticipantCount)
		}
	}

	return nil
}

// TotalRuns returns how many runs executing the plan performs.
func (p Plan) TotalRuns() int {
	return p.Repeat * len(p.Runs)
}
