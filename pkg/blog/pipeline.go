package blog

import (
	"context"
	"fmt"

	"campusblog/pkg/logger"
)

// Stage is one named step of the creation pipeline.
type Stage struct {
	Name string
	Run  func(context.Context, *Blog) error
	// BestEffort stages log their failure and don't fail the pipeline.
	BestEffort bool
}

// Pipeline runs its stages in order and stops at the first failing one.
type Pipeline struct {
	stages []Stage
}

func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

func (p *Pipeline) Run(ctx context.Context, b *Blog) error {
	for _, s := range p.stages {
		err := s.Run(ctx, b)
		if err == nil {
			continue
		}
		if s.BestEffort {
			logger.Log(ctx).Errorw("blog/pipeline: best effort stage failed",
				"stage", s.Name, "blog", b.Id.Hex(), "error", err)
			continue
		}
		return fmt.Errorf("blog/pipeline: %s: %w", s.Name, err)
	}
	return nil
}

func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}
