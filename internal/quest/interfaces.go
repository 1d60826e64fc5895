package quest

import "context"

// Repository persists quests. Implementations live in internal/db.
type Repository interface {
	Save(ctx context.Context, q *Quest) error
	Get(ctx context.Context, id string) (*Quest, error)
	ListByStatus(ctx context.Context, status Status) ([]*Quest, error)
}

// GraphSource produces an objective graph for a template
type GraphSource interface {
	FetchGraph(ctx context.Context, template Template) (*MissionGraph, error)
}

// GraphSourceFunc adapts a function to GraphSource
type GraphSourceFunc func(ctx context.Context, template Template) (*MissionGraph, error)

func (f GraphSourceFunc) FetchGraph(ctx context.Context, template Template) (*MissionGraph, error) {
	return f(ctx, template)
}
