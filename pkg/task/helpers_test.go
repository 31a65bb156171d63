package task_test

import (
	"context"
	"reflect"

	"github.com/dyluth/stardag/pkg/task"
)

type Range struct {
	task.Meta
	Limit int `json:"limit"`
}

func (r *Range) Run(context.Context) error { return nil }

type Sum struct {
	task.Meta
	Source *Range `json:"source"`
	Note   string `json:"note" stardag:"exclude"`
}

func (s *Sum) Requires() task.Deps { return task.One(s.Source) }

func (s *Sum) Run(context.Context) error { return nil }

type Gather struct {
	task.Meta
	Inputs task.Set[*Range]     `json:"inputs"`
	Named  map[string]task.Task `json:"named"`
	List   []*Range             `json:"list"`
	Labels []string             `json:"labels"`
}

func (g *Gather) Run(context.Context) error { return nil }

type Tagged struct {
	task.Meta `stardag:"namespace=ml,family=train,version=2"`
	LR        float64 `json:"lr"`
}

func (t *Tagged) Run(context.Context) error { return nil }

type TaggedChild struct {
	Tagged
	Epochs int `json:"epochs"`
}

type Options struct {
	Seed  int    `json:"seed"`
	Cache string `json:"-"`
}

type WithOptions struct {
	task.Meta
	Options
	Name string
}

func (w *WithOptions) Run(context.Context) error { return nil }

// Twin has the same parameters as Range under another family.
type Twin struct {
	task.Meta
	Limit int `json:"limit"`
}

func (t *Twin) Run(context.Context) error { return nil }

type Stage struct {
	Dep   task.Task `json:"dep"`
	Label string    `json:"label,omitempty"`
}

type Pipeline struct {
	task.Meta
	Stage    Stage  `json:"stage"`
	Fallback *Stage `json:"fallback"`
}

func (p *Pipeline) Run(context.Context) error { return nil }

type Loose struct {
	task.Meta
	Value any `json:"value"`
}

func (l *Loose) Run(context.Context) error { return nil }

type Stray struct {
	task.Meta
}

func (s *Stray) Run(context.Context) error { return nil }

var testPkg = reflect.TypeFor[Range]().PkgPath()

func newTestRegistry() *task.Registry {
	return task.MustRegistry(
		task.WithPackageNamespace(testPkg, "examples"),
		task.Register[*Range](),
		task.Register[*Sum](),
		task.Register[*Gather](),
		task.Register[*Tagged](),
		task.Register[*TaggedChild](),
		task.Register[*WithOptions](),
		task.Register[*Twin](),
		task.Register[*Pipeline](),
		task.Register[*Loose](),
	)
}
