package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/adalundhe/voiceguard/core/completion"
	"github.com/adalundhe/voiceguard/core/config"
	"github.com/adalundhe/voiceguard/core/llm"
	"github.com/adalundhe/voiceguard/core/retrieval"
	"github.com/adalundhe/voiceguard/core/session"
	"github.com/adalundhe/voiceguard/core/workflow"
)

// runtime is everything a live training session needs.
type runtime struct {
	runner *workflow.Runner
	store  *session.Store

	closers []func() error
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// openRuntime wires providers, personas, retrieval, the runner and the
// session store from cfg.
func openRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{}

	reg, err := completion.BuildRegistry(ctx, cfg, llm.ResolveAPIKey)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, reg.Close)

	personas, err := completion.NewPersonas(cfg, reg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	searcher, closeSearch, err := retrieval.Open(ctx, cfg.Retrieval, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("opening case retrieval: %w", err)
	}
	rt.closers = append(rt.closers, closeSearch)

	rt.runner, err = workflow.Build(cfg, personas, searcher, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.store, err = openStore(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, rt.store.Close)
	return rt, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*session.Store, error) {
	return session.OpenStore(ctx, session.StoreConfig{
		DBPath:       cfg.Session.DBPath,
		CacheMaxCost: cfg.Session.CacheMaxCost,
		Logger:       logger,
	})
}
