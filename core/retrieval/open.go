package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adalundhe/voiceguard/core/config"
)

// Open builds the Searcher selected by cfg. The returned function
// releases the index and its watcher.
func Open(ctx context.Context, cfg config.RetrievalConfig, logger *slog.Logger) (Searcher, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", config.RetrievalBackendStub:
		return Stub{}, noop, nil

	case config.RetrievalBackendBleve:
		corpus, err := NewCorpus(cfg.CorpusDir, cfg.Pattern)
		if err != nil {
			return nil, nil, err
		}
		ix, err := NewIndex(IndexConfig{Corpus: corpus, CacheSize: cfg.CacheSize, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		if !cfg.Watch {
			return ix, ix.Close, nil
		}

		w, err := ix.Watch(ctx, DefaultReloadDebounce)
		if err != nil {
			ix.Close()
			return nil, nil, fmt.Errorf("watching case corpus: %w", err)
		}
		return ix, func() error {
			return errors.Join(w.Close(), ix.Close())
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown retrieval backend %q", cfg.Backend)
	}
}
