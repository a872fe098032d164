package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 256

// caseDocument is the indexed form of a Case.
type caseDocument struct {
	Headline string `json:"headline"`
	Snippet  string `json:"snippet"`
	Tags     string `json:"tags"`
}

type IndexConfig struct {
	Corpus    *Corpus
	CacheSize int
	Logger    *slog.Logger
}

// Index is a full-text Searcher over a case corpus, held in memory.
// Korean text is tokenised into bigrams by the CJK analyzer. Reload swaps
// in a fresh index built from the corpus.
type Index struct {
	corpus *Corpus
	logger *slog.Logger

	mu    sync.RWMutex
	index bleve.Index
	cases map[string]Case

	cache      *lru.Cache[string, []Case]
	generation atomic.Uint64
	closed     bool
}

// NewIndex loads the corpus and builds the index.
func NewIndex(cfg IndexConfig) (*Index, error) {
	if cfg.Corpus == nil {
		return nil, fmt.Errorf("case index: corpus is required")
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cache, err := lru.New[string, []Case](cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	ix := &Index{
		corpus: cfg.Corpus,
		logger: cfg.Logger.With("component", "case_index"),
		cache:  cache,
	}
	if err := ix.Reload(); err != nil {
		return nil, err
	}
	return ix, nil
}

// Reload rebuilds the index from the corpus. On failure the previous
// index stays in service.
func (ix *Index) Reload() error {
	cases, err := ix.corpus.Load()
	if err != nil {
		return err
	}
	index, byID, err := buildIndex(cases)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	if ix.closed {
		ix.mu.Unlock()
		return index.Close()
	}
	old := ix.index
	ix.index = index
	ix.cases = byID
	ix.generation.Add(1)
	ix.cache.Purge()
	ix.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			ix.logger.Warn("closing replaced case index", "error", err)
		}
	}
	ix.logger.Info("case index loaded", "cases", len(cases), "dir", ix.corpus.Dir)
	return nil
}

func buildIndex(cases []Case) (bleve.Index, map[string]Case, error) {
	mapping := bleve.NewIndexMapping()
	mapping.DefaultAnalyzer = cjk.AnalyzerName

	index, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, nil, fmt.Errorf("creating case index: %w", err)
	}

	byID := make(map[string]Case, len(cases))
	batch := index.NewBatch()
	for i, c := range cases {
		id := strconv.Itoa(i)
		byID[id] = c
		doc := caseDocument{
			Headline: c.Headline,
			Snippet:  c.Snippet,
			Tags:     strings.Join(c.Tags, " "),
		}
		if err := batch.Index(id, doc); err != nil {
			index.Close()
			return nil, nil, fmt.Errorf("indexing case %q: %w", c.Headline, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, nil, fmt.Errorf("committing case index: %w", err)
	}
	return index, byID, nil
}

// Search runs a match query over headline, snippet and tags.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Case, error) {
	query = strings.TrimSpace(query)
	if topK <= 0 {
		topK = DefaultTopK
	}
	if query == "" {
		return nil, nil
	}

	key := strconv.Itoa(topK) + "\x00" + query
	if cached, ok := ix.cache.Get(key); ok {
		return append([]Case(nil), cached...), nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil, fmt.Errorf("case index is closed")
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), topK, 0, false)
	res, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("searching cases: %w", err)
	}

	out := make([]Case, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if c, ok := ix.cases[hit.ID]; ok {
			out = append(out, c)
		}
	}
	ix.cache.Add(key, out)
	return append([]Case(nil), out...), nil
}

// Len is the number of indexed cases.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.cases)
}

// Generation counts successful loads.
func (ix *Index) Generation() uint64 {
	return ix.generation.Load()
}

func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return nil
	}
	ix.closed = true
	ix.cache.Purge()
	return ix.index.Close()
}
