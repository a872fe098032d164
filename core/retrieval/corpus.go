package retrieval

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

const DefaultCorpusPattern = "**/*.{yaml,yml}"

var ErrCorpusNotDirectory = errors.New("case corpus path is not a directory")

// corpusFile is the layout of one corpus file. A bare list of cases is
// accepted as well.
type corpusFile struct {
	Cases []Case `yaml:"cases"`
}

// Corpus selects case files under Dir by a glob on their slash-separated
// relative path.
type Corpus struct {
	Dir     string
	pattern glob.Glob
}

func NewCorpus(dir, pattern string) (*Corpus, error) {
	if pattern == "" {
		pattern = DefaultCorpusPattern
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("corpus pattern %q: %w", pattern, err)
	}
	return &Corpus{Dir: dir, pattern: g}, nil
}

// Matches reports whether path (absolute or relative to Dir) is a corpus
// file.
func (c *Corpus) Matches(path string) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(c.Dir, path)
		if err != nil {
			return false
		}
		rel = r
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") {
		return false
	}
	// "**/" needs at least one directory; files at the root match too.
	return c.pattern.Match(rel) || c.pattern.Match("./"+rel)
}

// Load reads every matching file. Cases without a headline are skipped.
func (c *Corpus) Load() ([]Case, error) {
	info, err := os.Stat(c.Dir)
	if err != nil {
		return nil, fmt.Errorf("case corpus: %w", err)
	}
	if !info.IsDir() {
		return nil, ErrCorpusNotDirectory
	}

	var cases []Case
	err = filepath.WalkDir(c.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !c.Matches(path) {
			return nil
		}
		fileCases, err := readCorpusFile(path)
		if err != nil {
			return err
		}
		cases = append(cases, fileCases...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cases, nil
}

func readCorpusFile(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var file corpusFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		var list []Case
		if lerr := yaml.Unmarshal(data, &list); lerr != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		file.Cases = list
	}

	out := file.Cases[:0]
	for _, c := range file.Cases {
		c.Headline = strings.TrimSpace(c.Headline)
		if c.Headline == "" {
			continue
		}
		c.Snippet = strings.TrimSpace(c.Snippet)
		out = append(out, c)
	}
	return out, nil
}
