package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"regula-hq/regula/pkg/catalog"
)

// maxRuleFileSize bounds a single rule document.
const maxRuleFileSize = 4 << 20

// Refresher is implemented by stores that cache their backing source and can
// be asked to re-read it. The service refreshes a store before each rebuild.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// FileStore reads rule documents from a YAML file or a directory of
// *.yaml/*.yml files. Documents are parsed once and served from memory until
// Refresh re-reads them, so the four fetches of one rebuild observe a single
// consistent view of the files.
type FileStore struct {
	path string

	mu     sync.RWMutex
	loaded bool
	doc    ruleDocument
	evals  map[string]catalog.ConditionFunc
}

// ruleDocument is the YAML shape of one rule file. Directories merge the
// sections of every file.
type ruleDocument struct {
	Elements []catalog.DataElementRecord `yaml:"elements"`
	Rules    []fileRule                  `yaml:"rules"`
	Edges    []catalog.EdgeRecord        `yaml:"edges"`
}

// fileRule is a rule record plus the declarative condition the file format
// supports: the when_present elements must all be asserted true in a
// scenario for the rule's direct condition to hold.
type fileRule struct {
	catalog.RuleRecord `yaml:",inline"`

	WhenPresent []string `yaml:"when_present"`
}

// NewFileStore returns a file store over the given file or directory path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Refresh re-reads the backing files. On error the previously loaded state is
// kept, mirroring the all-or-nothing policy of the rebuild itself.
func (f *FileStore) Refresh(ctx context.Context) error {
	doc, err := loadPath(f.path)
	if err != nil {
		return err
	}

	evals := make(map[string]catalog.ConditionFunc)
	for _, rule := range doc.Rules {
		if len(rule.WhenPresent) == 0 {
			continue
		}
		required := append([]string(nil), rule.WhenPresent...)
		evals[rule.ID] = func(s catalog.Scenario) bool {
			for _, el := range required {
				if !s.Asserted(el) {
					return false
				}
			}
			return true
		}
	}

	f.mu.Lock()
	f.doc = doc
	f.evals = evals
	f.loaded = true
	f.mu.Unlock()
	return nil
}

// ensureLoaded refreshes lazily on first use.
func (f *FileStore) ensureLoaded(ctx context.Context) error {
	f.mu.RLock()
	loaded := f.loaded
	f.mu.RUnlock()
	if loaded {
		return nil
	}
	return f.Refresh(ctx)
}

// FetchRules implements Store.
func (f *FileStore) FetchRules(ctx context.Context) ([]catalog.RuleRecord, error) {
	if err := f.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	rules := make([]catalog.RuleRecord, len(f.doc.Rules))
	for i, r := range f.doc.Rules {
		rules[i] = r.RuleRecord
	}
	return rules, nil
}

// FetchElements implements Store.
func (f *FileStore) FetchElements(ctx context.Context) ([]catalog.DataElementRecord, error) {
	if err := f.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]catalog.DataElementRecord(nil), f.doc.Elements...), nil
}

// FetchEdges implements Store.
func (f *FileStore) FetchEdges(ctx context.Context) ([]catalog.EdgeRecord, error) {
	if err := f.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]catalog.EdgeRecord(nil), f.doc.Edges...), nil
}

// FetchEvaluators implements Store.
func (f *FileStore) FetchEvaluators(ctx context.Context) (map[string]catalog.ConditionFunc, error) {
	if err := f.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]catalog.ConditionFunc, len(f.evals))
	for id, fn := range f.evals {
		out[id] = fn
	}
	return out, nil
}

// Path returns the watched file or directory path.
func (f *FileStore) Path() string {
	return f.path
}

// loadPath reads a single file or merges every YAML file under a directory,
// in lexical order so the merged document is deterministic.
func loadPath(path string) (ruleDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ruleDocument{}, &LoadError{Source: path, Message: "failed to access path", Cause: err}
	}

	if !info.IsDir() {
		return loadFile(path)
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return ruleDocument{}, &LoadError{Source: path, Message: "failed to scan directory", Cause: err}
	}
	sort.Strings(files)

	var merged ruleDocument
	for _, file := range files {
		doc, err := loadFile(file)
		if err != nil {
			return ruleDocument{}, err
		}
		merged.Elements = append(merged.Elements, doc.Elements...)
		merged.Rules = append(merged.Rules, doc.Rules...)
		merged.Edges = append(merged.Edges, doc.Edges...)
	}
	return merged, nil
}

// loadFile reads and parses one YAML rule document.
func loadFile(path string) (ruleDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ruleDocument{}, &LoadError{Source: path, Message: "file not found", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return ruleDocument{}, &LoadError{Source: path, Message: "not a regular file"}
	}
	if info.Size() > maxRuleFileSize {
		return ruleDocument{}, &LoadError{Source: path, Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), maxRuleFileSize)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ruleDocument{}, &LoadError{Source: path, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return ruleDocument{}, &LoadError{Source: path, Message: "file contains invalid UTF-8 encoding"}
	}

	var doc ruleDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ruleDocument{}, &LoadError{Source: path, Message: "YAML parsing failed", Cause: err}
	}
	return doc, nil
}
