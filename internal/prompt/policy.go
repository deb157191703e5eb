package prompt

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/sentryai/sentry/internal/logging"
)

//go:embed policy.yaml
var defaultPolicy []byte

// Scope is one legal area the assistant covers, ordered by priority.
type Scope struct {
	Area       string   `yaml:"area" json:"area"`
	Prioridade int      `yaml:"prioridade" json:"prioridade"`
	Temas      []string `yaml:"temas" json:"temas"`
}

type Example struct {
	Pergunta string `yaml:"pergunta" json:"pergunta"`
	Resposta string `yaml:"resposta" json:"resposta"`
}

// Policy is the static behaviour document sent as the system instruction.
type Policy struct {
	Assistente    string    `yaml:"assistente" json:"assistente"`
	Papel         string    `yaml:"papel" json:"papel"`
	Comportamento []string  `yaml:"comportamento" json:"comportamento"`
	Restricoes    []string  `yaml:"restricoes" json:"restricoes"`
	Escopo        []Scope   `yaml:"escopo" json:"escopo"`
	Exemplos      []Example `yaml:"exemplos" json:"exemplos"`
}

// ParsePolicy decodes a YAML policy document.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if p.Papel == "" {
		return nil, errors.New("parse policy: papel is required")
	}
	return &p, nil
}

// DefaultPolicy returns the policy compiled into the binary.
func DefaultPolicy() *Policy {
	p, err := ParsePolicy(defaultPolicy)
	if err != nil {
		panic(err)
	}
	return p
}

// Render serializes the policy with the user's display name injected.
func (p *Policy) Render(userName string) string {
	if userName == "" {
		userName = "Usuário"
	}
	doc := struct {
		*Policy
		Usuario struct {
			Nome string `json:"nome"`
		} `json:"dadosDoUsuario"`
	}{Policy: p}
	doc.Usuario.Nome = userName

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return p.Papel
	}
	return string(out)
}

// PolicyStore holds the active policy and swaps it atomically on reload.
type PolicyStore struct {
	current atomic.Pointer[Policy]
	path    string
}

// NewPolicyStore loads the policy at path, or the embedded default when path
// is empty.
func NewPolicyStore(path string) (*PolicyStore, error) {
	s := &PolicyStore{path: path}
	if path == "" {
		s.current.Store(DefaultPolicy())
		return s, nil
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PolicyStore) Current() *Policy {
	return s.current.Load()
}

func (s *PolicyStore) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read policy %s: %w", s.path, err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return err
	}
	s.current.Store(p)
	return nil
}

// Watch reloads the policy whenever its file changes until ctx is done.
// A file that fails to parse leaves the previous policy in place.
func (s *PolicyStore) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("policy watcher: %w", err)
	}
	// Watch the directory so editors that replace the file are seen.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.path, err)
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(s.path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				if err := s.reload(); err != nil {
					logging.Warnf("[prompt] keeping previous policy: %v", err)
					continue
				}
				logging.Infof("[prompt] policy reloaded from %s", s.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warnf("[prompt] watcher error: %v", err)
			}
		}
	}()
	return nil
}
