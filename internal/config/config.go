package config

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed definitions
var embedded embed.FS

type Intent struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// Step is the fixed text for one wizard step. Template and Empty are
// text/template sources; Empty is used by steps that list items (viewSlots)
// when there is nothing to list.
type Step struct {
	Step     string `yaml:"step"`
	Template string `yaml:"template"`
	Empty    string `yaml:"empty"`

	tpl   *template.Template
	empty *template.Template
}

// Render executes the step template (or Empty when useEmpty is set and an
// empty template exists) against data.
func (s Step) Render(data any, useEmpty bool) (string, error) {
	t := s.tpl
	if useEmpty && s.empty != nil {
		t = s.empty
	}
	if t == nil {
		return s.Template, nil
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render step %s: %w", s.Step, err)
	}
	return b.String(), nil
}

type Fallbacks struct {
	UnknownStep string `yaml:"unknown_step"`
	SmallTalk   string `yaml:"small_talk"`
}

type Config struct {
	Intents   map[string]Intent
	Steps     map[string]Step
	Fallbacks Fallbacks
}

// Load reads definitions from base, or the embedded defaults when base is
// empty.
func Load(base string) (*Config, error) {
	if base == "" {
		sub, err := fs.Sub(embedded, "definitions")
		if err != nil {
			return nil, err
		}
		return LoadFS(sub)
	}
	return LoadFromDir(base)
}

func LoadFromDir(base string) (*Config, error) {
	if _, err := os.Stat(base); err != nil {
		return nil, fmt.Errorf("leyendo definitions dir: %w", err)
	}
	return LoadFS(os.DirFS(base))
}

// LoadFS expects intents/*.yaml and steps/*.yaml under fsys.
func LoadFS(fsys fs.FS) (*Config, error) {
	cfg := &Config{
		Intents: make(map[string]Intent),
		Steps:   make(map[string]Step),
	}

	if err := loadIntentsDir(fsys, "intents", cfg); err != nil {
		return nil, err
	}
	if err := loadStepsDir(fsys, "steps", cfg); err != nil {
		return nil, err
	}

	if len(cfg.Intents) == 0 {
		return nil, fmt.Errorf("definitions: no intents defined")
	}
	if cfg.Fallbacks.UnknownStep == "" || cfg.Fallbacks.SmallTalk == "" {
		return nil, fmt.Errorf("definitions: fallbacks.unknown_step and fallbacks.small_talk are required")
	}
	return cfg, nil
}

func yamlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("leyendo %s dir: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := path.Ext(e.Name()); ext != ".yaml" && ext != ".yml" {
			continue
		}
		files = append(files, path.Join(dir, e.Name()))
	}
	return files, nil
}

func loadIntentsDir(fsys fs.FS, dir string, cfg *Config) error {
	files, err := yamlFiles(fsys, dir)
	if err != nil {
		return err
	}
	for _, p := range files {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		var raw struct {
			Intents []Intent `yaml:"intents"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parseando %s: %w", p, err)
		}
		for _, it := range raw.Intents {
			if it.Type == "" {
				return fmt.Errorf("parseando %s: intent sin type", p)
			}
			cfg.Intents[it.Type] = it
		}
	}
	return nil
}

func loadStepsDir(fsys fs.FS, dir string, cfg *Config) error {
	files, err := yamlFiles(fsys, dir)
	if err != nil {
		return err
	}
	for _, p := range files {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		var raw struct {
			Steps     []Step    `yaml:"steps"`
			Fallbacks Fallbacks `yaml:"fallbacks"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parseando %s: %w", p, err)
		}
		for _, s := range raw.Steps {
			if s.Step == "" || s.Template == "" {
				return fmt.Errorf("parseando %s: step y template son obligatorios", p)
			}
			if s.tpl, err = template.New(s.Step).Option("missingkey=zero").Parse(s.Template); err != nil {
				return fmt.Errorf("parseando %s: step %s: %w", p, s.Step, err)
			}
			if s.Empty != "" {
				if s.empty, err = template.New(s.Step + ".empty").Parse(s.Empty); err != nil {
					return fmt.Errorf("parseando %s: step %s: %w", p, s.Step, err)
				}
			}
			cfg.Steps[s.Step] = s
		}
		if raw.Fallbacks.UnknownStep != "" {
			cfg.Fallbacks.UnknownStep = raw.Fallbacks.UnknownStep
		}
		if raw.Fallbacks.SmallTalk != "" {
			cfg.Fallbacks.SmallTalk = raw.Fallbacks.SmallTalk
		}
	}
	return nil
}
