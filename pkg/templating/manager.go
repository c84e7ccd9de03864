package templating

import (
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CTAG07/Dissociated/pkg/ngram"
)

// ModelSource resolves corpus names to their currently published models.
type ModelSource interface {
	Model(name string) (*ngram.Model, bool)
	Names() []string
}

// TemplateManager loads, parses and executes the view templates.
// All methods are safe for concurrent use.
type TemplateManager struct {
	logger         *slog.Logger
	config         *TemplateConfig
	models         ModelSource
	templates      *template.Template
	cleanTemplates *template.Template
	templateNames  []string
	funcMap        template.FuncMap
	templateDir    string
	mu             sync.RWMutex
}

// NewTemplateManager creates a TemplateManager reading templates from
// templateDir and performs an initial Refresh. models may be nil, in which
// case every corpus lookup from a template fails softly.
func NewTemplateManager(logger *slog.Logger, models ModelSource, config *TemplateConfig, templateDir string) (*TemplateManager, error) {
	if config == nil {
		cfg := DefaultConfig()
		config = &cfg
	}
	tm := &TemplateManager{
		logger:      logger,
		models:      models,
		templateDir: templateDir,
		config:      config,
	}
	tm.funcMap = tm.makeFuncMap()

	if err := tm.Refresh(); err != nil {
		return nil, err
	}

	logger.Info("Template manager initialized", "template_dir", templateDir)
	return tm, nil
}

func (tm *TemplateManager) makeFuncMap() template.FuncMap {
	return template.FuncMap{
		// Models (from funcs_model.go)
		"passage":     tm.passage,
		"passageFrom": tm.passageFrom,
		"corpora":     tm.corpora,
		"modelKeys":   tm.modelKeys,
		"modelTable":  tm.modelTable,
		"modelStats":  tm.modelStats,
		"successors":  tm.successors,
		"detokenize":  detokenize,
		"display":     ngram.DisplayToken,
		"percent":     percent,

		// Logic & Control (from funcs_logic.go)
		"repeat":       repeat,
		"list":         list,
		"randomChoice": randomChoice,

		// Simple (from funcs_simple.go)
		"add":   add,
		"sub":   sub,
		"div":   div,
		"mult":  mult,
		"max":   maxInt,
		"min":   minInt,
		"mod":   mod,
		"inc":   inc,
		"dec":   dec,
		"isSet": isSet,
	}
}

// SetConfig applies a new configuration. It takes effect on the next
// execution.
func (tm *TemplateManager) SetConfig(config *TemplateConfig) {
	if config == nil {
		return
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.config = config
}

// Refresh reloads all templates and partials from the template directory.
// On a parse error the previously loaded set stays in use.
func (tm *TemplateManager) Refresh() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	filePattern := filepath.Join(tm.templateDir, "*.tmpl.html")
	tm.logger.Debug("Loading template files...", "pattern", filePattern)

	parsedFiles, err := template.New("").Funcs(tm.funcMap).ParseGlob(filePattern)
	names := []string{}
	if err != nil {
		if !strings.Contains(err.Error(), "pattern matches no files") {
			tm.logger.Error("failed to parse template files", "error", err)
			return err
		}
		parsedFiles = template.New("").Funcs(tm.funcMap)
	} else {
		for _, t := range parsedFiles.Templates() {
			// The unnamed root template is never executed directly.
			if strings.HasSuffix(t.Name(), ".tmpl.html") {
				names = append(names, t.Name())
			}
		}
	}

	partialPattern := filepath.Join(tm.templateDir, "*.part.html")
	withPartials, err := parsedFiles.ParseGlob(partialPattern)
	if err != nil {
		if !strings.Contains(err.Error(), "pattern matches no files") {
			tm.logger.Error("failed to parse partial files", "error", err)
			return err
		}
		withPartials = parsedFiles
	}

	if len(names) == 0 {
		tm.logger.Warn("No template files found matching pattern", "pattern", filePattern)
	}

	clean, err := withPartials.Clone()
	if err != nil {
		tm.logger.Error("failed to create a clean clone of templates", "error", err)
		return err
	}

	tm.templates = withPartials
	tm.cleanTemplates = clean
	tm.templateNames = names
	tm.logger.Info("Loaded template and partial files", "count", len(withPartials.Templates())-1)
	return nil
}

// Execute renders the named template to w.
func (tm *TemplateManager) Execute(w io.Writer, name string, data any) error {
	if name == "" {
		return nil
	}
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.templates.ExecuteTemplate(w, name, data)
}

// HasTemplate reports whether a template or partial called name is loaded.
func (tm *TemplateManager) HasTemplate(name string) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.templates.Lookup(name) != nil
}

// GetConfig returns a copy of the current configuration.
func (tm *TemplateManager) GetConfig() TemplateConfig {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return *tm.config
}

// GetTemplateNames returns the names of all loaded templates and partials.
func (tm *TemplateManager) GetTemplateNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	var names []string
	for _, t := range tm.templates.Templates() {
		if strings.HasSuffix(t.Name(), ".html") {
			names = append(names, t.Name())
		}
	}
	return names
}

// GetTemplateDir returns the directory templates are loaded from.
func (tm *TemplateManager) GetTemplateDir() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.templateDir
}

// ExecuteTemplateString parses and executes a raw template string with the
// manager's function map and loaded partials. It is used to preview
// templates without saving them.
func (tm *TemplateManager) ExecuteTemplateString(w io.Writer, content string, data any) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	// Executed sets cannot be re-parsed, so work on a clone of the clean set.
	tempSet, err := tm.cleanTemplates.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone clean templates for string execution: %w", err)
	}

	t, err := tempSet.Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse string template: %w", err)
	}
	return t.Execute(w, data)
}
