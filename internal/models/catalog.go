package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kbukum/whisper-sidecar/logger"
)

// Entry describes one model the sidecar can load.
type Entry struct {
	Name        string `json:"name"`
	File        string `json:"file,omitempty"`
	Description string `json:"description"`
}

// Offline reports whether the model is present locally.
func (e Entry) Offline() bool { return e.File != "" }

// defaultEntries are listed when no local models are found. They are
// downloaded on first use.
var defaultEntries = []Entry{
	{Name: "tiny", Description: "Fastest, basic accuracy (downloads ~39MB)"},
	{Name: "base", Description: "Good balance (downloads ~74MB)"},
	{Name: "small", Description: "Better accuracy (downloads ~244MB)"},
}

var modelExtensions = []string{".bin", ".pt"}

type manifest struct {
	Models []Entry `json:"models"`
}

// Catalog resolves model sizes against an optional local models directory.
type Catalog struct {
	dir string
	log *logger.Logger
}

// NewCatalog creates a Catalog over dir. An empty dir means every model is
// downloaded by the worker.
func NewCatalog(dir string, log *logger.Logger) *Catalog {
	if log == nil {
		log = logger.Nop()
	}
	return &Catalog{dir: dir, log: log}
}

// Resolve returns the local path for size if one exists, otherwise size
// itself so the worker downloads it.
func (c *Catalog) Resolve(size string) string {
	if c.dir == "" {
		return size
	}
	candidates := []string{filepath.Join(c.dir, size)}
	for _, ext := range modelExtensions {
		candidates = append(candidates, filepath.Join(c.dir, size+ext))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			c.log.Info("Found offline model: "+path, logger.Fields(logger.FieldModel, size))
			return path
		}
	}
	c.log.Info("Offline model not found for "+size+", will download", logger.Fields(logger.FieldModel, size))
	return size
}

// List returns the known models: the manifest if present, else the model
// files in the directory, else the default downloadable set.
func (c *Catalog) List() []Entry {
	if c.dir != "" {
		if entries := c.readManifest(); len(entries) > 0 {
			return entries
		}
		if entries := c.scan(); len(entries) > 0 {
			return entries
		}
	}
	return append([]Entry(nil), defaultEntries...)
}

func (c *Catalog) readManifest() []Entry {
	data, err := os.ReadFile(filepath.Join(c.dir, "manifest.json"))
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("Failed to read manifest", logger.ErrorFields("read_manifest", err))
		}
		return nil
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		c.log.Warn("Failed to read manifest", logger.ErrorFields("read_manifest", err))
		return nil
	}
	c.log.Info("Found model manifest", logger.Fields("count", len(m.Models)))
	return m.Models
}

func (c *Catalog) scan() []Entry {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}
	var entries []Entry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		ext := filepath.Ext(f.Name())
		if !isModelExtension(ext) {
			continue
		}
		name := strings.TrimSuffix(f.Name(), ext)
		entries = append(entries, Entry{
			Name:        name,
			File:        f.Name(),
			Description: "Offline " + name + " model",
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func isModelExtension(ext string) bool {
	for _, e := range modelExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LogCatalog writes the model list to log, one line per model.
func (c *Catalog) LogCatalog(log *logger.Logger) {
	entries := c.List()
	offline := 0
	for _, e := range entries {
		if e.Offline() {
			offline++
		}
	}
	log.Info("Available models", logger.Fields("total", len(entries), "offline", offline))
	for _, e := range entries {
		log.Info("  - "+e.Name+": "+e.Description, logger.Fields(logger.FieldModel, e.Name))
	}
}
