package registry

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-storeform/pkg/model"
)

//go:embed schemas/*
var embeddedSchemas embed.FS

// EmbeddedFS returns the bundled entity schemas.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedSchemas, "schemas")
	if err != nil {
		// The embed directive guarantees the subpath exists.
		panic(err)
	}
	return sub
}

// Default loads the bundled dashboard entities.
func Default() (*Registry, error) {
	return LoadFS(EmbeddedFS())
}

type documentFile struct {
	Forms []model.Form `json:"forms" yaml:"forms"`
}

// LoadFS walks fsys and parses every JSON or YAML schema file. Each file holds
// a `forms` list; entity names must be unique across all files.
func LoadFS(fsys fs.FS) (*Registry, error) {
	r := &Registry{forms: make(map[string]model.Form)}
	if fsys == nil {
		return r, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("registry: read %s: %w", path, err)
		}
		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}
		for _, form := range doc.Forms {
			if err := r.register(form, path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// EncodeYAML renders forms as a schema document LoadFS accepts.
func EncodeYAML(forms ...model.Form) ([]byte, error) {
	data, err := yaml.Marshal(documentFile{Forms: forms})
	if err != nil {
		return nil, fmt.Errorf("registry: encode schema: %w", err)
	}
	return data, nil
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if strings.TrimSpace(string(data)) == "" {
		return doc, fmt.Errorf("registry: file %s is empty", source)
	}
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("registry: parse %s: %w", source, err)
	}
	return doc, nil
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
