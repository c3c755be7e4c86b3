// Package manifest reads the JSON manifests the native loader uses to
// discover installed layers and drivers.
package manifest

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/gogpu/frame/driver"
)

// ErrInvalid is returned for manifests that fail to parse or validate.
var ErrInvalid = errors.New("manifest: invalid manifest")

//go:embed schema/*.json
var schemaFS embed.FS

// Layer is one layer entry of a layer manifest.
type Layer struct {
	Name                  string
	Type                  string
	LibraryPath           string
	APIVersion            driver.Version
	ImplementationVersion uint32
	Description           string
	ComponentLayers       []string
	InstanceExtensions    []driver.ExtensionProperties

	// Source is the file the layer was read from.
	Source string
}

// Properties converts the entry to the driver representation.
func (l Layer) Properties() driver.LayerProperties {
	return driver.LayerProperties{
		Name:                  l.Name,
		SpecVersion:           l.APIVersion,
		ImplementationVersion: l.ImplementationVersion,
		Description:           l.Description,
	}
}

// ICD is a driver manifest.
type ICD struct {
	LibraryPath string
	APIVersion  driver.Version
	Portability bool

	Source string
}

// number accepts both "1" and 1, manifests in the wild use either.
type number uint32

func (n *number) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*n = number(v)
	return nil
}

type layerJSON struct {
	Name                  string   `json:"name"`
	Type                  string   `json:"type"`
	LibraryPath           string   `json:"library_path"`
	APIVersion            string   `json:"api_version"`
	ImplementationVersion number   `json:"implementation_version"`
	Description           string   `json:"description"`
	ComponentLayers       []string `json:"component_layers"`
	InstanceExtensions    []struct {
		Name        string `json:"name"`
		SpecVersion number `json:"spec_version"`
	} `json:"instance_extensions"`
}

type layerFile struct {
	FileFormatVersion string      `json:"file_format_version"`
	Layer             *layerJSON  `json:"layer"`
	Layers            []layerJSON `json:"layers"`
}

type icdFile struct {
	FileFormatVersion string `json:"file_format_version"`
	ICD               struct {
		LibraryPath string `json:"library_path"`
		APIVersion  string `json:"api_version"`
		Portability bool   `json:"is_portability_driver"`
	} `json:"ICD"`
}

var schemas = sync.OnceValues(func() (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	out := make(map[string]*jsonschema.Schema, 2)
	for _, name := range []string{"layer.json", "icd.json"} {
		data, err := schemaFS.ReadFile("schema/" + name)
		if err != nil {
			return nil, err
		}
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", name, err)
		}
	}
	for _, name := range []string{"layer.json", "icd.json"} {
		s, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
})

func validate(schema string, data []byte) error {
	all, err := schemas()
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := all[schema].Validate(payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// ParseLayers parses a layer manifest. Files in format 1.0.x carry a single
// "layer" object; 1.0.1 and later may list several under "layers".
func ParseLayers(data []byte, source string) ([]Layer, error) {
	if err := validate("layer.json", data); err != nil {
		return nil, err
	}

	var f layerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	entries := f.Layers
	if f.Layer != nil {
		entries = append([]layerJSON{*f.Layer}, entries...)
	}

	layers := make([]Layer, 0, len(entries))
	for _, e := range entries {
		api, err := driver.ParseVersion(e.APIVersion)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %s: %w", ErrInvalid, e.Name, err)
		}
		l := Layer{
			Name:                  e.Name,
			Type:                  e.Type,
			LibraryPath:           e.LibraryPath,
			APIVersion:            api,
			ImplementationVersion: uint32(e.ImplementationVersion),
			Description:           e.Description,
			ComponentLayers:       e.ComponentLayers,
			Source:                source,
		}
		for _, ext := range e.InstanceExtensions {
			l.InstanceExtensions = append(l.InstanceExtensions, driver.ExtensionProperties{
				Name:        ext.Name,
				SpecVersion: uint32(ext.SpecVersion),
			})
		}
		layers = append(layers, l)
	}
	return layers, nil
}

// ParseICD parses a driver manifest. A missing api_version reads as 1.0.
func ParseICD(data []byte, source string) (ICD, error) {
	if err := validate("icd.json", data); err != nil {
		return ICD{}, err
	}

	var f icdFile
	if err := json.Unmarshal(data, &f); err != nil {
		return ICD{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	api := driver.Version10
	if f.ICD.APIVersion != "" {
		v, err := driver.ParseVersion(f.ICD.APIVersion)
		if err != nil {
			return ICD{}, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		api = v
	}
	return ICD{
		LibraryPath: f.ICD.LibraryPath,
		APIVersion:  api,
		Portability: f.ICD.Portability,
		Source:      source,
	}, nil
}
