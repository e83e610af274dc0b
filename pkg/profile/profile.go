// Package profile loads named storage destinations from a profiles file.
//
// A profiles file is YAML or JSON, validated against an embedded JSON Schema
// before it is decoded. Unknown provider types are accepted so that a view can
// show them as unsupported instead of refusing to start.
//
// Example (YAML):
//
//	version: "1.0"
//	active: photos
//	profiles:
//	  - name: photos
//	    type: s3
//	    bucket: photos
//	    region: us-east-1
//	    path: albums/2024
//	  - name: local
//	    type: minio
//	    endpoint: http://localhost:9000
//	    bucket: scratch
package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/3leaps/bucketdeck/pkg/provider"
)

// ErrProfileNotFound is returned when a named profile does not exist.
var ErrProfileNotFound = errors.New("profile not found")

// File is a validated profiles file.
type File struct {
	// Schema is an optional JSON Schema reference for editor support.
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version is the file format version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Active names the profile used when none is requested.
	// Defaults to the first profile.
	Active string `json:"active,omitempty" yaml:"active,omitempty"`

	// Profiles are the configured destinations, in file order.
	Profiles []provider.StorageConfig `json:"profiles" yaml:"profiles"`
}

// ApplyDefaults normalizes every profile and fills Active.
func (f *File) ApplyDefaults() {
	for i := range f.Profiles {
		p := f.Profiles[i].Normalized()
		p.Path = strings.Trim(p.Path, "/")
		f.Profiles[i] = p
	}
	f.Active = strings.TrimSpace(f.Active)
	if f.Active == "" && len(f.Profiles) > 0 {
		f.Active = f.Profiles[0].Name
	}
}

// check enforces the cross-field rules a schema cannot express.
func (f *File) check() error {
	var errs ValidationErrors
	seen := make(map[string]int, len(f.Profiles))
	for i, p := range f.Profiles {
		if j, dup := seen[p.Name]; dup {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("/profiles/%d/name", i),
				Message: fmt.Sprintf("duplicate profile name %q (first defined at /profiles/%d)", p.Name, j),
			})
			continue
		}
		seen[p.Name] = i
	}
	if f.Active != "" {
		if _, ok := seen[f.Active]; !ok {
			errs = append(errs, ValidationError{
				Path:    "/active",
				Message: fmt.Sprintf("active profile %q is not defined", f.Active),
			})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Names returns the profile names in file order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Profiles))
	for _, p := range f.Profiles {
		names = append(names, p.Name)
	}
	return names
}

// Find returns the profile with the given name.
func (f *File) Find(name string) (provider.StorageConfig, error) {
	name = strings.TrimSpace(name)
	for _, p := range f.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return provider.StorageConfig{}, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
}

// ActiveProfile returns the profile named by Active.
func (f *File) ActiveProfile() (provider.StorageConfig, error) {
	if f.Active == "" {
		return provider.StorageConfig{}, fmt.Errorf("%w: no profiles defined", ErrProfileNotFound)
	}
	return f.Find(f.Active)
}

// Select returns the named profile, or the active one when name is empty.
func (f *File) Select(name string) (provider.StorageConfig, error) {
	if strings.TrimSpace(name) == "" {
		return f.ActiveProfile()
	}
	return f.Find(name)
}
