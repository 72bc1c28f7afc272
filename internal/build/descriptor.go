package build

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/daixian/dnetpkg/recipe"
	"github.com/pelletier/go-toml/v2"
)

// Package directory layout:
//
//	packageDir/
//	  dnetinfo.toml   # Descriptor
//	  include/        # headers, paths relative to src/
//	  lib/            # .lib .a .so .dylib
//	  bin/            # .dll
const DescriptorFile = "dnetinfo.toml"

// Descriptor tells consumers how to link against a package.
type Descriptor struct {
	Name        string          `toml:"name"`
	Version     string          `toml:"version"`
	Description string          `toml:"description"`
	Author      string          `toml:"author"`
	URL         string          `toml:"url"`
	Topics      []string        `toml:"topics"`
	Libs        []string        `toml:"libs"`
	IncludeDirs []string        `toml:"include_dirs"`
	LibDirs     []string        `toml:"lib_dirs"`
	BinDirs     []string        `toml:"bin_dirs"`
	Settings    recipe.Settings `toml:"settings"`
	Options     []string        `toml:"options"`
	Definitions map[string]bool `toml:"definitions"`
	Requires    []string        `toml:"requires,omitempty"`
	Files       []string        `toml:"files"`
	BuildTime   time.Time       `toml:"build_time"`
}

// LoadDescriptor reads the descriptor of the package at dir.
func LoadDescriptor(dir string) (*Descriptor, error) {
	data, err := os.ReadFile(filepath.Join(dir, DescriptorFile))
	if err != nil {
		return nil, err
	}
	var d Descriptor
	if err := toml.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrapf(err, "parse %s", DescriptorFile)
	}
	return &d, nil
}

func saveDescriptor(dir string, d *Descriptor) error {
	data, err := toml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, DescriptorFile), data, 0o644)
}
