// Package versions parses the local index of dependency versions that a
// registry makes available.
package versions

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"slices"
)

// Release is one published version of a dependency.
type Release struct {
	Version string `json:"version"`
	Channel string `json:"channel,omitempty"`
}

// Versions maps a dependency name to its published releases.
//
//	{
//	  "deps": {
//	    "dlog": [{"version": "2.6.0", "channel": "daixian/stable"}]
//	  }
//	}
type Versions struct {
	Dependencies map[string][]Release `json:"deps"`
}

// Parse reads and parses a versions file from either provided data or a
// file path. If data is non-nil, it is used directly and the file parameter
// is ignored.
func Parse(file string, data []byte) (*Versions, error) {
	var reader io.Reader

	if data != nil {
		reader = bytes.NewBuffer(data)
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		reader = f
	}

	var v Versions

	if err := json.NewDecoder(reader).Decode(&v); err != nil {
		return nil, err
	}

	return &v, nil
}

// Releases returns the releases of name published on channel. An empty
// channel matches every release; a release without a channel only
// matches an empty channel.
func (v *Versions) Releases(name, channel string) []Release {
	var out []Release
	for _, r := range v.Dependencies[name] {
		if channel == "" || r.Channel == channel {
			out = append(out, r)
		}
	}
	return slices.Clip(out)
}
