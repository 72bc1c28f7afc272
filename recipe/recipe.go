// Package recipe holds the vocabulary shared by every stage of the dnet
// package recipe: the package identity, the target Settings, the user
// Options and build matrices over both.
package recipe

import "github.com/cockroachdb/errors"

// Package identity of the dnet communication library.
const (
	Name        = "dnet"
	Version     = "1.0.0"
	Author      = "daixian<amano_tooko@qq.com>"
	URL         = "https://github.com/daixian/DNET2"
	Description = "通信库"
)

// Topics are the package search keywords.
var Topics = []string{"unity", "net", "daixian"}

// Libs is the fixed list of libraries a consumer links against.
// It is part of the package definition and never derived from the files
// a build happens to produce.
func Libs() []string {
	return []string{"DNET"}
}

// ErrConfiguration marks malformed Settings or Options.
var ErrConfiguration = errors.New("configuration error")

func configErrorf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}
