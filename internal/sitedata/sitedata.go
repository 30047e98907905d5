// Package sitedata embeds the built-in definitions copied into the site data
// collection of a new site: the default types, lists, views, field groups,
// fields, vocabularies, enumerated values and user permissions.
package sitedata

import (
	"embed"
	iofs "io/fs"
)

//go:embed all:data
var files embed.FS

// FS returns the built-in definitions, one directory per definition kind.
func FS() iofs.FS {
	sub, err := iofs.Sub(files, "data")
	if err != nil {
		panic(err)
	}
	return sub
}
