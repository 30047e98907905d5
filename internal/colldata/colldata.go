// Package colldata initializes, copies and migrates collection data. Expected
// failures are returned as messages; an empty message list means success.
// Errors are returned only for faults that abort the whole operation.
package colldata

import (
	"fmt"
	iofs "io/fs"
	"path"

	"github.com/agentic-research/annalist/internal/layout"
	"github.com/agentic-research/annalist/internal/model"
)

// InitDirs are the definition directories Initialize copies. User
// permissions are never copied.
var InitDirs = []string{
	layout.EnumDir,
	layout.FieldDir,
	layout.GroupDir,
	layout.ListDir,
	layout.TypeDir,
	layout.ViewDir,
	layout.VocabDir,
}

// Initialize copies definitions and entity data from src into tgt and
// regenerates tgt's context. src holds definition directories under current
// or legacy names and optionally a "d" entity data tree. Existing files in
// tgt are merged with, not cleared.
func Initialize(src iofs.FS, tgt *model.Collection) ([]string, error) {
	log := tgt.Logger()
	store := tgt.Store()
	metaDir := path.Join(tgt.Dir(), layout.CollMetaDir)
	log.Info().Str("target", metaDir).Msg("initializing collection data")

	if err := model.CopyDefinitions(store, src, metaDir, InitDirs); err != nil {
		return nil, err
	}
	if fi, err := iofs.Stat(src, layout.CollEntityDataDir); err == nil && fi.IsDir() {
		dataDir := path.Join(tgt.Dir(), layout.CollEntityDataDir)
		if err := store.CopyFromFS(src, layout.CollEntityDataDir, dataDir); err != nil {
			return nil, err
		}
	}
	if err := tgt.GenerateContext(); err != nil {
		return nil, err
	}
	return nil, nil
}

// Copy recreates every entity of src in tgt, with the same ids and values,
// along with any attached files. An entity that cannot be created is reported
// and skipped.
func Copy(src, tgt *model.Collection) ([]string, error) {
	log := tgt.Logger()
	log.Info().Str("source", src.ID()).Msg("copying collection")
	var msgs []string
	for e, err := range model.NewEntityFinder(src).Entities(model.FindOptions{}) {
		if err != nil {
			return msgs, err
		}
		ti, err := model.NewEntityTypeInfo(tgt, e.TypeID(), true)
		if err == nil {
			var created *model.Entity
			created, err = ti.SaveEntity(e.ID(), e.StoredValues(), model.SaveOptions{DeferContext: true})
			if err == nil && ti.EntityExists(e.ID()) {
				msgs = append(msgs, created.CopyFilesFrom(e)...)
				continue
			}
		}
		msg := fmt.Sprintf("Collection.copy_coll_data: Failed to create entity %s/%s", e.TypeID(), e.ID())
		log.Warn().Err(err).Str("type_id", e.TypeID()).Str("entity_id", e.ID()).Msg(msg)
		msgs = append(msgs, msg)
	}
	if err := tgt.GenerateContext(); err != nil {
		return msgs, err
	}
	return msgs, nil
}

// MigrateDirs renames legacy definition directories of c to their current
// names. Pairs whose legacy directory is absent are skipped. The first
// failure is reported and the remaining renames are not attempted.
func MigrateDirs(c *model.Collection) []string {
	store := c.Store()
	log := c.Logger()
	metaDir := path.Join(c.Dir(), layout.CollMetaDir)
	for _, p := range layout.CollDirsCurrPrev {
		prev := path.Join(metaDir, p.Prev)
		curr := path.Join(metaDir, p.Curr)
		if !store.IsDir(prev) {
			continue
		}
		var err error
		if store.Exists(curr) {
			err = fmt.Errorf("%s: %w", curr, model.ErrExists)
		} else {
			err = store.Rename(prev, curr)
		}
		if err != nil {
			msg := fmt.Sprintf("Error renaming %s to %s: %v", prev, curr, err)
			log.Warn().Err(err).Str("from", prev).Str("to", curr).Msg("directory migration failed")
			return []string{msg}
		}
		log.Info().Str("from", p.Prev).Str("to", p.Curr).Msg("renamed legacy directory")
	}
	return nil
}

// Migrate brings c up to the current layout: legacy directories are renamed,
// every entity is saved again so value migrations are applied, and the
// context is regenerated once at the end.
func Migrate(c *model.Collection) ([]string, error) {
	c.Logger().Info().Msg("migrating collection data")
	msgs := MigrateDirs(c)
	for e, err := range model.NewEntityFinder(c).Entities(model.FindOptions{}) {
		if err != nil {
			return msgs, err
		}
		if err := e.Save(model.SaveOptions{DeferContext: true}); err != nil {
			return msgs, err
		}
	}
	if err := c.GenerateContext(); err != nil {
		return msgs, err
	}
	return msgs, nil
}
