// Package stacks provides a layered, read-only namespace of files drawn from
// directories and archives, with a typed resource cache on top.
//
// A Library stacks root stores. A path such as "ui/theme.yaml" is looked up
// across all of them, and the store added last wins. Archives inside a store
// are opened through factories and behave like directories, so
// "packs/base.zip/ui/theme.yaml" reads a file from a zip that lives in a
// root directory. Nesting works to any depth.
//
// Basic usage:
//
//	base, _ := stacks.NewDirStore("assets")
//	mods, _ := stacks.NewDirStore("mods", stacks.WithWatch(true))
//
//	lib, _ := stacks.New(
//	    stacks.WithStores(base, mods),
//	    stacks.WithDefaultFactories(),
//	)
//	defer lib.Close()
//
//	// Register one loader per type
//	stacks.RegisterLoader(lib, loaders.YAML[Theme]())
//
//	// Load decodes once, then serves from cache
//	theme, _ := stacks.Load[Theme](lib, "ui/theme.yaml")
//
//	// Enumerate, including archive contents
//	files, _ := lib.EnumerateFiles("packs/base.zip/ui")
//
//	// Walk everything with io/fs
//	fs.WalkDir(lib.FS(), ".", walkFn)
//
// Reloadable loaders keep cached items current: when a file in a watching
// store changes, the loader's Update is called with the new contents and the
// cached item is modified in place.
package stacks
