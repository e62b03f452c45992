// Package confstore loads INI-style configuration, merges it against
// declared default values, optionally casts values to the defaults'
// types, and writes the merged result back with simple conflict
// handling (overwrite, merge/add, interactive, leave).
//
// Features:
//   - Section-shaped data: section -> key -> value, one level deep,
//     with a reserved DEFAULT section that always exists
//   - Default merging: declared defaults seed every section and fill
//     keys missing from the source
//   - Type casting driven by the default value's type (string, bool,
//     int, float, sequence, set, mapping), with strict and lenient modes
//   - Strict key policy rejecting keys not declared in defaults
//   - Save modes: write, add (merge onto existing content), interactive
//     and leave, with timestamped backups of overwritten files
//   - Import from TOML/JSON/YAML mappings and struct decoding via Scan
//   - Transparent gzip/xz/bzip2 compression and charset detection
//     through the fileio subpackage
//
// Quick Start:
//
//	cfg, err := confstore.New("config.ini",
//	    confstore.WithSection("server"),
//	    confstore.WithDefaults(map[string]any{"port": 8080, "debug": false}),
//	    confstore.WithCast(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	port, _ := cfg.Get("port") // int 8080 unless the file overrides it
//	_ = cfg.Set("debug", "true")
//	if err := cfg.Save("", confstore.SaveMode(confstore.ModeAdd)); err != nil {
//	    log.Fatal(err)
//	}
//
// All operations are synchronous and single-threaded; a Store owns its
// mappings exclusively and file handles are released before each call
// returns.
package confstore
