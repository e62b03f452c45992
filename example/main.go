package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"confstore"
)

// ServerSettings is the typed view of the [server] section used by Scan.
type ServerSettings struct {
	Host    string        `ini:"host"`
	Port    int           `ini:"port"`
	Debug   bool          `ini:"debug"`
	Timeout time.Duration `ini:"timeout"`
}

func main() {
	dir, err := os.MkdirTemp("", "confstore-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "config.ini")

	// PART 1: build a store from a mapping and persist it.
	log.Println("--- creating initial config file")
	cfg, err := confstore.NewFromMap(map[string]any{
		"server": map[string]any{"host": "localhost", "port": "8080"},
		"paths":  map[string]any{"data": "/var/lib/app"},
	})
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	if err := cfg.Save(path, confstore.SaveMode(confstore.ModeWrite)); err != nil {
		log.Fatalf("save: %v", err)
	}

	// PART 2: reload it merged against defaults, with casting.
	log.Println("--- reloading with defaults and casting")
	loaded, err := confstore.New(path,
		confstore.WithSection("server"),
		confstore.WithDefaults(map[string]any{
			"port":    8080,
			"debug":   false,
			"timeout": "30s",
		}),
		confstore.WithCast(true),
	)
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	log.Printf("server section: %v", loaded.SectionMap())

	// PART 3: decode a section into a struct.
	var settings ServerSettings
	if err := loaded.Scan("server", &settings); err != nil {
		log.Fatalf("scan: %v", err)
	}
	log.Printf("typed settings: %+v", settings)

	// PART 4: change a value and merge it back without touching the
	// rest of the file.
	if err := loaded.Set("debug", "true"); err != nil {
		log.Fatalf("set: %v", err)
	}
	if err := loaded.Save(path,
		confstore.SaveSection("server"),
		confstore.SaveMode(confstore.ModeAdd),
		confstore.KeepOriginal(false),
	); err != nil {
		log.Fatalf("merge-save: %v", err)
	}
	log.Println("--- merged [server] back into", path)
}
