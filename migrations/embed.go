package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var Files embed.FS

// GetFS returns the migrations for the given SQL driver
func GetFS(driver string) (fs.FS, error) {
	switch driver {
	case "sqlite", "postgres":
		return fs.Sub(Files, driver)
	}
	return nil, fmt.Errorf("no SQL migrations for driver %q", driver)
}
