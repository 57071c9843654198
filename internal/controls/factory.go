package controls

import (
	"context"
	"fmt"
	"os"
)

// Open selects a controls.Store implementation using environment variables.
//
//	DATALOGGER_CONTROLS_DRIVER: sqlite|postgres|memory (default sqlite)
//	DATALOGGER_CONTROLS_PATH: sqlite database path (default datalogger_controls.db)
//	DATALOGGER_CONTROLS_DSN: postgres DSN when driver=postgres
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("DATALOGGER_CONTROLS_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	switch driver {
	case "sqlite":
		return NewSQLite(os.Getenv("DATALOGGER_CONTROLS_PATH"))
	case "postgres":
		return NewPostgres(ctx, os.Getenv("DATALOGGER_CONTROLS_DSN"))
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown controls driver %s", driver)
	}
}
