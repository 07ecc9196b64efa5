package storage

import (
	"fmt"
	"slices"
	"strings"

	logx "noticebot/pkg/logx"
)

type opener func(Config, logx.Logger) (Store, error)

// drivers maps storage.driver values, aliases included, to constructors.
var drivers = map[string]opener{
	"":        openFile,
	"file":    openFile,
	"json":    openFile,
	"sqlite":  openSQLite,
	"sqlite3": openSQLite,
}

// Drivers lists the accepted storage.driver values.
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for k := range drivers {
		if k != "" {
			names = append(names, k)
		}
	}
	slices.Sort(names)
	return names
}

// Open returns the store selected by cfg.Driver; empty selects "file".
func Open(cfg Config, log logx.Logger) (Store, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Driver))
	open, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("storage: unknown driver %q (want one of %s)", name, strings.Join(Drivers(), ", "))
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return open(cfg, log.With(logx.String("driver", driverLabel(name))))
}

func driverLabel(name string) string {
	if name == "" {
		return "file"
	}
	return name
}
