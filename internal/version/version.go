// Package version хранит сведения о сборке, заданные через -ldflags:
//
//	go build -ldflags "-X github.com/vladislavdragonenkov/fastfood/internal/version.version=v1.2.0"
package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

func GetVersion() string { return version }

func GetCommit() string { return commit }

func GetDate() string { return date }

func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}

// Fields возвращает сведения о сборке для стартовой записи в лог.
func Fields() map[string]any {
	return map[string]any{"version": version, "commit": commit, "build_date": date}
}
