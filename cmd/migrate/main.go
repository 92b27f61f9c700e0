// migrate applies the embedded desk schema: go run ./cmd/migrate [up|down|version].
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"servicedesk/cmd/internal/app"
	"servicedesk/cmd/internal/db"
)

func main() {
	direction := flag.String("direction", db.DirectionUp, "Migration direction: up, down or version")
	flag.Parse()
	if flag.NArg() > 0 {
		*direction = flag.Arg(0)
	}

	app.LoadDotEnv()
	dsn := app.EnvString("DESK_DATABASE_URL", "")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DESK_DATABASE_URL is not set")
		os.Exit(1)
	}

	if *direction == "version" {
		v, dirty, err := db.Version(dsn)
		if err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
		return
	}

	if err := db.Migrate(dsn, *direction); err != nil {
		if errors.Is(err, db.ErrNoChange) {
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
