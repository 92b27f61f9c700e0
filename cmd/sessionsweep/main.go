// sessionsweep runs one session cleanup pass and exits. Schedule it with cron or a CronJob.
package main

import (
	"log"

	"servicedesk/cmd/internal/app"
)

func main() {
	if err := app.RunSweep(); err != nil {
		log.Fatal(err)
	}
}
