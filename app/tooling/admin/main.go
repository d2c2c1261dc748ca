// This program performs administrative tasks against a running contract
// engine.
package main

import (
	"fmt"
	"os"

	"github.com/Michellebuchiokonicha/quest-contract/app/tooling/admin/commands"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	url := os.Getenv("ADMIN_ENGINE_URL")
	if url == "" {
		url = "http://localhost:8080"
	}

	return processCommands(os.Args, url)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, url string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: admin <bals|events> ...")
	}

	switch args[1] {
	case "bals":
		if err := commands.Balances(args, url); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "events":
		if err := commands.Events(args, url); err != nil {
			return fmt.Errorf("getting events: %w", err)
		}
	}

	return nil
}
