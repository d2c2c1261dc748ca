package main

import (
	"github.com/Michellebuchiokonicha/quest-contract/app/wallet/cli/cmd"
)

func main() {
	cmd.Execute()
}
