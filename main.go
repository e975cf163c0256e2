package main

import (
	"fmt"
	"os"

	"rxledger/bank-import/cmd/classify"
	"rxledger/bank-import/cmd/export"
	"rxledger/bank-import/cmd/importcmd"
	"rxledger/bank-import/cmd/root"
	suggestcmd "rxledger/bank-import/cmd/suggest"
	"rxledger/bank-import/internal/config"
)

func init() {
	// Environment first so flag defaults and logging see it.
	config.LoadEnv()

	root.Init()

	root.Cmd.AddCommand(importcmd.Cmd)
	root.Cmd.AddCommand(classify.Cmd)
	root.Cmd.AddCommand(suggestcmd.Cmd)
	root.Cmd.AddCommand(export.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
