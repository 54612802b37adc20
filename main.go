// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shroud-chain/shroudd/repo"

	// Native contracts register themselves into the runtime's dispatch
	// table via init(); importing for side effects is how main wires
	// Money/Consensus/Deploy into a running node without the runtime
	// package needing to know their concrete types (spec.md §9).
	_ "github.com/shroud-chain/shroudd/contracts/consensus"
	_ "github.com/shroud-chain/shroudd/contracts/deploy"
	_ "github.com/shroud-chain/shroudd/contracts/money"
)

func main() {
	var (
		dataDir       = flag.String("datadir", defaultDataDir(), "data directory")
		logDir        = flag.String("logdir", "", "log directory (empty disables file logging)")
		logLevel      = flag.String("loglevel", "info", "log level: debug, info, warning, error")
		regtest       = flag.Bool("regtest", false, "use regtest network parameters")
		minFeePerByte = flag.Uint64("minfeeperbyte", 0, "minimum fee per byte accepted into the mempool")
	)
	flag.Parse()

	if err := os.MkdirAll(*dataDir, 0700); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	config := &repo.Config{
		DataDir:       *dataDir,
		LogDir:        *logDir,
		LogLevel:      *logLevel,
		Regtest:       *regtest,
		MinFeePerByte: *minFeePerByte,
	}

	server, err := BuildServer(config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	if err := server.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shroudd"
	}
	return home + "/.shroudd"
}
