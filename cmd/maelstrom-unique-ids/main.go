// Command maelstrom-unique-ids runs the unique-id generator node sharing
// the same envelope and runtime scaffolding as maelstrom-broadcast.
package main

import (
	"fmt"
	"os"

	"github.com/mcastellin/maelstrom-broadcast/pkg/node"
	"github.com/mcastellin/maelstrom-broadcast/pkg/obslog"
	"github.com/mcastellin/maelstrom-broadcast/pkg/uniqueid"
)

func main() {
	logger := obslog.New()
	defer logger.Sync()

	rt := node.New(uniqueid.New, node.WithLogger(logger))
	if err := rt.Run(os.Stdin, os.Stdout); err != nil {
		logger.Errorw("node exited with error", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
