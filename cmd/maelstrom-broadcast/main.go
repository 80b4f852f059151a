// Command maelstrom-broadcast runs one node of the broadcast cluster. It
// takes no flags and consults no environment variables for protocol
// behavior; LOG_LEVEL only tunes diagnostic verbosity on stderr.
package main

import (
	"fmt"
	"os"

	"github.com/mcastellin/maelstrom-broadcast/pkg/broadcast"
	"github.com/mcastellin/maelstrom-broadcast/pkg/node"
	"github.com/mcastellin/maelstrom-broadcast/pkg/obslog"
)

func main() {
	logger := obslog.New()
	defer logger.Sync()

	rt := node.New(broadcast.New, node.WithLogger(logger))
	if err := rt.Run(os.Stdin, os.Stdout); err != nil {
		logger.Errorw("node exited with error", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
