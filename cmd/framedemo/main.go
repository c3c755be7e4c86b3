// Command framedemo sets up a frame, uploads a cube mesh to the preferred
// GPU and runs the loop for a number of frames or until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/gogpu/frame/driver/vulkan"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "framedemo:", err)
		os.Exit(1)
	}
}
