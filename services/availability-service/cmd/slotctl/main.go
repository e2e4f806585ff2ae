package main

import (
	"context"
	"os"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/apptslots/libs/runtime"
)

func main() {
	ctx, stop := runtime.WithSignals(context.Background())
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
