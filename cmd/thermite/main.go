package main

import (
	"thermite-middleware/cmd/thermite/commands"
	"thermite-middleware/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()
	commands.ExecuteContext(ctx)
}
