package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/printersim/cmd/p2s-probe/app"
)

func main() {
	app.NewApp().Run()
}
