package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/printersim/cmd/p2s-sim/app"
)

func main() {
	app.NewApp().Run()
}
