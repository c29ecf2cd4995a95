//go:build tinygo

package main

import (
	"rtk/app"
	"rtk/hal"
	"rtk/internal/scenario"
)

func main() {
	h := hal.New()
	sc, err := scenario.Builtin("inheritance")
	if err != nil {
		h.Logger().WriteLineString(err.Error())
		select {}
	}
	app.Run(h, app.Config{Scenario: sc})
}
