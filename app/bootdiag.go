//go:build !(tinygo && bootdebug)

package app

import "rtk/hal"

func bootStep(hal.HAL, string) {}
