package main

import (
	"github.com/fatih/color"

	"CookieBroker/internal/strategy"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func actionColor(a strategy.Action) *color.Color {
	switch a {
	case strategy.Buy:
		return success
	case strategy.Sell:
		return danger
	default:
		return neutral
	}
}

// signedColor paints gains green and losses red.
func signedColor(x float64) *color.Color {
	switch {
	case x > 0:
		return success
	case x < 0:
		return danger
	default:
		return neutral
	}
}
