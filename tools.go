//go:build tools

// Package main tracks tool dependencies run through go generate.
package main

import (
	_ "go.uber.org/mock/mockgen"
)
