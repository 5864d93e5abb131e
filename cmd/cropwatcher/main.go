package main

import (
	"farm-price-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
