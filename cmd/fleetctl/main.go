package main

import "github.com/kioskfleet/kiosk-fleet-go/internal/cli"

func main() {
	cli.Execute()
}
