package main

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	cmd "github.com/DCSO/hostnamer/cmd/hostnamer/cmds"
)

func main() {
	cmd.Execute()
}
