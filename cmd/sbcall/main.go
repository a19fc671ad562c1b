package main

import (
	"github.com/prashanna2005/SkillBridge/internal/cli"
)

func main() {
	cli.Execute()
}
