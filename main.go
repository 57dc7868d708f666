package main

import (
	"fmt"

	"github.com/relaygrid/actorhub/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
