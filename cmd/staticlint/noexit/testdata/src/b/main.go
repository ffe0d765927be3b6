package main

import (
	"log"
	"os"
)

func run() int {
	if len(os.Args) > 5 {
		log.Fatalln("too many arguments") // want `log.Fatalln called outside main.main`
	}
	return 0
}

func main() {
	if code := run(); code != 0 {
		os.Exit(code)
	}
	defer log.Println("done")
	os.Exit(0)
}
