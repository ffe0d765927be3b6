package a

import (
	"log"
	"os"
)

var code = exitCode()

func exitCode() int {
	return 0
}

func stop() {
	os.Exit(code) // want `os.Exit called outside main.main`
}

func fail() {
	log.Fatal("boom") // want `log.Fatal called outside main.main`

	l := log.New(os.Stderr, "", 0)
	l.Fatalf("boom %d", 1) // want `log.Fatalf called outside main.main`
	l.Println("fine")
}

type exiter struct{}

func (exiter) Exit(int) {}

func notTerminating() {
	exiter{}.Exit(1)
	log.Print("fine")

	exit := func() {
		os.Exit(2) // want `os.Exit called outside main.main`
	}
	exit()
}
