// Command moddump prints the parsed structure of a Protracker MOD file:
// title, sample headers and every pattern's note grid.
package main

import (
	"log"
	"os"

	"github.com/gomodplayer/protracker"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("moddump: ")

	if len(os.Args) <= 1 {
		log.Fatal("Missing song filename")
	}

	songF, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}

	protracker.SetDumpWriter(os.Stdout)

	if _, err := protracker.NewModuleFromBytes(songF); err != nil {
		log.Fatal(err)
	}
}
