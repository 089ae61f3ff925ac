// Command modplay is an interactive terminal player for Protracker MOD
// files: it streams audio through PortAudio while scrolling the current
// pattern in the terminal, with keyboard-driven channel mute/solo.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/gomodplayer/protracker"
	"github.com/gomodplayer/protracker/cmd/internal/config"
)

var (
	flagHz          = flag.Int("hz", 44100, "output hz")
	flagStereoWidth = flag.Float64("width", 1.0, "stereo width, 0 (mono-like) to 1 (hard Amiga pan)")
	flagStart       = flag.Int("start", 0, "starting pattern-table position, clamped to song length")
	flagReverb      = flag.String("reverb", "light", "choose from cheap, light, medium, hall or none")
	flagMute        = flag.Uint("mute", 0, "bitmask of muted channels, channel 1 in LSB")
	flagNoUI        = flag.Bool("noui", false, "turn off all UI, mostly useful in development")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("modplay: ")
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("Missing song filename")
	}

	songF, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	player, err := protracker.NewPlayerFromBytes(songF)
	if err != nil {
		log.Fatal(err)
	}
	player.SetSampleRate(*flagHz)
	player.SetStereo(true)
	player.SetStereoWidth(*flagStereoWidth)
	player.Mute = uint32(*flagMute)
	if *flagStart > 0 {
		player.SeekTo(*flagStart)
	}

	rvb, err := config.ReverbFromFlag(*flagReverb, *flagHz)
	if err != nil {
		log.Fatal(err)
	}

	play(player, rvb)
}
