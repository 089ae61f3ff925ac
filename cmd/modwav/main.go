// Command modwav renders a Protracker MOD file to a 16-bit stereo WAV file.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/gomodplayer/protracker"
	"github.com/gomodplayer/protracker/internal/comb"
	"github.com/gomodplayer/protracker/wav"
)

const outputHz = 44100

func main() {
	log.SetFlags(0)
	log.SetPrefix("modwav: ")

	wavOut := flag.String("wav", "", "output WAVE file")
	seconds := flag.Int("seconds", 30, "seconds of audio to render")
	echo := flag.Bool("echo", false, "apply a single echo tap to the rendered audio")
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("Missing MOD filename")
	}
	if *wavOut == "" {
		log.Fatal("No -wav option provided")
	}

	modF, err := os.ReadFile(flag.Args()[0])
	if err != nil {
		log.Fatal(err)
	}

	player, err := protracker.NewPlayerFromBytes(modF)
	if err != nil {
		log.Fatal(err)
	}
	player.SetSampleRate(outputHz)
	player.SetStereo(true)

	totalFrames := outputHz * *seconds
	audioOut := make([]int16, totalFrames*2)
	player.DecodeFrames(totalFrames, audioOut)

	if *echo {
		// modwav renders a fixed duration up front, so the whole buffer is
		// available at once: size the reverb's ring buffer to hold it all
		// and drain it in one shot instead of feeding it incrementally the
		// way cmd/modplay's streaming reverb does.
		rvb := comb.NewSingleTapReverb(len(audioOut), 0.5, 0.3, 0.5, 350, outputHz)
		rvb.InputSamples(audioOut)
		reverbed := make([]int16, len(audioOut))
		n := rvb.GetAudio(reverbed)
		audioOut = reverbed[:n]
	}

	wavF, err := os.Create(*wavOut)
	if err != nil {
		log.Fatal(err)
	}
	defer wavF.Close()

	wavW, err := wav.NewWriter(wavF, outputHz, 2)
	if err != nil {
		log.Fatal(err)
	}
	defer wavW.Finish()

	if err := wavW.WriteFrame(audioOut); err != nil {
		log.Fatal(err)
	}
}
