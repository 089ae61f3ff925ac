package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"
	"github.com/gomodplayer/protracker"
	"github.com/gomodplayer/protracker/internal/comb"
	"github.com/gordonklaus/portaudio"
)

var (
	white   = color.New(color.FgWhite).SprintfFunc()
	cyan    = color.New(color.FgCyan).SprintfFunc()
	magenta = color.New(color.FgMagenta).SprintfFunc()
	yellow  = color.New(color.FgYellow).SprintfFunc()
	blue    = color.New(color.FgHiBlue).SprintFunc()
	green   = color.New(color.FgGreen).SprintfFunc()
)

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
)

func play(player *protracker.Player, reverb comb.Reverber) {
	if err := portaudio.Initialize(); err != nil {
		log.Fatal(err)
	}

	// The audio callback runs on PortAudio's own thread; the Player is not
	// safe for concurrent use, so every access to its mutable state (from
	// here, the keyboard handler or the UI loop below) goes through mu.
	// Module() and NoteAt only read the parsed song, which never changes,
	// and are called without it.
	var mu sync.Mutex

	scratch := make([]int16, 4096)
	streamCB := func(out []int16) {
		mu.Lock()
		sc := scratch[:len(out)]
		player.DecodeFrames(len(out)/2, sc)
		mu.Unlock()

		reverb.InputSamples(sc)
		reverb.GetAudio(out)
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(*flagHz), 1024, streamCB)
	if err != nil {
		log.Fatal(err)
	}
	defer stream.Close()

	stream.Start()
	defer stream.Stop()

	var uiw io.Writer = os.Stdout
	if *flagNoUI {
		uiw = io.Discard
	}

	stopFn := func() {
		stream.Stop()
		portaudio.Terminate()
		fmt.Fprint(uiw, showCursor)
		os.Exit(0)
	}

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT)
	go func() {
		<-sigch
		stopFn()
	}()

	fmt.Fprint(uiw, hideCursor)

	numChannels := player.Module().NumChannels

	uiSelectedChannel := 0
	uiSoloChannel := -1

	go func() {
		keyboard.Listen(func(key keys.Key) (stop bool, err error) {
			switch key.Code {
			case keys.CtrlC, keys.Escape:
				stopFn()
			case keys.Left:
				uiSelectedChannel = max(uiSelectedChannel-1, 0)
			case keys.Right:
				uiSelectedChannel = min(uiSelectedChannel+1, numChannels-1)
			case keys.RuneKey:
				if len(key.Runes) == 0 {
					break
				}
				mu.Lock()
				switch key.Runes[0] {
				case 'q':
					player.Mute ^= 1 << uint(uiSelectedChannel)
				case 's':
					if uiSoloChannel != uiSelectedChannel {
						uiSoloChannel = uiSelectedChannel
						player.Mute = ^uint32(0) ^ (1 << uint(uiSelectedChannel))
					} else {
						uiSoloChannel = -1
						player.Mute = 0
					}
				}
				mu.Unlock()
			}
			return false, nil
		})
	}()

	lastPos, lastLine := -1, -1
	for {
		mu.Lock()
		pos, line, speed, bpm := player.Position()
		states := player.ChannelStates()
		mu.Unlock()

		if pos == lastPos && line == lastLine {
			continue
		}
		lastPos, lastLine = pos, line

		fmt.Fprintf(uiw, "%s %02X/%02X %s %02d %s %3d\n", blue("pat"), pos, player.Module().SongLength, blue("speed"), speed, blue("bpm"), bpm)

		for i, cs := range states {
			label := fmt.Sprintf("%d smp=%02d vol=%02d  ", i+1, cs.Sample, cs.Volume)
			if i == uiSelectedChannel {
				fmt.Fprint(uiw, green(label))
			} else {
				fmt.Fprint(uiw, label)
			}
		}
		fmt.Fprintln(uiw)

		for i := -2; i <= 2; i++ {
			l := line + i
			if i == 0 {
				fmt.Fprint(uiw, ">>> ")
			} else {
				fmt.Fprint(uiw, "    ")
			}
			for ch := 0; ch < numChannels; ch++ {
				n := player.NoteAt(pos, l, ch)
				if n == nil {
					fmt.Fprint(uiw, ".... .... ")
					continue
				}
				if n.Period == 0 {
					fmt.Fprint(uiw, white("...."), " ")
				} else {
					fmt.Fprint(uiw, white("%4d", n.Period), " ")
				}
				fmt.Fprint(uiw, cyan("%02d", n.Sample), magenta("%X", n.EffectType), yellow("%02X", n.EffectParam), " ")
			}
			fmt.Fprintln(uiw)
		}
		fmt.Fprintf(uiw, escape+"%dF", 3+5)
	}
}
