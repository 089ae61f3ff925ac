package config

import (
	"fmt"

	"github.com/gomodplayer/protracker/internal/comb"
)

// ReverbPassThrough implements comb.Reverber without applying any effect: it
// just queues whatever it's fed on comb.RingBuffer, the same FIFO the actual
// reverb presets drain their processed audio through.
type ReverbPassThrough struct {
	*comb.RingBuffer
}

var _ comb.Reverber = &ReverbPassThrough{}

// NewPassThrough creates a new instance of ReverbPassThrough
func NewPassThrough(bufferSize int) *ReverbPassThrough {
	return &ReverbPassThrough{RingBuffer: comb.NewRingBuffer(bufferSize)}
}

// ReverbFromFlag initializes an instance of comb.Reverber according to the
// command line flag value.
func ReverbFromFlag(reverb string, sampleRate int) (r comb.Reverber, err error) {
	switch reverb {
	case "cheap":
		// Single comb per channel, much less CPU than the four-comb/
		// two-allpass Schroeder network the presets below run.
		r = comb.NewSingleTapReverb(10*1024, 0.5, 0.3, 0.4, 90, sampleRate)
	case "light":
		// Small room (bedroom/studio booth)
		r = comb.NewStereoReverb(10*1024, 0.5, 0.5, 0.3, sampleRate)
	case "medium":
		// Living room/small hall
		r = comb.NewStereoReverb(10*1024, 0.7, 0.6, 0.5, sampleRate)
	case "hall":
		// Concert hall
		r = comb.NewStereoReverb(10*1024, 0.9, 0.7, 0.7, sampleRate)
	case "none":
		// No reverb (passthrough)
		r = NewPassThrough(10 * 1024)
	default:
		err = fmt.Errorf("unrecognized reverb setting %q", reverb)
	}

	return r, err
}
