package protracker

import "math"

// DecodeFrames writes exactly n interleaved frames of signed 16-bit PCM
// into out (len(out) must be >= n*output_channel_count). The song loops
// indefinitely: once decoding runs past the final position-table entry,
// playback resumes at position 0.
func (p *Player) DecodeFrames(n int, out []int16) {
	need := n * p.outputChannelCount
	if len(out) < need {
		panic("protracker: DecodeFrames: out too small for n frames")
	}

	written := 0
	for written < n {
		chunk := p.decodeChunk(n - written)
		for f := 0; f < chunk; f++ {
			l := clampFloat32(p.mixL[f], -1, 1)
			base := (written + f) * p.outputChannelCount
			out[base] = int16(l * 32767)
			if p.outputChannelCount == 2 {
				r := clampFloat32(p.mixR[f], -1, 1)
				out[base+1] = int16(r * 32767)
			}
		}
		written += chunk
	}
}

// DecodeFramesF writes exactly n interleaved frames of 32-bit float PCM
// into out, otherwise identical to DecodeFrames.
func (p *Player) DecodeFramesF(n int, out []float32) {
	need := n * p.outputChannelCount
	if len(out) < need {
		panic("protracker: DecodeFramesF: out too small for n frames")
	}

	written := 0
	for written < n {
		chunk := p.decodeChunk(n - written)
		for f := 0; f < chunk; f++ {
			base := (written + f) * p.outputChannelCount
			out[base] = p.mixL[f]
			if p.outputChannelCount == 2 {
				out[base+1] = p.mixR[f]
			}
		}
		written += chunk
	}
}

// clampVolumeByte mirrors the original's unsigned-char volume + vol_offset
// math: spec.md 4.4 clamps this sum only from above (min(v, 64)), no lower
// bound, so a large negative vol_offset (tremolo on a quiet channel) wraps
// like an unsigned byte underflow and saturates to full volume instead of
// going silent.
func clampVolumeByte(v int) int {
	b := int(uint8(v))
	if b > maxVolume {
		return maxVolume
	}
	return b
}

func clampFloat32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// decodeChunk produces at most maxChunkFrames frames, and never more than
// framesUntilNextTick, into p.mixL/p.mixR, advancing the sequencer by one
// tick if the chunk exhausted the current tick. It returns the number of
// frames actually produced.
func (p *Player) decodeChunk(maxFrames int) int {
	// A pathologically high bpm can truncate framesPerTick to 0; keep
	// advancing ticks until one actually spans output frames rather than
	// spinning forever inside a single decodeChunk call.
	for p.framesUntilNextTick == 0 {
		p.sequencerTick()
	}

	n := maxFrames
	if n > maxChunkFrames {
		n = maxChunkFrames
	}
	if n > p.framesUntilNextTick {
		n = p.framesUntilNextTick
	}

	for i := 0; i < n; i++ {
		p.mixL[i] = 0
		p.mixR[i] = 0
	}

	numChannels := p.mod.NumChannels
	gain := float32(p.outputChannelCount) / float32(numChannels)

	var chanBuf [maxChunkFrames]float32
	for ch := 0; ch < numChannels; ch++ {
		if p.Mute&(1<<uint(ch)) != 0 {
			continue
		}
		cs := &p.channels[ch]
		p.resampleChannel(cs, chanBuf[:n])
		p.mixChannel(cs, chanBuf[:n], gain)
	}

	p.framesUntilNextTick -= n
	if p.framesUntilNextTick == 0 {
		p.sequencerTick()
	}

	return n
}

// resampleChannel fills out with one channel's contribution as mono float
// samples at the output rate, implementing spec.md 4.4's linear
// interpolation and loop-wrap resampler.
func (p *Player) resampleChannel(cs *ChannelState, out []float32) {
	if cs.Sample == 0 || cs.Sample >= numSamples || cs.Period <= minPeriod {
		for i := range out {
			out[i] = 0
		}
		return
	}

	smp := &p.mod.Samples[cs.Sample]
	if len(smp.Data) == 0 {
		for i := range out {
			out[i] = 0
		}
		return
	}

	rateHz := amigaClockRate / (2 * float64(cs.Period))
	if cs.pitchOffset != 0 || smp.FineTune != 0 {
		semitones := cs.pitchOffset + float64(smp.FineTune)/8
		rateHz *= math.Pow(2, semitones/12)
	}
	step := rateHz / float64(p.outputSampleRate)

	volGain := float32(clampVolumeByte(cs.Volume+cs.volOffset)) / maxVolume

	end := smp.Length
	if cs.SampleLooped {
		end = smp.RepeatOffset + smp.RepeatLength
	}

	for i := range out {
		if cs.SamplePos >= float64(end) {
			if smp.Loop {
				cs.SamplePos = float64(smp.RepeatOffset) + (cs.SamplePos - float64(end))
				cs.SampleLooped = true
				end = smp.RepeatOffset + smp.RepeatLength
			} else {
				out[i] = 0
				continue
			}
		}

		idx := int(cs.SamplePos)
		frac := float32(cs.SamplePos - float64(idx))

		s0 := smp.Data[idx]
		s1idx := idx + 1
		if s1idx >= end {
			s1idx = end - 1
		}
		if s1idx < 0 {
			s1idx = 0
		}
		s1 := smp.Data[s1idx]

		sample := s0 + (s1-s0)*frac
		out[i] = sample * volGain

		cs.SamplePos += step
	}
}

// mixChannel accumulates one channel's mono contribution into p.mixL/mixR
// (or just p.mixL for mono output) with the pan formula of spec.md 4.4.
func (p *Player) mixChannel(cs *ChannelState, chanBuf []float32, gain float32) {
	if p.outputChannelCount == 1 {
		for i, s := range chanBuf {
			p.mixL[i] += gain * s
		}
		return
	}

	pan := clampFloat(cs.Panning*p.stereoWidth, -1, 1)
	leftGain := gain * float32(0.5-0.5*pan)
	rightGain := gain * float32(0.5+0.5*pan)

	for i, s := range chanBuf {
		p.mixL[i] += leftGain * s
		p.mixR[i] += rightGain * s
	}
}
