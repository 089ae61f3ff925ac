package protracker

import (
	"fmt"
	"math"
)

const (
	defaultSampleRate = 48000
	defaultSpeed      = 6
	defaultBPM        = 125
	minPeriod         = 20
	maxPeriod         = 20000
	maxVolume         = 64
	maxChunkFrames    = 1024
	amigaClockRate    = 7159090.5
)

// Effect codes, primary table (spec.md 4.3).
const (
	effectArpeggio      = 0x0
	effectSlideUp       = 0x1
	effectSlideDown     = 0x2
	effectSlideToNote   = 0x3
	effectVibrato       = 0x4
	effectVolSlidePorta = 0x5
	effectVolSlideVib   = 0x6
	effectTremolo       = 0x7
	effectSetPan        = 0x8
	effectSampleOffset  = 0x9
	effectVolumeSlide   = 0xA
	effectPositionJump  = 0xB
	effectSetVolume     = 0xC
	effectPatternBreak  = 0xD
	effectExtended      = 0xE
	effectSetSpeed      = 0xF
)

// Extended effect sub-codes, dispatched under effectExtended.
const (
	extFineSlideUp      = 0x1
	extFineSlideDown    = 0x2
	extPatternLoop      = 0x6
	extRetrigger        = 0x9
	extFineVolSlideUp   = 0xA
	extFineVolSlideDown = 0xB
	extNoteCut          = 0xC
	extPatternDelay     = 0xE
)

// ChannelState is the per-channel mutable playback state the sequencer
// mutates and the mixer reads every tick.
type ChannelState struct {
	Period int
	Sample int
	Volume int

	SampleLooped bool
	SamplePos    float64
	Panning      float64

	volSlideOn   bool
	pitchSlideOn bool
	vibratoOn    bool
	tremoloOn    bool
	arpeggioOn   bool

	volSlide      int
	pitchSlide    int
	vibRate       int
	vibDepth      int
	vibPhase      int
	arpeggio1     int
	arpeggio2     int
	retriggerRate int
	noteCutIdx    int

	loopStart int
	loopCount int

	pitchOffset  float64
	volOffset    int
	targetPeriod int
}

func newChannelState(idx int) ChannelState {
	// spec.md 3: channels 1 and 4 -> -1, channels 2 and 3 -> +1 (1-based).
	pan := -1.0
	if idx == 1 || idx == 2 {
		pan = 1.0
	}
	return ChannelState{Panning: pan}
}

// Player holds a parsed Module plus all mutable sequencer/mixer runtime
// state, and is the entry point for decoding audio.
type Player struct {
	mod *Module

	outputSampleRate   int
	outputChannelCount int
	stereoWidth        float64

	patternIdx int
	lineIdx    int
	tickIdx    int

	framesUntilNextTick int

	speed int
	bpm   int

	doPositionJump      bool
	positionJumpPatIdx  int
	positionJumpLineIdx int

	positionJumpArmedThisLine bool
	patternBreakArmedThisLine bool

	patternDelay int

	channels []ChannelState

	// Mute is a bitmask of muted channels, channel 1 in the LSB. Set a
	// bit to silence that channel in the mix without altering sequencer
	// state, so muting and unmuting mid-song has no audible glitch.
	Mute uint32

	mixL []float32
	mixR []float32
}

// Module returns the parsed song this Player is playing.
func (p *Player) Module() *Module { return p.mod }

// Position returns the current pattern index, line index, speed (ticks per
// line) and bpm, for UI display.
func (p *Player) Position() (patternIdx, lineIdx, speed, bpm int) {
	return p.patternIdx, p.lineIdx, p.speed, p.bpm
}

// ChannelStates returns a snapshot of the current per-channel playback
// state, for UI display. The returned slice is a copy.
func (p *Player) ChannelStates() []ChannelState {
	out := make([]ChannelState, len(p.channels))
	copy(out, p.channels)
	return out
}

// NoteAt returns the note at the given song position (an index into the
// pattern table, not a raw pattern index) and line, or nil if line falls
// outside the pattern. Intended for scrolling-pattern UI display.
func (p *Player) NoteAt(songPos, line, channel int) *ChannelNote {
	if songPos < 0 || songPos >= p.mod.SongLength || line < 0 || line >= rowsPerPattern {
		return nil
	}
	patIdx := p.mod.PatternTable[songPos]
	return p.mod.Patterns[patIdx].NoteAt(line, channel, p.mod.NumChannels)
}

// NewPlayerFromBytes parses buf as a Protracker MOD file and returns a
// ready-to-decode Player, positioned at the start of the song.
func NewPlayerFromBytes(buf []byte) (*Player, error) {
	mod, err := NewModuleFromBytes(buf)
	if err != nil {
		return nil, err
	}

	p := &Player{
		mod:                mod,
		outputSampleRate:   defaultSampleRate,
		outputChannelCount: 2,
		stereoWidth:        1.0,
		speed:              defaultSpeed,
		bpm:                defaultBPM,
		channels:           make([]ChannelState, mod.NumChannels),
		mixL:               make([]float32, maxChunkFrames),
		mixR:               make([]float32, maxChunkFrames),
	}
	p.ResetSongToBeginning()
	return p, nil
}

// NewPlayerFromFile reads path and delegates to NewPlayerFromBytes.
func NewPlayerFromFile(path string) (*Player, error) {
	buf, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("protracker: reading %s: %w", path, err)
	}
	return NewPlayerFromBytes(buf)
}

// Close releases resources held by the Player. The core decode path
// allocates nothing beyond construction, so today Close is a no-op, kept
// so callers have a stable teardown point.
func (p *Player) Close() {}

// SetSampleRate changes the output sample rate used by future decode calls.
func (p *Player) SetSampleRate(rate int) {
	if rate <= 0 {
		return
	}
	p.outputSampleRate = rate
}

// SetStereo selects 1- or 2-channel output.
func (p *Player) SetStereo(stereo bool) {
	if stereo {
		p.outputChannelCount = 2
	} else {
		p.outputChannelCount = 1
	}
}

// SetStereoWidth clamps the magnitude of channel panning; 1.0 reproduces
// hard Amiga panning, 0.0 collapses every channel to the center.
func (p *Player) SetStereoWidth(w float64) {
	p.stereoWidth = clampFloat(w, 0, 1)
}

// ResetSongToBeginning rewinds position to (pattern 0, line 0, tick 0),
// resets every channel, and executes line 0 so the first decode call
// produces the song's opening line immediately.
func (p *Player) ResetSongToBeginning() {
	p.patternIdx = 0
	p.lineIdx = 0
	p.tickIdx = 0
	p.speed = defaultSpeed
	p.bpm = defaultBPM
	p.patternDelay = 0
	p.doPositionJump = false

	for i := range p.channels {
		p.channels[i] = newChannelState(i)
	}

	p.executeLine()
}

// SeekTo jumps playback directly to the start of the given pattern-table
// position without resetting channel state, matching how a scrub/seek UI
// control would use it. patternIdx is clamped to the song's valid range.
func (p *Player) SeekTo(patternIdx int) {
	patternIdx = clampInt(patternIdx, 0, p.mod.SongLength-1)

	p.patternIdx = patternIdx
	p.lineIdx = 0
	p.tickIdx = 0
	p.patternDelay = 0
	p.doPositionJump = false

	p.executeLine()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (p *Player) currentPattern() *Pattern {
	patIdx := p.mod.PatternTable[p.patternIdx]
	return &p.mod.Patterns[patIdx]
}

// framesPerTick implements spec.md 4.2's timing formula, including its
// documented truncation bias.
func (p *Player) framesPerTick() int {
	return int(float64(p.outputSampleRate) / (0.4 * float64(p.bpm)))
}

// sequencerTick is called whenever framesUntilNextTick reaches zero. It
// either runs another intra-row tick, or, once speed+patternDelay ticks
// have elapsed for the current line, advances to the next line and runs
// line execution there.
func (p *Player) sequencerTick() {
	p.tickIdx++
	if p.tickIdx >= p.speed+p.patternDelay {
		p.advanceLine()
		p.tickIdx = 0
		p.executeLine()
	} else {
		p.executeTick()
	}
}

func (p *Player) advanceLine() {
	p.patternDelay = 0

	oldPattern := p.patternIdx

	if p.doPositionJump {
		p.patternIdx = p.positionJumpPatIdx
		p.lineIdx = p.positionJumpLineIdx
		p.doPositionJump = false
	} else {
		p.lineIdx++
		if p.lineIdx >= rowsPerPattern {
			p.lineIdx = 0
			p.patternIdx++
		}
	}

	if p.patternIdx >= p.mod.SongLength {
		p.patternIdx = 0
	}

	if p.patternIdx != oldPattern {
		for i := range p.channels {
			p.channels[i].loopStart = 0
			p.channels[i].loopCount = 0
		}
	}
}

// executeLine runs the once-per-row logic of spec.md 4.2 "Line execution".
func (p *Player) executeLine() {
	p.positionJumpArmedThisLine = false
	p.patternBreakArmedThisLine = false

	pat := p.currentPattern()
	for ch := range p.channels {
		cs := &p.channels[ch]
		n := pat.NoteAt(p.lineIdx, ch, p.mod.NumChannels)

		cs.volSlideOn = false
		cs.tremoloOn = false
		cs.arpeggioOn = false
		cs.volOffset = 0
		cs.retriggerRate = 0
		cs.noteCutIdx = 0

		if n.EffectType != effectVolSlidePorta {
			cs.pitchSlideOn = false
		}
		if n.EffectType != effectVolSlideVib {
			cs.vibratoOn = false
			cs.pitchOffset = 0
		}

		if (n.Period != 0 || n.Sample != 0) && n.EffectType != effectSlideToNote {
			if n.Period != 0 {
				cs.Period = n.Period
			}
			if n.Sample != 0 {
				cs.Sample = n.Sample
				if n.Sample >= 1 && n.Sample < numSamples {
					cs.Volume = p.mod.Samples[n.Sample].Volume
				}
			}
			cs.SamplePos = 0
			cs.SampleLooped = false

			if n.EffectType != effectVibrato && n.EffectType != effectTremolo && n.EffectType != effectVolSlideVib {
				cs.vibPhase = 0
			}
		}

		p.executeEffect(cs, n)
	}

	p.framesUntilNextTick = p.framesPerTick()
}

// executeEffect runs the primary effect table of spec.md 4.3 at line start.
func (p *Player) executeEffect(cs *ChannelState, n *ChannelNote) {
	x := int(n.EffectParam >> 4)
	y := int(n.EffectParam & 0xF)
	param := int(n.EffectParam)

	switch n.EffectType {
	case effectArpeggio:
		if param != 0 {
			cs.arpeggioOn = true
			cs.arpeggio1 = x
			cs.arpeggio2 = y
		}
	case effectSlideUp:
		cs.pitchSlideOn = true
		cs.pitchSlide = -param
		cs.targetPeriod = 0
	case effectSlideDown:
		cs.pitchSlideOn = true
		cs.pitchSlide = param
		cs.targetPeriod = 0
	case effectSlideToNote:
		cs.pitchSlideOn = true
		if n.Period != 0 {
			cs.targetPeriod = n.Period
		}
		if param != 0 {
			if cs.targetPeriod < cs.Period {
				cs.pitchSlide = -param
			} else {
				cs.pitchSlide = param
			}
		}
	case effectVibrato:
		cs.vibratoOn = true
		if x != 0 {
			cs.vibRate = x
		}
		if y != 0 {
			cs.vibDepth = y
		}
	case effectVolSlidePorta:
		p.setVolumeSlide(cs, x, y)
		cs.pitchSlideOn = true
	case effectVolSlideVib:
		p.setVolumeSlide(cs, x, y)
		cs.vibratoOn = true
	case effectTremolo:
		cs.tremoloOn = true
		if x != 0 {
			cs.vibRate = x
		}
		if y != 0 {
			cs.vibDepth = y * (p.speed - 1)
		}
	case effectSetPan:
		// not implemented (spec.md 4.3): no-op.
	case effectSampleOffset:
		if param > 0 {
			cs.SamplePos = float64(256 * param)
		}
	case effectVolumeSlide:
		p.setVolumeSlide(cs, x, y)
	case effectPositionJump:
		p.positionJumpPatIdx = param
		if !p.patternBreakArmedThisLine {
			p.positionJumpLineIdx = 0
		}
		p.doPositionJump = true
		p.positionJumpArmedThisLine = true
	case effectSetVolume:
		cs.Volume = param
	case effectPatternBreak:
		p.positionJumpLineIdx = x*10 + y
		if !p.positionJumpArmedThisLine {
			p.positionJumpPatIdx = p.patternIdx + 1
		}
		p.doPositionJump = true
		p.patternBreakArmedThisLine = true
	case effectExtended:
		p.executeExtendedEffect(cs, x, y)
	case effectSetSpeed:
		v := param
		if v < 1 {
			v = 1
		}
		if v <= 32 {
			p.speed = v
		} else {
			p.bpm = v
		}
	}

	cs.Volume = clampInt(cs.Volume, 0, maxVolume)
	cs.Period = clampInt(cs.Period, minPeriod, maxPeriod)
}

func (p *Player) setVolumeSlide(cs *ChannelState, x, y int) {
	cs.volSlideOn = true
	if x != 0 {
		cs.volSlide = x
	} else {
		cs.volSlide = -y
	}
}

func (p *Player) executeExtendedEffect(cs *ChannelState, x, y int) {
	switch x {
	case extFineSlideUp:
		cs.Period -= y
	case extFineSlideDown:
		cs.Period += y
	case extPatternLoop:
		if y == 0 {
			cs.loopStart = p.lineIdx
		} else {
			if cs.loopCount == 0 {
				cs.loopCount = y
			} else {
				cs.loopCount--
			}
			if cs.loopCount > 0 {
				p.positionJumpPatIdx = p.patternIdx
				p.positionJumpLineIdx = cs.loopStart
				p.doPositionJump = true
			}
		}
	case extRetrigger:
		cs.retriggerRate = y
	case extFineVolSlideUp:
		cs.Volume = clampInt(cs.Volume+y, 0, maxVolume)
	case extFineVolSlideDown:
		cs.Volume = clampInt(cs.Volume-y, 0, maxVolume)
	case extNoteCut:
		if y == 0 {
			cs.Volume = 0
		} else {
			cs.noteCutIdx = y
		}
	case extPatternDelay:
		p.patternDelay = y * p.speed
	default:
		// 0x0, 0x3, 0x4, 0x5, 0x7, 0x8, 0xD, 0xF: unimplemented, no-op.
	}
}

// executeTick runs the once-per-tick logic of spec.md 4.2 "Tick execution".
func (p *Player) executeTick() {
	for ch := range p.channels {
		cs := &p.channels[ch]

		if cs.volSlideOn {
			cs.Volume = clampInt(cs.Volume+cs.volSlide, 0, maxVolume)
		}

		if cs.pitchSlideOn {
			newPeriod := cs.Period + cs.pitchSlide
			if cs.targetPeriod != 0 {
				if cs.pitchSlide < 0 {
					if newPeriod < cs.targetPeriod {
						newPeriod = cs.targetPeriod
					}
				} else if newPeriod > cs.targetPeriod {
					newPeriod = cs.targetPeriod
				}
			}
			cs.Period = clampInt(newPeriod, minPeriod, maxPeriod)
		}

		if cs.arpeggioOn {
			switch p.tickIdx % 3 {
			case 0:
				cs.pitchOffset = 0
			case 1:
				cs.pitchOffset = float64(cs.arpeggio1)
			case 2:
				cs.pitchOffset = float64(cs.arpeggio2)
			}
		}

		if cs.vibratoOn || cs.tremoloOn {
			cs.vibPhase++
			wave := math.Sin(float64(cs.vibPhase) * (float64(cs.vibRate) / 64) * 2 * math.Pi)
			if cs.vibratoOn {
				cs.pitchOffset = wave * float64(cs.vibDepth) / 16
			}
			if cs.tremoloOn {
				cs.volOffset = int(int8(wave * float64(cs.vibDepth)))
			}
		}

		if cs.retriggerRate > 0 && p.tickIdx%cs.retriggerRate == 0 {
			cs.SamplePos = 0
		}

		if cs.noteCutIdx != 0 && p.tickIdx == cs.noteCutIdx {
			cs.Volume = 0
		}

		cs.Volume = clampInt(cs.Volume, 0, maxVolume)
		cs.Period = clampInt(cs.Period, minPeriod, maxPeriod)
	}

	p.framesUntilNextTick = p.framesPerTick()
}
