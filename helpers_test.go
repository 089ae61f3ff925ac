package protracker

import (
	"strconv"
	"strings"
)

// tHelper is satisfied by both *testing.T and *testing.B, so the player
// builders below can be shared between tests and benchmarks.
type tHelper interface {
	Helper()
}

// parseTestNote parses one channel's slot in a pattern-row DSL string of
// the form "PPP SS EPP", e.g. "428 01 C20" plays period 428 with sample 1
// and effect C (set volume) param 0x20. "..." in any field means "no
// value"; an empty column means an entirely empty note.
func parseTestNote(s string) ChannelNote {
	s = strings.TrimSpace(s)
	if s == "" {
		return ChannelNote{}
	}

	var n ChannelNote
	fields := strings.Fields(s)
	if len(fields) > 0 && fields[0] != "..." {
		if v, err := strconv.Atoi(fields[0]); err == nil {
			n.Period = v
		}
	}
	if len(fields) > 1 && fields[1] != ".." {
		if v, err := strconv.Atoi(fields[1]); err == nil {
			n.Sample = v
		}
	}
	if len(fields) > 2 && fields[2] != "..." {
		eff := fields[2]
		if b, err := strconv.ParseUint(eff[:1], 16, 8); err == nil {
			n.EffectType = byte(b)
		}
		if len(eff) >= 3 {
			if b, err := strconv.ParseUint(eff[1:3], 16, 8); err == nil {
				n.EffectParam = byte(b)
			}
		}
	}
	return n
}

// buildTestPattern turns rows of "|"-separated per-channel DSL strings
// into a Pattern with rowsPerPattern*numChannels notes, leaving
// unspecified rows/channels as empty notes.
func buildTestPattern(rows []string, numChannels int) Pattern {
	notes := make([]ChannelNote, rowsPerPattern*numChannels)
	for r, row := range rows {
		cols := strings.Split(row, "|")
		for c := 0; c < numChannels && c < len(cols); c++ {
			notes[r*numChannels+c] = parseTestNote(cols[c])
		}
	}
	return Pattern{Notes: notes}
}

// newTestPlayer builds a Player directly from a pattern DSL and two
// non-looping test samples, bypassing the byte parser entirely, and
// resets it to the start of the song (which runs line 0).
func newTestPlayer(t tHelper, rows []string, numChannels int) *Player {
	t.Helper()
	return newTestPlayerMultiPattern(t, [][]string{rows}, 1, numChannels)
}

// newTestPlayerMultiPattern is like newTestPlayer but takes several
// patterns and a song length, for tests that exercise position jumps
// across pattern boundaries. Song position i plays patterns[i].
func newTestPlayerMultiPattern(t tHelper, patterns [][]string, songLength, numChannels int) *Player {
	t.Helper()

	pats := make([]Pattern, len(patterns))
	for i, rows := range patterns {
		pats[i] = buildTestPattern(rows, numChannels)
	}

	mod := &Module{
		Name:        "testsong",
		NumChannels: numChannels,
		SongLength:  songLength,
		Patterns:    pats,
	}
	for i := 0; i < numOrders; i++ {
		if i < len(pats) {
			mod.PatternTable[i] = byte(i)
		}
	}

	sampleLen := 4000
	mod.Samples[1] = Sample{Name: "smp1", Volume: 60, Length: sampleLen, Data: make([]float32, sampleLen)}
	mod.Samples[2] = Sample{Name: "smp2", Volume: 55, Length: sampleLen, Data: make([]float32, sampleLen)}
	for i := range mod.Samples[1].Data {
		mod.Samples[1].Data[i] = float32(i%256-128) / 128
	}
	copy(mod.Samples[2].Data, mod.Samples[1].Data)

	p := &Player{
		mod:                mod,
		outputSampleRate:   44100,
		outputChannelCount: 2,
		stereoWidth:        1.0,
		speed:              defaultSpeed,
		bpm:                defaultBPM,
		channels:           make([]ChannelState, numChannels),
		mixL:               make([]float32, maxChunkFrames),
		mixR:               make([]float32, maxChunkFrames),
	}
	p.ResetSongToBeginning()
	return p
}

// advanceToNextLine runs sequencer ticks until the song position (pattern
// and line) changes, however many ticks that takes given the current
// speed/bpm/pattern-delay.
func advanceToNextLine(p *Player) {
	startPat, startLine := p.patternIdx, p.lineIdx
	for i := 0; i < 100000 && p.patternIdx == startPat && p.lineIdx == startLine; i++ {
		p.sequencerTick()
	}
}
