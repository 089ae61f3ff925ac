package protracker

import "testing"

// TestSilentSampleSlot confirms that a note referencing sample slot 0 (the
// always-silent sentinel) produces all-zero mixer output.
func TestSilentSampleSlot(t *testing.T) {
	p := newTestPlayer(t, []string{
		"428 00 ...",
	}, 1)

	out := make([]float32, 64*2)
	p.DecodeFramesF(64, out)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("frame %d: got %v, want 0 (sample 0 is silent)", i, v)
		}
	}
}

// TestSetVolumeThenFineVolSlideDown covers spec.md 8 scenario 2: a Set
// Volume (C20) note followed on the next line by a Fine Vol Slide Down
// (EB04) should leave the channel at volume 0x20-0x04 = 28.
func TestSetVolumeThenFineVolSlideDown(t *testing.T) {
	p := newTestPlayer(t, []string{
		"428 01 C20",
		"... .. EB4",
	}, 1)

	advanceToNextLine(p)

	if got := p.channels[0].Volume; got != 28 {
		t.Fatalf("volume after fine vol slide down = %d, want 28", got)
	}
}

// TestPatternBreakAndPositionJumpSameRow covers spec.md 8 scenario 3: a
// Pattern Break (D13) on one channel and a Position Jump (B05) on another
// channel in the same row must combine into position (pattern 5, line 13):
// each effect unconditionally sets its own destination field, and only
// sets the other field if it is not already armed by the other effect.
func TestPatternBreakAndPositionJumpSameRow(t *testing.T) {
	patterns := make([][]string, 6)
	for i := range patterns {
		patterns[i] = []string{"428 01 ... | ... .. ..."}
	}
	p := newTestPlayerMultiPattern(t, patterns, 6, 2)

	p.patternIdx = 0
	p.lineIdx = 0
	p.mod.Patterns[0].Notes[0*2+0] = ChannelNote{EffectType: effectPatternBreak, EffectParam: 0x13}
	p.mod.Patterns[0].Notes[0*2+1] = ChannelNote{EffectType: effectPositionJump, EffectParam: 0x05}
	p.executeLine()

	advanceToNextLine(p)

	if p.patternIdx != 5 || p.lineIdx != 13 {
		t.Fatalf("position after combined break+jump = (%d,%d), want (5,13)", p.patternIdx, p.lineIdx)
	}
}

// TestSetSpeedBPMThreshold covers spec.md 8 scenario 4: effect F with a
// param <= 32 sets speed (ticks per line), a param > 32 sets bpm.
func TestSetSpeedBPMThreshold(t *testing.T) {
	const sentinelSpeed, sentinelBPM = 1111, 2222

	cases := []struct {
		param     byte
		wantSpeed int
		wantBPM   int
	}{
		{0x06, 6, sentinelBPM},
		{0x7D, sentinelSpeed, 125},
		{0x20, 32, sentinelBPM},
		{0x21, sentinelSpeed, 33},
	}

	for _, c := range cases {
		p := newTestPlayer(t, []string{}, 1)
		p.speed = sentinelSpeed
		p.bpm = sentinelBPM
		cs := &p.channels[0]
		n := &ChannelNote{EffectType: effectSetSpeed, EffectParam: c.param}
		p.executeEffect(cs, n)

		if p.speed != c.wantSpeed {
			t.Errorf("param %#02x: speed = %d, want %d", c.param, p.speed, c.wantSpeed)
		}
		if p.bpm != c.wantBPM {
			t.Errorf("param %#02x: bpm = %d, want %d", c.param, p.bpm, c.wantBPM)
		}
	}
}

// TestPatternLoop covers spec.md 8 scenario 5: E60 marks the loop start on
// line 0, E62 on line 3 loops back to it twice, producing the line
// visitation order 0,1,2,3,0,1,2,3,0,1,2,3,4.
func TestPatternLoop(t *testing.T) {
	p := newTestPlayer(t, []string{
		"428 01 E60",
		"428 01 ...",
		"428 01 ...",
		"428 01 E62",
		"428 01 ...",
	}, 1)

	want := []int{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 4}
	got := []int{p.lineIdx}
	for len(got) < len(want) {
		advanceToNextLine(p)
		got = append(got, p.lineIdx)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line visitation = %v, want %v", got, want)
		}
	}
}

// TestArpeggio covers spec.md 8 scenario 6: effect 047 cycles pitch_offset
// through 0, +4, +7 semitones on ticks 0, 1, 2, repeating every 3 ticks.
func TestArpeggio(t *testing.T) {
	p := newTestPlayer(t, []string{
		"428 01 047",
	}, 1)

	want := []float64{0, 4, 7, 0, 4, 7}
	got := make([]float64, 0, len(want))
	got = append(got, p.channels[0].pitchOffset)
	for len(got) < len(want) {
		p.sequencerTick()
		got = append(got, p.channels[0].pitchOffset)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pitch offsets = %v, want %v", got, want)
		}
	}
}
