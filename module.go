// Package protracker parses classic 4-channel Protracker MOD files and
// synthesizes interleaved PCM audio from them.
package protracker

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

var dumpW io.Writer

// SetDumpWriter turns on a human-readable trace of the parsed song
// structure (title, samples, patterns) during NewModuleFromBytes, written
// to w. Passing nil (the default) disables the trace.
func SetDumpWriter(w io.Writer) { dumpW = w }

func dumpf(format string, a ...interface{}) {
	if dumpW == nil {
		return
	}
	fmt.Fprintf(dumpW, format, a...)
}

var noteNames = [12]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

// periodTable maps standard Amiga periods to their note names for dumpNote;
// non-standard (e.g. slid or fine-tuned) periods print as raw numbers.
var periodTable = [...]int{
	1712, 1616, 1525, 1440, 1357, 1281, 1209, 1141, 1077, 1017, 961, 907,
	856, 808, 762, 720, 678, 640, 604, 570, 538, 508, 480, 453,
	428, 404, 381, 360, 339, 320, 302, 285, 269, 254, 240, 226,
	213, 202, 190, 179, 169, 160, 151, 142, 134, 127, 120, 113,
	107, 101, 95, 90, 85, 80, 75, 71, 67, 63, 60, 56,
}

func noteStrFromPeriod(period int) string {
	for i, p := range periodTable {
		if p == period {
			return fmt.Sprintf("%s%d", noteNames[i%12], i/12+2)
		}
	}
	return fmt.Sprintf("%4d", period)
}

func dumpNote(n ChannelNote, ch, numChannels int) {
	if n.Period == 0 {
		dumpf("...... ")
	} else {
		dumpf("%-6s ", noteStrFromPeriod(n.Period))
	}
	dumpf("%02d %X%02X", n.Sample, n.EffectType, n.EffectParam)
	if ch < numChannels-1 {
		dumpf(" | ")
	}
}

const (
	numSamples      = 32 // 31 real sample slots, numbered 1..31, plus the silent slot 0
	numOrders       = 128
	rowsPerPattern  = 64
	numMODChannels  = 4
	sampleHeaderLen = 30
	modHeaderLen    = 20 + (numSamples-1)*sampleHeaderLen + 2 + numOrders + 4
)

// ErrShortBuffer is returned by NewModuleFromBytes when the supplied buffer
// is too small to possibly hold a valid MOD file.
var ErrShortBuffer = errors.New("protracker: buffer too short to be a MOD file")

// ErrSizeMismatch is returned by NewModuleFromBytes when the buffer's
// declared pattern and sample data don't fit inside the buffer actually
// supplied.
var ErrSizeMismatch = errors.New("protracker: buffer size inconsistent with declared pattern/sample data")

// Sample holds one of a Module's 31 numbered instrument slots (plus the
// unused, always-silent slot 0).
type Sample struct {
	Name string

	// Length is the number of 8-bit PCM frames in Data.
	Length int

	// FineTune is a signed 1/8-semitone pitch adjustment in -8..+7.
	FineTune int

	// Volume is the sample's default playback volume, 0..64.
	Volume int

	RepeatOffset int
	RepeatLength int
	Loop         bool

	// Data holds the sample body as normalized floats in [-1, 1].
	Data []float32
}

// ChannelNote is the note data for one channel on one pattern line.
type ChannelNote struct {
	// Period is the 12-bit Amiga period; 0 means no new note on this line.
	Period int

	// Sample is 1..31, or 0 meaning no sample change.
	Sample int

	EffectType  byte
	EffectParam byte
}

// Pattern is 64 lines of NumChannels notes each, stored row-major.
type Pattern struct {
	Notes []ChannelNote // len == rowsPerPattern*NumChannels
}

// NoteAt returns the note for the given line and channel.
func (p *Pattern) NoteAt(line, channel, numChannels int) *ChannelNote {
	return &p.Notes[line*numChannels+channel]
}

// Module is the immutable, parsed representation of a MOD file.
type Module struct {
	Name        string
	NumChannels int

	// Samples is indexed 1..31; index 0 is an unused sentinel that is
	// always silent.
	Samples [numSamples]Sample

	SongLength   int
	PatternTable [numOrders]byte
	Patterns     []Pattern
}

// NewModuleFromBytes parses a Protracker MOD file held entirely in memory.
func NewModuleFromBytes(buf []byte) (*Module, error) {
	if len(buf) < 2048 {
		return nil, ErrShortBuffer
	}

	mod := &Module{NumChannels: numMODChannels}

	r := bytes.NewReader(buf)
	name := make([]byte, 20)
	if _, err := r.Read(name); err != nil {
		return nil, fmt.Errorf("protracker: reading song name: %w", err)
	}
	mod.Name = cleanName(string(name))

	sampleDataLen := 0
	for i := 1; i < numSamples; i++ {
		s, err := readSampleHeader(r)
		if err != nil {
			return nil, fmt.Errorf("protracker: reading sample %d header: %w", i, err)
		}
		mod.Samples[i] = *s
		sampleDataLen += s.Length
	}

	songHdr := struct {
		SongLength  byte
		RestartByte byte
		Order       [numOrders]byte
	}{}
	if err := binary.Read(r, binary.BigEndian, &songHdr); err != nil {
		return nil, fmt.Errorf("protracker: reading song order table: %w", err)
	}
	mod.SongLength = int(songHdr.SongLength)
	mod.PatternTable = songHdr.Order

	numPatterns := 0
	for i := 0; i < mod.SongLength; i++ {
		if idx := int(mod.PatternTable[i]); idx >= numPatterns {
			numPatterns = idx + 1
		}
	}

	// Signature is informational only for this format (see spec.md 4.1);
	// still consumed so pattern data starts at the right offset.
	sig := make([]byte, 4)
	if _, err := r.Read(sig); err != nil {
		return nil, fmt.Errorf("protracker: reading signature: %w", err)
	}
	dumpf("Title:\t\t%s\n", mod.Name)
	dumpf("Signature:\t%s\n", sig)
	dumpf("Patterns:\t%d\n", numPatterns)
	dumpf("Song length:\t%d\n", mod.SongLength)
	for i := 1; i < numSamples; i++ {
		s := &mod.Samples[i]
		dumpf("Sample %2d:\t%-22s len=%d finetune=%d vol=%d repeat=%d+%d\n",
			i, s.Name, s.Length, s.FineTune, s.Volume, s.RepeatOffset, s.RepeatLength)
	}

	expected := 1082 + 1024*numPatterns + sampleDataLen
	if len(buf) < expected {
		return nil, ErrSizeMismatch
	}

	mod.Patterns = make([]Pattern, numPatterns)
	rowBytes := make([]byte, mod.NumChannels*4)
	for i := 0; i < numPatterns; i++ {
		pat := Pattern{Notes: make([]ChannelNote, rowsPerPattern*mod.NumChannels)}
		dumpf("Pattern %d (x%02X)\n", i, i)
		for line := 0; line < rowsPerPattern; line++ {
			if _, err := r.Read(rowBytes); err != nil {
				return nil, fmt.Errorf("protracker: reading pattern %d line %d: %w", i, line, err)
			}
			for ch := 0; ch < mod.NumChannels; ch++ {
				n := decodeNote(rowBytes[ch*4 : ch*4+4])
				pat.Notes[line*mod.NumChannels+ch] = n
				dumpNote(n, ch, mod.NumChannels)
			}
			dumpf("\n")
		}
		mod.Patterns[i] = pat
	}

	for i := 1; i < numSamples; i++ {
		s := &mod.Samples[i]
		if s.Length == 0 {
			continue
		}

		// Some MOD files declare a sample longer than what remains in the
		// buffer; read whatever is left rather than failing the whole load.
		n := s.Length
		if remaining := r.Len(); n > remaining {
			n = remaining
		}

		raw := make([]byte, n)
		if _, err := r.Read(raw); err != nil {
			return nil, fmt.Errorf("protracker: reading sample %d data: %w", i, err)
		}

		s.Data = make([]float32, n)
		for j, b := range raw {
			s.Data[j] = float32(int8(b)) / 128.0
		}
		s.Length = n
	}

	return mod, nil
}

func readSampleHeader(r *bytes.Reader) (*Sample, error) {
	raw := struct {
		Name         [22]byte
		LengthWords  uint16
		FineTune     uint8
		Volume       uint8
		RepeatOffset uint16
		RepeatLength uint16
	}{}
	if err := binary.Read(r, binary.BigEndian, &raw); err != nil {
		return nil, err
	}

	s := &Sample{
		Name:         cleanName(string(raw.Name[:])),
		Length:       int(raw.LengthWords) * 2,
		FineTune:     signExtendNibble(raw.FineTune),
		Volume:       int(raw.Volume),
		RepeatOffset: int(raw.RepeatOffset) * 2,
		RepeatLength: int(raw.RepeatLength) * 2,
	}
	s.Loop = s.RepeatLength > 2

	return s, nil
}

// signExtendNibble interprets the low 4 bits of b as a signed nibble,
// producing a value in -8..+7.
func signExtendNibble(b uint8) int {
	n := int(b & 0xF)
	if n >= 8 {
		n -= 16
	}
	return n
}

// decodeNote unpacks the 4-byte packed note format described in spec.md 4.1.
func decodeNote(b []byte) ChannelNote {
	return ChannelNote{
		Sample:      int(b[0]&0xF0) | int(b[2]>>4),
		Period:      (int(b[0]&0x0F) << 8) | int(b[1]),
		EffectType:  b[2] & 0x0F,
		EffectParam: b[3],
	}
}

// cleanName strips trailing NUL padding and replaces non-printable bytes
// with spaces, matching how Protracker names arrive in the wild.
func cleanName(in string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r > 127 {
			return ' '
		}
		return r
	}, strings.TrimRight(in, "\x00"))
}
