// Package wav is a _very_ simple WAVE file writer. It doesn't require
// knowing the quantity of audio data up front: it writes placeholder
// chunk sizes and comes back to fill them in on Finish.
// See http://soundfile.sapp.org/doc/WaveFormat/ for format documentation.
package wav

import (
	"encoding/binary"
	"errors"
	"io"
)

const wavTypePCM = 1

// ErrInvalidChunkHeaderLength means that the provided chunk name was not
// 4 characters.
var ErrInvalidChunkHeaderLength = errors.New("wav: chunk header name is not 4 characters")

// A Writer writes a WAV file into WS.
type Writer struct {
	WS       io.WriteSeeker
	channels int
}

type format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// NewWriter returns a Writer that writes a 16-bit PCM WAV file with the
// given sample rate and channel count (1 or 2) to ws.
func NewWriter(ws io.WriteSeeker, sampleRate, channels int) (*Writer, error) {
	writer := &Writer{WS: ws, channels: channels}

	// Zero length for now, come back and fill this in on Finish.
	if err := writer.writeChunkHeader("RIFF", 0); err != nil {
		return nil, err
	}

	if _, err := ws.Write([]byte("WAVE")); err != nil {
		return nil, err
	}

	if err := writer.writeChunkHeader("fmt ", 16); err != nil {
		return nil, err
	}
	fmtChunk := format{AudioFormat: wavTypePCM, Channels: uint16(channels), SampleRate: uint32(sampleRate), BitsPerSample: 16}
	fmtChunk.ByteRate = uint32(sampleRate) * uint32(channels) * (16 / 8)
	fmtChunk.BlockAlign = uint16(channels) * (16 / 8)
	if err := binary.Write(ws, binary.LittleEndian, fmtChunk); err != nil {
		return nil, err
	}

	if err := writer.writeChunkHeader("data", 0); err != nil {
		return nil, err
	}

	return writer, nil
}

// WriteFrame writes the provided interleaved samples to w.
func (w *Writer) WriteFrame(samples []int16) error {
	return binary.Write(w.WS, binary.LittleEndian, samples)
}

// Finish must be called when all data has been written to the writer. It
// backpatches the RIFF and data chunk sizes now that the total length is
// known.
func (w *Writer) Finish() (int64, error) {
	wlen, err := w.WS.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}

	offset, err := w.WS.Seek(4, io.SeekStart)
	if offset != 4 || err != nil {
		return 0, err
	}
	if err := binary.Write(w.WS, binary.LittleEndian, int32(wlen-8)); err != nil {
		return 0, err
	}
	offset, err = w.WS.Seek(40, io.SeekStart)
	if offset != 40 || err != nil {
		return 0, err
	}
	if err := binary.Write(w.WS, binary.LittleEndian, int32(wlen-44)); err != nil {
		return 0, err
	}

	return wlen, nil
}

func (w *Writer) writeChunkHeader(chunk string, initialSize int) error {
	if len(chunk) != 4 {
		return ErrInvalidChunkHeaderLength
	}

	if n, err := w.WS.Write([]byte(chunk)); n != 4 || err != nil {
		return err
	}

	return binary.Write(w.WS, binary.LittleEndian, int32(initialSize))
}
