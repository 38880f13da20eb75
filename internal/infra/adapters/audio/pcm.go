// File: internal/infra/adapters/audio/pcm.go
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNotWAV is returned when a file is not a readable RIFF/WAVE stream.
var ErrNotWAV = errors.New("not a wav file")

// wavPCM is the WAVE format tag for uncompressed integer PCM.
const wavPCM = 1

// Format describes a WAV stream header.
type Format struct {
	SampleRate  int
	Channels    int
	BitDepth    int
	AudioFormat int
}

// Matches reports whether f is integer PCM with the given shape.
func (f Format) Matches(sampleRate, channels, bitDepth int) bool {
	return f.AudioFormat == wavPCM && f.SampleRate == sampleRate && f.Channels == channels && f.BitDepth == bitDepth
}

// ProbeWAV reads the header of the WAV file at path.
func ProbeWAV(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Format{}, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}
	return Format{
		SampleRate:  int(d.SampleRate),
		Channels:    int(d.NumChans),
		BitDepth:    int(d.BitDepth),
		AudioFormat: int(d.WavAudioFormat),
	}, nil
}

// EncodePCM16 wraps raw little-endian 16-bit PCM into a WAV container.
func EncodePCM16(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, errors.New("pcm16 payload has odd length")
	}
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buf := &goaudio.IntBuffer{
		Data:           samples,
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}

	// the encoder needs a WriteSeeker to patch sizes into the header
	tmp, err := os.CreateTemp("", "echobook-pcm-*.wav")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := writeWAV(tmp, buf, 16); err != nil {
		return nil, err
	}
	return os.ReadFile(tmp.Name())
}

func writeWAV(f *os.File, buf *goaudio.IntBuffer, bitDepth int) error {
	enc := wav.NewEncoder(f, buf.Format.SampleRate, bitDepth, buf.Format.NumChannels, wavPCM)
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}
