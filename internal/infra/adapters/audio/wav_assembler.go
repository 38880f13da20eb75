// File: internal/infra/adapters/audio/wav_assembler.go
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"echobook/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AudioAssembler = (*WAVAssembler)(nil)

// WAVAssembler concatenates WAV segments that share one PCM format.
type WAVAssembler struct{}

func NewWAVAssembler() *WAVAssembler { return &WAVAssembler{} }

func (a *WAVAssembler) Format() string { return "wav" }

// Assemble joins segmentPaths in the given order into outPath.
func (a *WAVAssembler) Assemble(ctx context.Context, segmentPaths []string, outPath string) error {
	if len(segmentPaths) == 0 {
		return errors.New("no audio segments to assemble")
	}

	var combined *goaudio.IntBuffer
	var first Format
	for i, p := range segmentPaths {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf, format, err := readPCM(p)
		if err != nil {
			return err
		}
		if i == 0 {
			combined, first = buf, format
			continue
		}
		if !format.Matches(first.SampleRate, first.Channels, first.BitDepth) {
			return fmt.Errorf("segment %s is %d Hz/%d ch/%d bit, expected %d Hz/%d ch/%d bit",
				p, format.SampleRate, format.Channels, format.BitDepth,
				first.SampleRate, first.Channels, first.BitDepth)
		}
		combined.Data = append(combined.Data, buf.Data...)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	if err := writeWAV(out, combined, first.BitDepth); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func readPCM(path string) (*goaudio.IntBuffer, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Format{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, Format{}, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}
	format := Format{
		SampleRate:  int(d.SampleRate),
		Channels:    int(d.NumChans),
		BitDepth:    int(d.BitDepth),
		AudioFormat: int(d.WavAudioFormat),
	}
	if format.AudioFormat != wavPCM {
		return nil, Format{}, fmt.Errorf("%s: unsupported wav encoding %d", path, format.AudioFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, Format{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return buf, format, nil
}
