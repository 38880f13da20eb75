// File: internal/infra/adapters/audio/ffmpeg.go
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"echobook/internal/domain/ports/adapter"
)

// CommandError is a failed external command with its captured output.
type CommandError struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with %d", e.Command, e.ExitCode)
	if s := lastLine(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &CommandError{Command: name, Args: args, ExitCode: code, Stderr: stderr.String(), Err: err}
	}
	return nil
}

// Compile-time checks
var (
	_ adapter.AudioAssembler   = (*MP3Assembler)(nil)
	_ adapter.SampleNormalizer = (*Normalizer)(nil)
)

// MP3Assembler joins WAV segments and transcodes the result to MP3 with ffmpeg.
type MP3Assembler struct {
	ffmpegPath string
	runner     commandRunner
	wav        *WAVAssembler
}

func NewMP3Assembler(ffmpegPath string) *MP3Assembler {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &MP3Assembler{ffmpegPath: ffmpegPath, runner: &execRunner{}, wav: NewWAVAssembler()}
}

func (a *MP3Assembler) Format() string { return "mp3" }

func (a *MP3Assembler) Assemble(ctx context.Context, segmentPaths []string, outPath string) error {
	joined := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".joined.wav"
	if err := a.wav.Assemble(ctx, segmentPaths, joined); err != nil {
		return err
	}
	defer os.Remove(joined)

	return a.runner.Run(ctx, a.ffmpegPath, buildMP3Args(joined, outPath)...)
}

func buildMP3Args(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-c:a", "libmp3lame",
		"-q:a", "2",
		outPath,
	}
}

// NewAssembler returns the assembler for an output format ("wav" or "mp3").
func NewAssembler(format, ffmpegPath string) (adapter.AudioAssembler, error) {
	switch strings.ToLower(format) {
	case "", "wav":
		return NewWAVAssembler(), nil
	case "mp3":
		return NewMP3Assembler(ffmpegPath), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// Normalizer converts voice samples to the provider's PCM WAV shape.
type Normalizer struct {
	ffmpegPath string
	runner     commandRunner
	probe      func(path string) (Format, error)
}

func NewNormalizer(ffmpegPath string) *Normalizer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Normalizer{ffmpegPath: ffmpegPath, runner: &execRunner{}, probe: ProbeWAV}
}

// Normalize writes the converted sample into dir and returns its path.
// A WAV that already has the target shape is used as is.
func (n *Normalizer) Normalize(ctx context.Context, srcPath, dir string, target adapter.SampleFormat) (string, error) {
	if f, err := n.probe(srcPath); err == nil && f.Matches(target.SampleRate, target.Channels, target.BitDepth) {
		return srcPath, nil
	}
	if target.BitDepth != 16 {
		return "", fmt.Errorf("unsupported sample bit depth %d", target.BitDepth)
	}

	out := filepath.Join(dir, "normalized.wav")
	if err := n.runner.Run(ctx, n.ffmpegPath, buildNormalizeArgs(srcPath, out, target)...); err != nil {
		return "", err
	}
	return out, nil
}

func buildNormalizeArgs(inputPath, outPath string, target adapter.SampleFormat) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", strconv.Itoa(target.Channels),
		"-ar", strconv.Itoa(target.SampleRate),
		"-c:a", "pcm_s16le",
		outPath,
	}
}
