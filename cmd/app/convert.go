package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"echobook/internal/usecase"
)

var convertVoice string

var convertCmd = &cobra.Command{
	Use:   "convert <file.pdf>",
	Short: "Convert one PDF synchronously and print the artifact location",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertVoice, "voice", "", "voice id (defaults to provider.default_voice or the first listed voice)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src := args[0]
	if !strings.EqualFold(filepath.Ext(src), ".pdf") {
		return fmt.Errorf("we only support .pdf for now")
	}
	if _, err := os.Stat(src); err != nil {
		return err
	}

	d, err := loadDeps(ctx)
	if err != nil {
		return err
	}
	voice := strings.TrimSpace(convertVoice)
	if voice == "" {
		if voice, err = usecase.ResolveDefaultVoice(ctx, d.cfg.Provider, d.voices); err != nil {
			return err
		}
	}

	id := uuid.NewString()
	dir := filepath.Join(d.cfg.Storage.JobsDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	res, err := d.conversion.Run(ctx, usecase.Request{JobID: id, SourcePath: src, OutputDir: dir, VoiceID: voice})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d pages)\n", res.OutputPath, res.Pages)
	return nil
}
