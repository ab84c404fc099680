package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/go-nano-tts/internal/audio"
	"github.com/example/go-nano-tts/internal/engine"
	"github.com/example/go-nano-tts/internal/player"
	"github.com/example/go-nano-tts/internal/stream"
)

func newSpeakCmd() *cobra.Command {
	var text string
	var out string
	var play bool
	var cleanMarkdown bool

	cmd := &cobra.Command{
		Use:   "speak",
		Short: "Synthesize text to WAV, segment by segment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			input, err := readInputText(text, os.Stdin)
			if err != nil {
				return err
			}

			counter, err := cfg.BuildCounter()
			if err != nil {
				return err
			}

			eng, err := engine.Default().Resolve(cmd.Context(), cfg.Engine.Name, cfg.EngineOptions())
			if err != nil {
				return err
			}
			defer eng.Close()

			outSpec := cfg.OutputSpec()
			orch, err := stream.New(stream.Options{
				Engine:        eng,
				Counter:       counter,
				Segmenter:     cfg.SegmentConfig(),
				Output:        &outSpec,
				CleanMarkdown: cleanMarkdown,
			})
			if err != nil {
				return err
			}

			s, err := orch.StreamText(cmd.Context(), input)
			if err != nil {
				return err
			}

			var sink chunkSink
			switch {
			case play:
				dev, perr := player.New(outSpec)
				if perr != nil {
					return perr
				}
				sink = &playSink{dev: dev}
			case out == "-":
				sink = &stdoutSink{w: cmd.OutOrStdout(), spec: outSpec}
			default:
				sink = &fileSink{path: out, spec: outSpec}
			}

			for {
				chunk, _, nerr := s.Next(cmd.Context())
				if errors.Is(nerr, io.EOF) {
					break
				}
				if nerr != nil {
					s.Cancel()
					return nerr
				}
				if werr := sink.consume(cmd.Context(), chunk); werr != nil {
					s.Cancel()
					return werr
				}
			}

			return sink.finish()
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize (if empty, read from stdin)")
	cmd.Flags().StringVar(&out, "out", "out.wav", "Output WAV path ('-' for streaming stdout)")
	cmd.Flags().BoolVar(&play, "play", false, "Play on the local audio device instead of writing a file")
	cmd.Flags().BoolVar(&cleanMarkdown, "clean-markdown", false, "Strip markdown formatting before synthesis")

	return cmd
}

// chunkSink receives delivered chunks as they arrive and finalizes once the
// stream drains.
type chunkSink interface {
	consume(ctx context.Context, chunk audio.Chunk) error
	finish() error
}

// stdoutSink writes a streaming WAV: header first with unknown-length
// markers, then raw PCM as it is synthesized.
type stdoutSink struct {
	w           io.Writer
	spec        audio.Spec
	wroteHeader bool
}

func (s *stdoutSink) consume(_ context.Context, chunk audio.Chunk) error {
	if !s.wroteHeader {
		if _, err := audio.WriteWAVHeaderStreaming(s.w, s.spec); err != nil {
			return err
		}
		s.wroteHeader = true
	}
	_, err := s.w.Write(chunk.Data)
	return err
}

func (s *stdoutSink) finish() error { return nil }

// fileSink buffers all PCM and writes one well-formed WAV at the end.
type fileSink struct {
	path string
	spec audio.Spec
	pcm  bytes.Buffer
}

func (s *fileSink) consume(_ context.Context, chunk audio.Chunk) error {
	_, err := s.pcm.Write(chunk.Data)
	return err
}

func (s *fileSink) finish() error {
	if s.pcm.Len() == 0 {
		return fmt.Errorf("synthesis produced no audio")
	}
	samples, err := audio.PCMToSamples(s.pcm.Bytes(), s.spec.SampleWidth)
	if err != nil {
		return err
	}
	wavData, err := audio.EncodeWAV(samples, s.spec)
	if err != nil {
		return fmt.Errorf("encode WAV: %w", err)
	}
	return os.WriteFile(s.path, wavData, 0o644)
}

type playSink struct {
	dev *player.Player
}

func (s *playSink) consume(ctx context.Context, chunk audio.Chunk) error {
	return s.dev.Play(ctx, chunk)
}

func (s *playSink) finish() error { return nil }

func readInputText(text string, stdin io.Reader) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	input := string(b)
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("either provide --text or pipe text on stdin")
	}
	return input, nil
}
