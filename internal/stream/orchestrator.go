// Package stream wires segmentation and synthesis into an ordered pipeline:
// text fragments in, (audio, text) pairs out, with bounded cancellation.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/go-nano-tts/internal/audio"
	"github.com/example/go-nano-tts/internal/engine"
	"github.com/example/go-nano-tts/internal/segment"
	"github.com/example/go-nano-tts/internal/text"
	"github.com/example/go-nano-tts/internal/token"
)

// DefaultDetachGrace bounds how long cancellation waits for a synthesis call
// that ignores its context before abandoning it.
const DefaultDetachGrace = 200 * time.Millisecond

// errHalt signals that a synthesis failure was already delivered to the
// consumer and the pipeline should stop without reporting it twice.
var errHalt = errors.New("pipeline halted")

// ErrSessionActive is returned by Stream when another session on the same
// orchestrator has not finished yet.
var ErrSessionActive = errors.New("stream: a session is already active")

// Options configures an Orchestrator. Engine is required; everything else
// has usable defaults.
type Options struct {
	// Engine synthesizes segments. The orchestrator does not close it.
	Engine engine.Engine
	// Counter feeds the segmenter's thresholds. Defaults to the heuristic
	// word counter.
	Counter token.Counter
	// Segmenter holds the boundary thresholds. Zero value means defaults.
	Segmenter segment.Config
	// Output, when non-nil, is the spec every delivered chunk is converted
	// to. Nil delivers the engine's native output.
	Output *audio.Spec
	// PreHook, when non-nil, rewrites segment text before cleanup and
	// synthesis. A PreHook error terminates the stream. Delivered text is
	// always the verbatim segment text.
	PreHook func(ctx context.Context, text string) (string, error)
	// CleanMarkdown strips markdown formatting from text sent to the engine.
	CleanMarkdown bool
	// DetachGrace overrides DefaultDetachGrace.
	DetachGrace time.Duration
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Orchestrator runs streaming synthesis sessions. One session is active at a
// time per orchestrator.
type Orchestrator struct {
	opts Options
	log  *slog.Logger

	mu     sync.Mutex
	active *Stream
}

// New validates opts and returns an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Engine == nil {
		return nil, errors.New("stream: Engine is required")
	}
	if opts.Segmenter == (segment.Config{}) {
		opts.Segmenter = segment.DefaultConfig()
	}
	if err := opts.Segmenter.Validate(); err != nil {
		return nil, err
	}
	if opts.Output != nil {
		if err := opts.Output.Validate(); err != nil {
			return nil, err
		}
	}
	if opts.DetachGrace <= 0 {
		opts.DetachGrace = DefaultDetachGrace
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{opts: opts, log: log}, nil
}

// item is one delivery slot: either a synthesized pair or a terminal error.
type item struct {
	chunk audio.Chunk
	text  string
	err   error
}

// Stream is one in-flight synthesis session.
type Stream struct {
	out    chan item
	cancel context.CancelFunc

	// termErr holds a producer-side fatal error. It is set before out is
	// closed so Next can report it no matter when the consumer catches up.
	mu      sync.Mutex
	termErr error
}

// Stream starts a session consuming text fragments from source until it is
// closed. Results are read with Next. It fails with ErrSessionActive while a
// previous session on this orchestrator is still running.
func (o *Orchestrator) Stream(ctx context.Context, source <-chan string) (*Stream, error) {
	seg, err := segment.New(o.opts.Segmenter, o.opts.Counter)
	if err != nil {
		return nil, err
	}

	gctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(gctx)

	s := &Stream{
		// Unbuffered: the worker holds at most one finished chunk while the
		// consumer is busy, so synthesis stays one segment ahead of playback.
		out:    make(chan item),
		cancel: cancel,
	}

	o.mu.Lock()
	if o.active != nil {
		o.mu.Unlock()
		cancel()
		return nil, ErrSessionActive
	}
	o.active = s
	o.mu.Unlock()

	segCh := make(chan segment.Segment)

	g.Go(func() error {
		defer close(segCh)
		return o.produce(gctx, seg, source, segCh)
	})
	g.Go(func() error {
		return o.synthesize(gctx, segCh, s.out)
	})

	go func() {
		err := g.Wait()
		if err != nil && !errors.Is(err, errHalt) && !errors.Is(err, context.Canceled) {
			s.mu.Lock()
			s.termErr = err
			s.mu.Unlock()
		}
		o.mu.Lock()
		if o.active == s {
			o.active = nil
		}
		o.mu.Unlock()
		cancel()
		close(s.out)
	}()

	return s, nil
}

// StreamText runs a session over a complete string.
func (o *Orchestrator) StreamText(ctx context.Context, input string) (*Stream, error) {
	return o.Stream(ctx, FromString(input))
}

// Cancel aborts the active session, if any. Safe to call concurrently with
// Next.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	s := o.active
	o.mu.Unlock()
	if s != nil {
		s.Cancel()
	}
}

// Next blocks for the next (audio, text) pair in segment order. It returns
// io.EOF once the session has drained, or the pipeline's terminal error.
// A terminal error is sticky: every Next after it reports the same error.
func (s *Stream) Next(ctx context.Context) (audio.Chunk, string, error) {
	select {
	case it, ok := <-s.out:
		if !ok {
			s.mu.Lock()
			err := s.termErr
			s.mu.Unlock()
			if err != nil {
				return audio.Chunk{}, "", err
			}
			return audio.Chunk{}, "", io.EOF
		}
		if it.err != nil {
			return audio.Chunk{}, "", it.err
		}
		return it.chunk, it.text, nil
	case <-ctx.Done():
		return audio.Chunk{}, "", ctx.Err()
	}
}

// Cancel aborts the session. Pending Next calls return promptly.
func (s *Stream) Cancel() { s.cancel() }

// produce feeds source fragments into the segmenter and forwards decided
// segments, flushing the buffer when input goes idle.
func (o *Orchestrator) produce(ctx context.Context, seg *segment.Segmenter, source <-chan string, segCh chan<- segment.Segment) error {
	push := func(s segment.Segment) error {
		o.log.Debug("segment decided", "id", s.ID, "tier", s.Tier.String(), "bytes", len(s.Text))
		select {
		case segCh <- s:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	idle := o.opts.Segmenter.IdleTimeout
	for {
		var idleC <-chan time.Time
		if idle > 0 && seg.Buffered() > 0 {
			idleC = time.After(idle)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case frag, ok := <-source:
			if !ok {
				if tail := seg.Finish(); tail != nil {
					return push(*tail)
				}
				return nil
			}
			segs, err := seg.Feed(frag)
			for _, s := range segs {
				if perr := push(s); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}

		case <-idleC:
			if flush := seg.IdleCheck(); flush != nil {
				if err := push(*flush); err != nil {
					return err
				}
			}
		}
	}
}

// synthesize runs segments through the engine one at a time, preserving
// segment order, and hands finished pairs to the consumer.
func (o *Orchestrator) synthesize(ctx context.Context, segCh <-chan segment.Segment, out chan<- item) error {
	for {
		var seg segment.Segment
		var ok bool
		select {
		case seg, ok = <-segCh:
			if !ok {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}

		input, err := o.prepare(ctx, seg.Text)
		if err != nil {
			select {
			case out <- item{err: err}:
			case <-ctx.Done():
			}
			return errHalt
		}
		if input == "" {
			continue
		}

		start := time.Now()
		chunk, err := o.synthDetached(ctx, input)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			serr := &engine.SynthError{Engine: engineName(o.opts.Engine), Text: input, Err: err}
			o.log.Error("synthesis failed", "segment", seg.ID, "error", err)
			select {
			case out <- item{err: serr}:
			case <-ctx.Done():
			}
			return errHalt
		}

		if o.opts.Output != nil {
			chunk, err = audio.Convert(chunk, *o.opts.Output)
			if err != nil {
				select {
				case out <- item{err: err}:
				case <-ctx.Done():
				}
				return errHalt
			}
		}

		o.log.Debug("segment synthesized",
			"segment", seg.ID,
			"tier", seg.Tier.String(),
			"bytes", len(chunk.Data),
			"took", time.Since(start))

		select {
		case out <- item{chunk: chunk, text: seg.Text}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// prepare derives the text actually sent to the engine from the verbatim
// segment text.
func (o *Orchestrator) prepare(ctx context.Context, s string) (string, error) {
	if o.opts.PreHook != nil {
		rewritten, err := o.opts.PreHook(ctx, s)
		if err != nil {
			return "", fmt.Errorf("pre-hook: %w", err)
		}
		s = rewritten
	}
	if o.opts.CleanMarkdown {
		s = text.StripMarkdown(s)
	}
	s = text.Normalize(s)
	return strings.TrimSpace(s), nil
}

// synthDetached calls the engine and enforces bounded cancellation: when ctx
// is canceled it waits at most DetachGrace for the call to return, then
// abandons the goroutine.
func (o *Orchestrator) synthDetached(ctx context.Context, input string) (audio.Chunk, error) {
	type result struct {
		chunk audio.Chunk
		err   error
	}
	done := make(chan result, 1)
	go func() {
		chunk, err := o.opts.Engine.Synth(ctx, input, o.opts.Output)
		done <- result{chunk, err}
	}()

	select {
	case r := <-done:
		return r.chunk, r.err
	case <-ctx.Done():
	}

	timer := time.NewTimer(o.opts.DetachGrace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		o.log.Warn("abandoning synthesis call that ignored cancellation")
	}
	return audio.Chunk{}, ctx.Err()
}

func engineName(e engine.Engine) string {
	type named interface{ Name() string }
	if n, ok := e.(named); ok {
		return n.Name()
	}
	return "engine"
}
