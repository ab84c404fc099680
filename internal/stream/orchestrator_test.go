package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/example/go-nano-tts/internal/audio"
	"github.com/example/go-nano-tts/internal/engine"
	"github.com/example/go-nano-tts/internal/segment"
	"github.com/example/go-nano-tts/internal/token"
)

// echoEngine answers every segment with a payload derived from its text, so
// tests can match deliveries back to inputs.
func echoEngine(delay func() time.Duration) engine.Engine {
	return engine.Func(func(ctx context.Context, text string, target *audio.Spec) (audio.Chunk, error) {
		if delay != nil {
			select {
			case <-time.After(delay()):
			case <-ctx.Done():
				return audio.Chunk{}, ctx.Err()
			}
		}
		return audio.Chunk{Data: []byte("AUDIO:" + text), Spec: audio.DefaultSpec()}, nil
	})
}

func drain(t *testing.T, s *Stream) []string {
	t.Helper()
	var texts []string
	for {
		chunk, text, err := s.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return texts
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		want := "AUDIO:" + strings.TrimSpace(text)
		if string(chunk.Data) != want {
			t.Errorf("chunk %q does not match its text %q", chunk.Data, text)
		}
		texts = append(texts, text)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("New without an engine succeeded")
	}
	if _, err := New(Options{Engine: echoEngine(nil), Segmenter: segment.Config{MinTokens: -1}}); !errors.Is(err, segment.ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
	bad := audio.Spec{Codec: audio.CodecPCM, SampleRate: 16000, Channels: 7, SampleWidth: 16}
	if _, err := New(Options{Engine: echoEngine(nil), Output: &bad}); !errors.Is(err, audio.ErrInvalidSpec) {
		t.Fatalf("error = %v, want ErrInvalidSpec", err)
	}
}

func TestOrderedDeliveryUnderJitter(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	orch, err := New(Options{
		Engine:    echoEngine(func() time.Duration { return time.Duration(rng.Intn(8)) * time.Millisecond }),
		Segmenter: segment.Config{MinTokens: 2, MaxTokens: 10},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const input = "One two three. Four five six. Seven eight nine. Ten eleven"
	s, err := orch.StreamText(context.Background(), input)
	if err != nil {
		t.Fatalf("StreamText: %v", err)
	}

	texts := drain(t, s)
	if len(texts) < 3 {
		t.Fatalf("got %d deliveries, want at least 3: %q", len(texts), texts)
	}
	if got := strings.Join(texts, ""); got != input {
		t.Errorf("deliveries out of order or lossy:\n got %q\nwant %q", got, input)
	}
}

func TestIncrementalSourceMatchesCompleteText(t *testing.T) {
	const input = "Short opener here. Then a second sentence follows. Tail bit"

	run := func(source <-chan string) []string {
		orch, err := New(Options{
			Engine:    echoEngine(nil),
			Segmenter: segment.Config{MinTokens: 2, MaxTokens: 10},
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		s, err := orch.Stream(context.Background(), source)
		if err != nil {
			t.Fatalf("Stream: %v", err)
		}
		return drain(t, s)
	}

	var chunks []string
	for i := 0; i < len(input); i += 9 {
		chunks = append(chunks, input[i:min(i+9, len(input))])
	}

	whole := run(FromString(input))
	incremental := run(FromSlice(chunks))

	if fmt.Sprint(whole) != fmt.Sprint(incremental) {
		t.Errorf("chunked feeding changed segmentation:\n whole: %q\n split: %q", whole, incremental)
	}
}

func TestIdleFlush(t *testing.T) {
	orch, err := New(Options{
		Engine:    echoEngine(nil),
		Segmenter: segment.Config{MinTokens: 50, MaxTokens: 100, IdleTimeout: 40 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	source := make(chan string)
	s, err := orch.Stream(context.Background(), source)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	source <- "a trailing partial thought"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, text, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if text != "a trailing partial thought" {
		t.Errorf("flushed text = %q", text)
	}

	close(source)
	if _, _, err := s.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("Next after close = %v, want io.EOF", err)
	}
}

func TestCancelIsBoundedByDetachGrace(t *testing.T) {
	stuck := engine.Func(func(ctx context.Context, text string, target *audio.Spec) (audio.Chunk, error) {
		<-make(chan struct{}) // ignores ctx on purpose
		return audio.Chunk{}, nil
	})

	orch, err := New(Options{
		Engine:      stuck,
		Segmenter:   segment.Config{MinTokens: 1, MaxTokens: 10},
		DetachGrace: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s, err := orch.StreamText(context.Background(), "this call will never return.")
	if err != nil {
		t.Fatalf("StreamText: %v", err)
	}

	time.Sleep(50 * time.Millisecond) // let the worker enter Synth
	start := time.Now()
	orch.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, _, err := s.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("Next after cancel = %v, want io.EOF", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v, want well under a second", elapsed)
	}
}

func TestEngineErrorTerminatesInOrder(t *testing.T) {
	boom := errors.New("voice model crashed")
	eng := engine.Func(func(ctx context.Context, text string, target *audio.Spec) (audio.Chunk, error) {
		if strings.Contains(text, "boom") {
			return audio.Chunk{}, boom
		}
		return audio.Chunk{Data: []byte("AUDIO:" + text), Spec: audio.DefaultSpec()}, nil
	})

	orch, err := New(Options{Engine: eng, Segmenter: segment.Config{MinTokens: 2, MaxTokens: 10}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := orch.StreamText(context.Background(), "The first part is fine. Then boom happens here.")
	if err != nil {
		t.Fatalf("StreamText: %v", err)
	}

	ctx := context.Background()
	_, text, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if strings.TrimSpace(text) != "The first part is fine." {
		t.Errorf("first delivery = %q", text)
	}

	_, _, err = s.Next(ctx)
	var serr *engine.SynthError
	if !errors.As(err, &serr) {
		t.Fatalf("second Next = %v, want SynthError", err)
	}
	if !errors.Is(err, boom) {
		t.Error("SynthError does not unwrap to the backend failure")
	}

	if _, _, err := s.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("Next after error = %v, want io.EOF", err)
	}
}

func TestCounterErrorReachesSlowConsumer(t *testing.T) {
	countErr := fmt.Errorf("%w: model file vanished", token.ErrTokenize)
	counter := token.Func(func(s string) (int, error) {
		if strings.Contains(s, "corrupt") {
			return 0, countErr
		}
		return token.WordCounter{}.Count(s)
	})

	orch, err := New(Options{
		Engine:      echoEngine(nil),
		Counter:     counter,
		Segmenter:   segment.Config{MinTokens: 2, MaxTokens: 10},
		DetachGrace: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s, err := orch.Stream(context.Background(), FromSlice([]string{
		"The first sentence is fine. ",
		"then corrupt data arrives",
	}))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	// A consumer busy with the previous chunk must still see the failure,
	// well past any internal grace window.
	time.Sleep(300 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, _, err := s.Next(ctx)
		if err == nil {
			continue // deliveries decided before the failure are fine
		}
		if errors.Is(err, io.EOF) {
			t.Fatal("Next = io.EOF, want the tokenization error")
		}
		if !errors.Is(err, countErr) {
			t.Fatalf("Next = %v, want the tokenization error", err)
		}
		break
	}

	// The terminal error is sticky.
	if _, _, err := s.Next(ctx); !errors.Is(err, countErr) {
		t.Fatalf("repeated Next = %v, want the tokenization error again", err)
	}
}

func TestSecondConcurrentStreamRejected(t *testing.T) {
	orch, err := New(Options{Engine: echoEngine(nil)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	source := make(chan string)
	first, err := orch.Stream(context.Background(), source)
	if err != nil {
		t.Fatalf("first Stream: %v", err)
	}

	if _, err := orch.Stream(context.Background(), FromString("too early.")); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second Stream = %v, want ErrSessionActive", err)
	}

	close(source)
	if _, _, err := first.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("Next = %v, want io.EOF", err)
	}

	// Once the first session has drained, a new one may start.
	second, err := orch.StreamText(context.Background(), "now it is free.")
	if err != nil {
		t.Fatalf("Stream after drain: %v", err)
	}
	drainAll(second)
}

func TestWhitespaceOnlyInputYieldsNothing(t *testing.T) {
	orch, err := New(Options{Engine: echoEngine(nil)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := orch.StreamText(context.Background(), "   \n\t  ")
	if err != nil {
		t.Fatalf("StreamText: %v", err)
	}
	if _, _, err := s.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("Next = %v, want io.EOF", err)
	}
}

func TestMarkdownCleanupReachesEngineOnly(t *testing.T) {
	var received []string
	eng := engine.Func(func(ctx context.Context, text string, target *audio.Spec) (audio.Chunk, error) {
		received = append(received, text)
		return audio.Chunk{Data: []byte("x"), Spec: audio.DefaultSpec()}, nil
	})

	orch, err := New(Options{
		Engine:        eng,
		Segmenter:     segment.Config{MinTokens: 1, MaxTokens: 50},
		CleanMarkdown: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := orch.StreamText(context.Background(), "This is **bold** text.")
	if err != nil {
		t.Fatalf("StreamText: %v", err)
	}

	_, text, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if text != "This is **bold** text." {
		t.Errorf("delivered text = %q, want the verbatim input", text)
	}
	if _, _, err := s.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("Next = %v, want io.EOF", err)
	}
	if len(received) != 1 || received[0] != "This is bold text." {
		t.Errorf("engine received %q, want cleaned text", received)
	}
}

func TestPreHookRewritesEngineInput(t *testing.T) {
	var received []string
	eng := engine.Func(func(ctx context.Context, text string, target *audio.Spec) (audio.Chunk, error) {
		received = append(received, text)
		return audio.Chunk{Data: []byte("x"), Spec: audio.DefaultSpec()}, nil
	})

	orch, err := New(Options{
		Engine:    eng,
		Segmenter: segment.Config{MinTokens: 1, MaxTokens: 50},
		PreHook: func(_ context.Context, s string) (string, error) {
			return strings.ToUpper(s), nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := orch.StreamText(context.Background(), "quiet words.")
	if err != nil {
		t.Fatalf("StreamText: %v", err)
	}
	drainAll(s)

	if len(received) != 1 || received[0] != "QUIET WORDS." {
		t.Errorf("engine received %q, want upper-cased text", received)
	}
}

func TestPreHookErrorTerminatesStream(t *testing.T) {
	hookErr := errors.New("rewrite service unavailable")
	orch, err := New(Options{
		Engine:    echoEngine(nil),
		Segmenter: segment.Config{MinTokens: 1, MaxTokens: 50},
		PreHook: func(_ context.Context, _ string) (string, error) {
			return "", hookErr
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := orch.StreamText(context.Background(), "doomed words.")
	if err != nil {
		t.Fatalf("StreamText: %v", err)
	}

	if _, _, err := s.Next(context.Background()); !errors.Is(err, hookErr) {
		t.Fatalf("Next = %v, want the hook error", err)
	}
	if _, _, err := s.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("Next after error = %v, want io.EOF", err)
	}
}

func TestOutputConversion(t *testing.T) {
	native := audio.Spec{Codec: audio.CodecPCM, SampleRate: 16000, Channels: 1, SampleWidth: 16}
	eng := engine.Func(func(ctx context.Context, text string, target *audio.Spec) (audio.Chunk, error) {
		return audio.Chunk{Data: make([]byte, 400), Spec: native}, nil
	})

	out := audio.Spec{Codec: audio.CodecPCM, SampleRate: 8000, Channels: 1, SampleWidth: 16}
	orch, err := New(Options{
		Engine:    eng,
		Segmenter: segment.Config{MinTokens: 1, MaxTokens: 50},
		Output:    &out,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := orch.StreamText(context.Background(), "resample me.")
	if err != nil {
		t.Fatalf("StreamText: %v", err)
	}

	chunk, _, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if chunk.Spec != out {
		t.Errorf("delivered spec = %v, want %v", chunk.Spec, out)
	}
	if len(chunk.Data) == 0 || len(chunk.Data) >= 400 {
		t.Errorf("downsampled size = %d, want shorter than 400", len(chunk.Data))
	}
}

func drainAll(s *Stream) {
	for {
		if _, _, err := s.Next(context.Background()); err != nil {
			return
		}
	}
}
