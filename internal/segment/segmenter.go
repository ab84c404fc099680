package segment

import (
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/example/go-nano-tts/internal/token"
)

// Segmenter buffers incoming text fragments and decides segment boundaries.
// It is owned by a single stream and is not safe for concurrent use.
type Segmenter struct {
	cfg     Config
	counter token.Counter

	buf         string
	count       int // cached token count of buf
	lastArrival time.Time
	nextID      int
	closed      bool
}

// New validates cfg eagerly and returns a fresh Segmenter. counter defaults
// to the heuristic word counter when nil.
func New(cfg Config, counter token.Counter) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if counter == nil {
		counter = token.WordCounter{}
	}
	return &Segmenter{cfg: cfg, counter: counter, lastArrival: time.Now()}, nil
}

// Feed appends a fragment to the buffer and returns the segments decided by
// it, in order. The fragment is consumed in word-sized steps so a complete
// string produces the same boundaries as the same text fed incrementally.
func (s *Segmenter) Feed(fragment string) ([]Segment, error) {
	if s.closed {
		return nil, ErrClosed
	}
	s.lastArrival = time.Now()
	if fragment == "" {
		return nil, nil
	}

	var out []Segment
	for _, piece := range pieces(fragment) {
		s.buf += piece
		n, err := s.counter.Count(s.buf)
		if err != nil {
			return out, err
		}
		s.count = n

		for s.count >= s.cfg.MinTokens {
			seg, err := s.cut()
			if err != nil {
				return out, err
			}
			if seg == nil {
				break
			}
			out = append(out, *seg)
		}
	}
	return out, nil
}

// IdleCheck force-flushes the buffer after input has been silent for the
// configured idle timeout. The orchestrator calls this; a nil return means
// there was nothing to flush.
func (s *Segmenter) IdleCheck() *Segment {
	if s.closed {
		return nil
	}
	return s.flush()
}

// Finish flushes any remaining buffer content and closes the segmenter.
// Further Feed calls return ErrClosed.
func (s *Segmenter) Finish() *Segment {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.flush()
}

// LastArrival reports when text last arrived.
func (s *Segmenter) LastArrival() time.Time { return s.lastArrival }

// Buffered reports how many bytes are waiting for a boundary decision.
func (s *Segmenter) Buffered() int { return len(s.buf) }

func (s *Segmenter) flush() *Segment {
	if s.buf == "" {
		return nil
	}
	seg := &Segment{ID: s.nextID, Text: s.buf, Tier: TierFlush}
	s.nextID++
	s.buf = ""
	s.count = 0
	return seg
}

// cut evaluates the boundary tiers against the current buffer. The caller
// guarantees count >= MinTokens. Returns nil when no tier qualifies.
func (s *Segmenter) cut() (*Segment, error) {
	end, ok, err := s.sentenceBoundary()
	if err != nil {
		return nil, err
	}
	if ok {
		return s.emit(end, TierSentence)
	}

	if s.count < s.cfg.MaxTokens {
		return nil, nil
	}

	end, ok, err = s.commaBoundary()
	if err != nil {
		return nil, err
	}
	if ok {
		return s.emit(end, TierComma)
	}

	end, err = s.forcedBoundary()
	if err != nil {
		return nil, err
	}
	return s.emit(end, TierForced)
}

func (s *Segmenter) emit(end int, tier Tier) (*Segment, error) {
	seg := &Segment{ID: s.nextID, Text: s.buf[:end], Tier: tier}
	s.nextID++
	s.buf = s.buf[end:]

	n, err := s.counter.Count(s.buf)
	if err != nil {
		return nil, err
	}
	s.count = n
	return seg, nil
}

// sentenceBoundary finds the rightmost qualifying strong punctuation mark
// whose prefix reaches MinTokens. ASCII marks must be followed by whitespace
// or end of buffer and must not terminate a known abbreviation; CJK marks
// and the ellipsis qualify on their own.
func (s *Segmenter) sentenceBoundary() (int, bool, error) {
	marks := punctPositions(s.buf, isStrongPunct)
	for k := len(marks) - 1; k >= 0; k-- {
		m := marks[k]
		if punctNeedsSpace(m.r) {
			if m.end < len(s.buf) {
				next, _ := utf8.DecodeRuneInString(s.buf[m.end:])
				if !unicode.IsSpace(next) {
					continue
				}
			}
			if m.r == '.' && isAbbreviation(s.buf, m.end) {
				continue
			}
		}
		n, err := s.counter.Count(s.buf[:m.end])
		if err != nil {
			return 0, false, err
		}
		if n >= s.cfg.MinTokens {
			return m.end, true, nil
		}
	}
	return 0, false, nil
}

// commaBoundary finds the rightmost secondary punctuation mark whose prefix
// token count lies within [MinTokens, MaxTokens].
func (s *Segmenter) commaBoundary() (int, bool, error) {
	marks := punctPositions(s.buf, isSecondaryPunct)
	for k := len(marks) - 1; k >= 0; k-- {
		m := marks[k]
		n, err := s.counter.Count(s.buf[:m.end])
		if err != nil {
			return 0, false, err
		}
		if n >= s.cfg.MinTokens && n <= s.cfg.MaxTokens {
			return m.end, true, nil
		}
	}
	return 0, false, nil
}

// forcedBoundary picks the latency-backstop cut: the last whitespace
// boundary whose prefix stays within MaxTokens, or a bare rune boundary when
// the buffer contains no whitespace at all.
func (s *Segmenter) forcedBoundary() (int, error) {
	best := 0
	for _, cand := range whitespaceRunEnds(s.buf) {
		n, err := s.counter.Count(s.buf[:cand])
		if err != nil {
			return 0, err
		}
		if n <= s.cfg.MaxTokens && cand > best {
			best = cand
		}
	}
	if best > 0 {
		return best, nil
	}

	// No whitespace to cut at: take the longest rune prefix within MaxTokens.
	prev := 0
	for i := range s.buf {
		if i == 0 {
			continue
		}
		n, err := s.counter.Count(s.buf[:i])
		if err != nil {
			return 0, err
		}
		if n > s.cfg.MaxTokens {
			break
		}
		prev = i
	}
	if prev == 0 {
		// Single oversized rune or token; emit everything rather than stall.
		return len(s.buf), nil
	}
	return prev, nil
}

type punctMark struct {
	end int // byte index just past the mark
	r   rune
}

func punctPositions(s string, match func(rune) bool) []punctMark {
	var marks []punctMark
	for i, r := range s {
		if match(r) {
			marks = append(marks, punctMark{end: i + utf8.RuneLen(r), r: r})
		}
	}
	return marks
}

// whitespaceRunEnds returns the byte index just past each maximal whitespace
// run, including a run that closes the buffer.
func whitespaceRunEnds(s string) []int {
	var ends []int
	inRun := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			inRun = true
			continue
		}
		if inRun {
			ends = append(ends, i)
			inRun = false
		}
	}
	if inRun {
		ends = append(ends, len(s))
	}
	return ends
}

// pieces splits a fragment into feeding steps: each piece is a word plus its
// trailing whitespace, with an extra break after CJK punctuation since CJK
// text carries no spaces.
func pieces(s string) []string {
	var out []string
	start := 0
	var prev rune
	first := true
	for i, r := range s {
		if !first {
			breakHere := unicode.IsSpace(prev) && !unicode.IsSpace(r) || isCJKPunct(prev)
			if breakHere && start < i {
				out = append(out, s[start:i])
				start = i
			}
		}
		prev = r
		first = false
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func isStrongPunct(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '…':
		return true
	}
	return false
}

func isSecondaryPunct(r rune) bool {
	switch r {
	case ',', ';', ':', '，', '；', '、':
		return true
	}
	return false
}

// punctNeedsSpace reports whether the mark only counts as a boundary when
// followed by whitespace or end of buffer (ASCII marks; "3.14" is no cut).
func punctNeedsSpace(r rune) bool {
	switch r {
	case '.', '!', '?':
		return true
	}
	return false
}

func isCJKPunct(r rune) bool {
	switch r {
	case '。', '！', '？', '…', '，', '；', '、':
		return true
	}
	return false
}
