package stream

// FromString returns a closed-after-one-send source carrying the whole input.
func FromString(input string) <-chan string {
	ch := make(chan string, 1)
	ch <- input
	close(ch)
	return ch
}

// FromSlice returns a source that yields the fragments in order. Useful for
// replaying captured LLM deltas.
func FromSlice(fragments []string) <-chan string {
	ch := make(chan string, len(fragments))
	for _, f := range fragments {
		ch <- f
	}
	close(ch)
	return ch
}
