package frame

// State is the scanner position in the two-marker state machine.
type State int

const (
	SeekingHeader State = iota
	SeekingFooter
)

func (s State) String() string {
	switch s {
	case SeekingHeader:
		return "seeking_header"
	case SeekingFooter:
		return "seeking_footer"
	default:
		return "unknown"
	}
}

// Scanner turns arbitrarily chunked stream bytes into frame payloads.
// It keeps state between Feed calls and is not safe for concurrent use.
type Scanner struct {
	limits Limits
	buf    []byte
	state  State
	start  int
	from   int
	failed bool
}

func NewScanner(limits Limits) *Scanner {
	return &Scanner{limits: limits.withDefaults()}
}

func (s *Scanner) State() State {
	return s.state
}

// Buffered reports bytes held while waiting for more input.
func (s *Scanner) Buffered() int {
	return len(s.buf)
}

// Feed appends chunk and returns every frame it completed, in stream order.
// Only the unresolved payload left after extraction counts against the
// limit. ErrOverflow is returned once, alongside the frames completed before
// it; the scanner is unusable afterwards.
func (s *Scanner) Feed(chunk []byte) ([][]byte, error) {
	if s.failed {
		return nil, ErrScannerFailed
	}
	s.buf = append(s.buf, chunk...)

	var frames [][]byte
	for {
		if s.state == SeekingHeader {
			at := indexMarker(s.buf, header)
			if at < 0 {
				s.discardNoise()
				return frames, nil
			}
			s.buf = s.buf[at:]
			s.start = MarkerLen
			s.from = MarkerLen
			s.state = SeekingFooter
		}

		end := indexMarker(s.buf[s.from:], footer)
		if end < 0 {
			if s.pendingPayload() >= s.limits.MaxBufferBytes {
				s.failed = true
				s.buf = nil
				return frames, ErrOverflow
			}
			// the next search only needs to revisit a possible partial footer
			if tail := len(s.buf) - (MarkerLen - 1); tail > s.from {
				s.from = tail
			}
			return frames, nil
		}
		end += s.from

		payload := make([]byte, end-s.start)
		copy(payload, s.buf[s.start:end])
		frames = append(frames, payload)

		s.buf = s.buf[end+MarkerLen:]
		s.start = 0
		s.from = 0
		s.state = SeekingHeader
		if len(s.buf) == 0 {
			s.buf = nil
			return frames, nil
		}
	}
}

// pendingPayload counts buffered bytes already known to belong to the open
// frame's payload. The last MarkerLen-1 bytes may still start FOOTER.
func (s *Scanner) pendingPayload() int {
	return len(s.buf) - s.start - (MarkerLen - 1)
}

// discardNoise drops bytes that cannot start a header, keeping a tail that
// may be the first part of a header split across reads.
func (s *Scanner) discardNoise() {
	keep := MarkerLen - 1
	if len(s.buf) <= keep {
		s.compact(0)
		return
	}
	s.compact(len(s.buf) - keep)
}

func (s *Scanner) compact(from int) {
	rest := len(s.buf) - from
	if rest == 0 {
		s.buf = nil
		return
	}
	n := copy(s.buf, s.buf[from:])
	s.buf = s.buf[:n]
}
