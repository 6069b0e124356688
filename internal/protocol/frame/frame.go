package frame

import (
	"bytes"
	"errors"
	"io"
)

// MarkerLen is the size of both wire markers.
const MarkerLen = 8

var (
	header = [MarkerLen]byte{0x02, 'P', 'K', 'T', '-', 'B', 'E', 'G'}
	footer = [MarkerLen]byte{0x03, 'P', 'K', 'T', '-', 'E', 'N', 'D'}
)

var (
	ErrOverflow      = errors.New("frame: buffer exceeded max frame size")
	ErrFrameTooLarge = errors.New("frame: payload too large")
	ErrScannerFailed = errors.New("frame: scanner failed after overflow")

	ErrMarkerInPayload = errors.New("frame: payload contains the footer marker")
)

// Limits constrains scanner memory use. MaxBufferBytes bounds a payload,
// markers excluded.
type Limits struct {
	MaxBufferBytes int
}

func DefaultLimits() Limits {
	return Limits{
		MaxBufferBytes: 4_000_000,
	}
}

func (l Limits) withDefaults() Limits {
	if l.MaxBufferBytes <= 0 {
		return DefaultLimits()
	}
	return l
}

// HeaderMarker returns a copy of the frame start marker.
func HeaderMarker() []byte {
	out := header
	return out[:]
}

// FooterMarker returns a copy of the frame end marker.
func FooterMarker() []byte {
	out := footer
	return out[:]
}

// Encode wraps payload as HEADER || payload || FOOTER without checking it.
// Senders go through EncodeLimited.
func Encode(payload []byte) []byte {
	buf := make([]byte, 0, len(payload)+2*MarkerLen)
	buf = append(buf, header[:]...)
	buf = append(buf, payload...)
	buf = append(buf, footer[:]...)
	return buf
}

// EncodeLimited is Encode with the receiving side's checks applied: the
// payload must be shorter than the limit and must not contain FOOTER, which
// would end the frame early on the peer.
func EncodeLimited(payload []byte, limits Limits) ([]byte, error) {
	limits = limits.withDefaults()
	if len(payload) >= limits.MaxBufferBytes {
		return nil, ErrFrameTooLarge
	}
	if indexMarker(payload, footer) >= 0 {
		return nil, ErrMarkerInPayload
	}
	return Encode(payload), nil
}

func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	buf, err := EncodeLimited(payload, limits)
	if err != nil {
		return err
	}
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// Reader pulls frames from a blocking io.Reader.
type Reader struct {
	r       io.Reader
	scanner *Scanner
	chunk   []byte
	pending [][]byte
	err     error
}

func NewReader(r io.Reader, limits Limits) *Reader {
	return &Reader{
		r:       r,
		scanner: NewScanner(limits),
		chunk:   make([]byte, 32*1024),
	}
}

// Next blocks until one complete frame payload is available. Frames that
// completed before a scanner error are returned ahead of it.
func (fr *Reader) Next() ([]byte, error) {
	for len(fr.pending) == 0 {
		if fr.err != nil {
			return nil, fr.err
		}
		n, err := fr.r.Read(fr.chunk)
		if n > 0 {
			frames, ferr := fr.scanner.Feed(fr.chunk[:n])
			fr.pending = append(fr.pending, frames...)
			if ferr != nil {
				fr.err = ferr
				continue
			}
		}
		if err != nil {
			if len(fr.pending) > 0 {
				break
			}
			return nil, err
		}
	}
	out := fr.pending[0]
	fr.pending = fr.pending[1:]
	return out, nil
}

func indexMarker(buf []byte, marker [MarkerLen]byte) int {
	return bytes.Index(buf, marker[:])
}
