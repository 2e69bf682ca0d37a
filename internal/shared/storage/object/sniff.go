package object

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

const sniffLen = 512

// Sniffed is an upload stream whose content type was detected from its first bytes.
// Reading it yields the full original stream and tallies the bytes read.
type Sniffed struct {
	MimeType string
	r        io.Reader
	n        int64
}

// Sniff buffers up to 512 bytes of r to detect the content type.
func Sniff(r io.Reader) (*Sniffed, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read sniff: %w", err)
	}
	head = head[:n]
	return &Sniffed{
		MimeType: http.DetectContentType(head),
		r:        io.MultiReader(bytes.NewReader(head), r),
	}, nil
}

func (s *Sniffed) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.n += int64(n)
	return n, err
}

// Size reports how many bytes have been read so far.
func (s *Sniffed) Size() int64 {
	return s.n
}
