package carrier

import (
	"bytes"
	"io"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter[Request, *Request](&buf, MaxFrameLen)
	r := NewReader[Request, *Request](&buf, MaxFrameLen)

	reqs := []*Request{
		{RequestID: []byte{1}, Payload: []byte("abc")},
		{RequestID: []byte{2}, Payload: nil},
		{RequestID: []byte{3, 4, 5}, Payload: []byte("a longer payload to exercise buffer growth")},
	}
	for _, req := range reqs {
		if err := w.Write(req); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	for _, want := range reqs {
		got, err := r.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if string(got.RequestID) != string(want.RequestID) || string(got.Payload) != string(want.Payload) {
			t.Fatalf("Read mismatch: got %+v want %+v", got, want)
		}
	}
}

func TestFrameIsExactlyFourPlusEncodedLen(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter[Request, *Request](&buf, MaxFrameLen)
	req := &Request{RequestID: []byte{1, 2}, Payload: []byte("xyz")}
	if err := w.Write(req); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got, want := buf.Len(), 4+req.EncodedLen(); got != want {
		t.Fatalf("frame length = %d, want %d", got, want)
	}
	// Big-endian length prefix.
	prefix := buf.Bytes()[:4]
	if prefix[0] != 0 || prefix[1] != 0 || prefix[2] != 0 || int(prefix[3]) != req.EncodedLen() {
		t.Fatalf("length prefix = %v, want big-endian %d", prefix, req.EncodedLen())
	}
}

func TestWriteRejectsOversizeWithoutTouchingStream(t *testing.T) {
	var buf bytes.Buffer
	const maxLen = 8
	w := NewWriter[Request, *Request](&buf, maxLen)
	req := &Request{RequestID: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}
	err := w.Write(req)
	if err == nil {
		t.Fatal("expected InvalidLenError")
	}
	if _, ok := err.(*InvalidLenError); !ok {
		t.Fatalf("got error %T, want *InvalidLenError", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no bytes written on oversize rejection, got %d", buf.Len())
	}
}

func TestWriteAcceptsExactlyMaxLen(t *testing.T) {
	var buf bytes.Buffer
	const maxLen = 8
	w := NewWriter[Request, *Request](&buf, maxLen)
	req := &Request{} // EncodedLen = 4+0+4+0 = 8, exactly maxLen.
	if req.EncodedLen() != maxLen {
		t.Fatalf("test setup: EncodedLen = %d, want %d", req.EncodedLen(), maxLen)
	}
	if err := w.Write(req); err != nil {
		t.Fatalf("expected exactly-max-len write to succeed, got %v", err)
	}
}

func TestReaderRejectsOversizeLengthPrefix(t *testing.T) {
	var buf bytes.Buffer
	// Write a length prefix bigger than maxLen, with no payload following.
	buf.Write([]byte{0, 0, 0, 100})
	r := NewReader[Request, *Request](&buf, 10)
	_, err := r.Read()
	if _, ok := err.(*InvalidLenError); !ok {
		t.Fatalf("got error %T (%v), want *InvalidLenError", err, err)
	}
}

func TestReaderSurfacesIOErrorOnTruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 5, 1, 2}) // declares 5 bytes, only 2 present
	r := NewReader[Request, *Request](&buf, MaxFrameLen)
	_, err := r.Read()
	if err == nil || err == io.EOF {
		t.Fatalf("expected a truncation I/O error, got %v", err)
	}
}
