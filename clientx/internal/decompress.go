package internal

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// AcceptEncoding is advertised on requests that did not set their own.
const AcceptEncoding = "gzip, deflate, br, zstd"

// DecompressTransport advertises every supported content coding and decodes
// the response body transparently. Requests that carry their own
// Accept-Encoding header are passed through untouched, as are range requests
// and responses with an unknown coding.
type DecompressTransport struct {
	base http.RoundTripper
}

// NewDecompressTransport wraps base with transparent decompression.
func NewDecompressTransport(base http.RoundTripper) *DecompressTransport {
	return &DecompressTransport{base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *DecompressTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// A partial body cannot be decoded on its own.
	if req.Header.Get("Accept-Encoding") != "" || req.Header.Get("Range") != "" {
		return t.base.RoundTrip(req)
	}

	outReq := req.Clone(req.Context())
	if outReq.Header == nil {
		outReq.Header = make(http.Header)
	}
	outReq.Header.Set("Accept-Encoding", AcceptEncoding)

	resp, err := t.base.RoundTrip(outReq)
	if err != nil {
		return nil, err
	}

	codings, ok := parseCodings(resp.Header.Get("Content-Encoding"))
	if !ok || len(codings) == 0 || req.Method == http.MethodHead || resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	resp.Body = &decodingBody{body: resp.Body, codings: codings}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

// CloseIdleConnections forwards to the wrapped transport.
func (t *DecompressTransport) CloseIdleConnections() {
	closeIdle(t.base)
}

// parseCodings splits a Content-Encoding value in the order the codings were
// applied. "identity" is dropped; any unsupported coding reports false.
func parseCodings(header string) ([]string, bool) {
	var codings []string
	for _, c := range strings.Split(header, ",") {
		c = strings.ToLower(strings.TrimSpace(c))
		switch c {
		case "", "identity":
		case "gzip", "x-gzip", "deflate", "br", "zstd":
			codings = append(codings, c)
		default:
			return nil, false
		}
	}
	return codings, true
}

// decodingBody opens its decoders on the first Read so that a corrupt
// stream surfaces as a read error rather than a transport error.
type decodingBody struct {
	body    io.ReadCloser
	codings []string
	r       io.Reader
	closers []io.Closer
	err     error
}

func (b *decodingBody) Read(p []byte) (int, error) {
	if b.r == nil && b.err == nil {
		b.r, b.err = b.open()
	}
	if b.err != nil {
		return 0, b.err
	}
	return b.r.Read(p)
}

// open returns a bare io.EOF for an empty body, which reads as empty content.
func (b *decodingBody) open() (io.Reader, error) {
	src := bufio.NewReader(b.body)
	if _, err := src.Peek(1); err == io.EOF {
		return nil, io.EOF
	}

	var r io.Reader = src
	for i := len(b.codings) - 1; i >= 0; i-- {
		dec, closer, err := newDecoder(b.codings[i], r)
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s body: %w", b.codings[i], err)
		}
		if closer != nil {
			b.closers = append(b.closers, closer)
		}
		r = dec
	}
	return r, nil
}

func (b *decodingBody) Close() error {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i].Close()
	}
	return b.body.Close()
}

func newDecoder(coding string, r io.Reader) (io.Reader, io.Closer, error) {
	switch coding {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr, nil
	case "deflate":
		return newDeflateReader(r)
	case "br":
		return brotli.NewReader(r), nil, nil
	case "zstd":
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, err
		}
		rc := zr.IOReadCloser()
		return rc, rc, nil
	default:
		return nil, nil, fmt.Errorf("unsupported content coding %q", coding)
	}
}

// newDeflateReader accepts both zlib-wrapped and raw deflate streams, since
// servers disagree on what "deflate" means.
func newDeflateReader(r io.Reader) (io.Reader, io.Closer, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err == nil && isZlibHeader(header[0], header[1]) {
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr, nil
	}
	fr := flate.NewReader(br)
	return fr, fr, nil
}

// isZlibHeader reports whether cmf/flg form a valid RFC 1950 header.
func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && cmf>>4 <= 7 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}
