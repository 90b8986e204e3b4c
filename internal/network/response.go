package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/klauspost/compress/gzip"
)

const maxBodySize = 16 << 20

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header fhttp.Header
	Body   []byte
	URL    string
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Err returns a StatusError for non-2xx responses.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{Code: r.Status, URL: r.URL}
}

func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode %s: %w", r.URL, err)
	}
	return nil
}

func (r *Response) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
}

func (r *Response) Text() string {
	return string(r.Body)
}

func readResponse(resp *fhttp.Response, target string) (*Response, error) {
	defer resp.Body.Close()
	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
		URL:    target,
	}, nil
}

// readBody decodes gzip payloads the transport left compressed.
func readBody(resp *fhttp.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	if !strings.Contains(strings.ToLower(resp.Header.Get("Content-Encoding")), "gzip") {
		return body, nil
	}
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxBodySize))
}
