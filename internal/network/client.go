package network

import (
	"fmt"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	fhttpcookiejar "github.com/bogdanfinn/fhttp/cookiejar"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

const (
	RequestTimeout = 30 * time.Second
	MaxRedirects   = 5
)

// Doer sends one HTTP request. Any status code is a response, not an error.
type Doer interface {
	Do(req *fhttp.Request) (*fhttp.Response, error)
}

// TransportFactory builds the transport bound to a session's proxy.
type TransportFactory func(session *Session) (Doer, error)

// Client is a TLS-fingerprinted transport that follows a bounded number of redirects.
type Client struct {
	http         tls_client.HttpClient
	maxRedirects int
}

func NewClient(session *Session) (Doer, error) {
	jar, _ := fhttpcookiejar.New(nil)

	options := []tls_client.HttpClientOption{
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithTimeoutSeconds(int(RequestTimeout / time.Second)),
		tls_client.WithCookieJar(jar),
		tls_client.WithNotFollowRedirects(),
	}
	if session != nil && session.Proxy != nil {
		options = append(options, tls_client.WithProxyUrl(session.Proxy.String()))
	}

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, err
	}
	return &Client{http: client, maxRedirects: MaxRedirects}, nil
}

func (c *Client) Do(req *fhttp.Request) (*fhttp.Response, error) {
	for redirects := 0; ; redirects++ {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		location := resp.Header.Get("Location")
		if !isRedirect(resp.StatusCode) || location == "" {
			return resp, nil
		}
		_ = resp.Body.Close()
		if redirects >= c.maxRedirects {
			return nil, fmt.Errorf("stopped after %d redirects: %s", c.maxRedirects, req.URL)
		}

		next, err := redirectRequest(req, resp.StatusCode, location)
		if err != nil {
			return nil, err
		}
		req = next
	}
}

func isRedirect(status int) bool {
	switch status {
	case 301, 302, 303, 307, 308:
		return true
	}
	return false
}

func redirectRequest(prev *fhttp.Request, status int, location string) (*fhttp.Request, error) {
	target, err := prev.URL.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("redirect location %q: %w", location, err)
	}

	method := prev.Method
	keepBody := status == 307 || status == 308
	if !keepBody && method != fhttp.MethodHead {
		method = fhttp.MethodGet
	}

	next, err := fhttp.NewRequestWithContext(prev.Context(), method, target.String(), nil)
	if err != nil {
		return nil, err
	}
	if keepBody && prev.GetBody != nil {
		body, err := prev.GetBody()
		if err != nil {
			return nil, err
		}
		next.Body = body
		next.GetBody = prev.GetBody
		next.ContentLength = prev.ContentLength
	}
	for key, values := range prev.Header {
		if !keepBody && (key == "Content-Type" || key == "Content-Length") {
			continue
		}
		next.Header[key] = values
	}
	return next, nil
}
