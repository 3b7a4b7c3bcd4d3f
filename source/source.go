// Package source reads obfuscated scripts from disk or over HTTP and writes
// the cleaned result back out.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// maxScriptSize bounds how much of a response body is read.
const maxScriptSize = 16 * 1024 * 1024

var ErrUnexpectedStatus = errors.New("unexpected status code")

// Fetcher downloads scripts with a browser-like TLS fingerprint, so that
// sites serving obfuscated bundles behind bot checks return the real file.
type Fetcher struct {
	client tls_client.HttpClient
}

func NewFetcher(timeoutSeconds int) (*Fetcher, error) {
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(timeoutSeconds),
		tls_client.WithClientProfile(profiles.Chrome_133),
		tls_client.WithCookieJar(tls_client.NewCookieJar()),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithDisableHttp3(),
	}

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tls client: %w", err)
	}
	return &Fetcher{client: client}, nil
}

func NewFetcherWithClient(client tls_client.HttpClient) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch returns the body of a script URL. Any non-2xx response is an error.
func (f *Fetcher) Fetch(url string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header = scriptHeaders()

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptSize))
	if err != nil {
		return "", fmt.Errorf("failed to read script body: %w", err)
	}
	return string(body), nil
}

func scriptHeaders() http.Header {
	return http.Header{
		"sec-ch-ua-platform": {`"Windows"`},
		"user-agent":         {"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"},
		"sec-ch-ua":          {`"Google Chrome";v="133", "Chromium";v="133", "Not A(Brand";v="24"`},
		"sec-ch-ua-mobile":   {"?0"},
		"accept":             {"*/*"},
		"sec-fetch-site":     {"cross-site"},
		"sec-fetch-mode":     {"no-cors"},
		"sec-fetch-dest":     {"script"},
		"accept-encoding":    {"gzip, deflate, br, zstd"},
		"accept-language":    {"en-US,en;q=0.9"},
		http.HeaderOrderKey: {
			"sec-ch-ua",
			"sec-ch-ua-mobile",
			"sec-ch-ua-platform",
			"user-agent",
			"accept",
			"sec-fetch-site",
			"sec-fetch-mode",
			"sec-fetch-dest",
			"accept-encoding",
			"accept-language",
		},
	}
}

// ReadFile reads a script from path, or from stdin when path is "-".
func ReadFile(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile writes the script to path, or to stdout when path is "" or "-".
func WriteFile(path, script string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(os.Stdout, script)
		return err
	}
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
