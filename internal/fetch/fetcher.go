// Package fetch retrieves repository index documents over HTTP(S) and
// classifies transport failures into the taxonomy the resolution engine
// reports to users: not-found, TLS failure, and other I/O failure.
package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/sdkforge/repo-resolver/internal/versions"
)

// DefaultTimeout is the default connect/read timeout for HTTP requests.
// The engine itself enforces no timeouts; they live here, at the
// collaborator boundary.
const DefaultTimeout = 30 * time.Second

// Fetcher retrieves the raw bytes of a remote resource. Implementations
// read the resource fully into memory so callers can take multiple
// independent passes over the content.
type Fetcher interface {
	// Fetch performs a single retrieval attempt. It never retries; retry
	// policy belongs to the caller.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is the default Fetcher implementation.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with the given timeout.
// A zero timeout selects DefaultTimeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch performs an HTTP GET and returns the full response body.
// Gzip-compressed indexes (served as .xml.gz or with a gzip content
// encoding the transport did not unwrap) are decompressed transparently.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newError(KindIO, url, "", err)
	}

	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Accept", "application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, newError(classify(err), url, "", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, newError(KindNotFound, url, "file not found", nil)
	case resp.StatusCode != http.StatusOK:
		return nil, newError(KindIO, url, fmt.Sprintf("unexpected status %s", resp.Status), nil)
	}

	// No fixed size cap: downstream consumers need the whole document in
	// memory anyway for the detection and validation passes.
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, newError(KindIO, url, "", err)
	}

	data, err := gunzipIfNeeded(buf.Bytes())
	if err != nil {
		return nil, newError(KindIO, url, "invalid gzip payload: "+err.Error(), err)
	}

	return data, nil
}

// classify maps a transport error onto the failure taxonomy.
func classify(err error) Kind {
	if isTLSError(err) {
		return KindTLS
	}
	return KindIO
}

func isTLSError(err error) bool {
	var (
		certVerify *tls.CertificateVerificationError
		recordHdr  tls.RecordHeaderError
		hostname   x509.HostnameError
		authority  x509.UnknownAuthorityError
		certErr    x509.CertificateInvalidError
	)
	return errors.As(err, &certVerify) ||
		errors.As(err, &recordHdr) ||
		errors.As(err, &hostname) ||
		errors.As(err, &authority) ||
		errors.As(err, &certErr)
}

// gunzipIfNeeded decompresses the payload when it carries the gzip magic
// header; a plain XML document can never start with those bytes.
func gunzipIfNeeded(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = zr.Close()
	}()

	var out bytes.Buffer
	if _, err := io.Copy(&out, zr); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func userAgent() string {
	return "repo-resolver/" + versions.GetVersionInfo().Version
}
