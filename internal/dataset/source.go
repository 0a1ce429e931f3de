package dataset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"pigflow.ai/internal/protocol"
)

type Source interface {
	Fetch(ctx context.Context) (*protocol.Dataset, error)
	String() string
}

// Open picks an HTTP source for http(s) locations and a file source otherwise.
func Open(location string, timeout time.Duration) Source {
	location = strings.TrimSpace(location)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, timeout)
	}
	return FileSource{Path: location}
}

// HTTPSource performs the single request/response exchange against the
// planning backend's init endpoint.
type HTTPSource struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		URL:     url,
		Timeout: timeout,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) String() string { return s.URL }

func (s *HTTPSource) Fetch(ctx context.Context) (*protocol.Dataset, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, &LoadError{Stage: StageFetch, Source: s.URL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &LoadError{Stage: StageFetch, Source: s.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &LoadError{Stage: StageFetch, Source: s.URL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	compressed := strings.EqualFold(resp.Header.Get("Content-Encoding"), "zstd") || strings.HasSuffix(s.URL, ".zst")
	raw, err := readAll(resp.Body, compressed)
	if err != nil {
		return nil, &LoadError{Stage: StageFetch, Source: s.URL, Err: err}
	}
	ds, err := Decode(raw)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = s.URL
		}
		return nil, err
	}
	return ds, nil
}

// FileSource reads a dataset from disk; ".zst" files are zstd-compressed.
type FileSource struct {
	Path string
}

func (s FileSource) String() string { return s.Path }

func (s FileSource) Fetch(ctx context.Context) (*protocol.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Stage: StageFetch, Source: s.Path, Err: err}
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, &LoadError{Stage: StageFetch, Source: s.Path, Err: err}
	}
	defer f.Close()

	raw, err := readAll(f, strings.HasSuffix(s.Path, ".zst"))
	if err != nil {
		return nil, &LoadError{Stage: StageFetch, Source: s.Path, Err: err}
	}
	ds, err := Decode(raw)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = s.Path
		}
		return nil, err
	}
	return ds, nil
}
