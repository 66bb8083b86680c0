// Package diarize talks to a pyannote style diarization service that accepts
// a WAV upload on POST /diarize and answers with labelled speaker segments.
package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

type Client struct {
	baseURL string
	token   string
	c       *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.c = hc
		}
	}
}

// WithToken sends a bearer token, e.g. a Hugging Face token forwarded to
// the model host.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func New(baseURL string, opts ...Option) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 2 * time.Minute,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       2 * time.Minute,
		TLSHandshakeTimeout:   30 * time.Second,
		ExpectContinueTimeout: time.Minute,
		ResponseHeaderTimeout: 10 * time.Minute,
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		c:       &http.Client{Transport: tr, Timeout: 20 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

type response struct {
	Segments    []segment `json:"segments"`
	NumSpeakers int       `json:"num_speakers"`
}

func (c *Client) Diarize(ctx context.Context, wavPath string) ([]types.SpeakerInterval, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	fd, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", wavPath, err)
	}
	defer fd.Close()
	if _, err = io.Copy(fw, fd); err != nil {
		return nil, fmt.Errorf("copy audio: %w", err)
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/diarize", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		const maxErr = 4096
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErr))
		return nil, fmt.Errorf("diarize %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("diarize decode: %w", err)
	}

	intervals := make([]types.SpeakerInterval, 0, len(out.Segments))
	for _, s := range out.Segments {
		if s.End <= s.Start || strings.TrimSpace(s.Speaker) == "" {
			continue
		}
		intervals = append(intervals, types.SpeakerInterval{Start: s.Start, End: s.End, Speaker: s.Speaker})
	}
	sort.SliceStable(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })
	return intervals, nil
}
