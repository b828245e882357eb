package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rookery-dev/rookery/internal/core/resource"
)

const defaultPageSize = 50

// Marketplace talks to the hosted marketplace API. Listings are paginated
// and exposed lazily: a page is requested only when the previous one has
// been consumed. Transient failures are not retried here; retry policy
// belongs to the caller.
type Marketplace struct {
	baseURL  string
	token    string
	client   *http.Client
	pageSize int
	sourceID string
	log      *zap.Logger
}

// NewMarketplace creates a marketplace backend for the given API base URL.
// token may be empty for anonymous access.
func NewMarketplace(baseURL, token string, log *zap.Logger) *Marketplace {
	if log == nil {
		log = zap.NewNop()
	}
	sourceID := "marketplace"
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		sourceID = u.Host
	}
	return &Marketplace{
		baseURL:  baseURL,
		token:    token,
		client:   &http.Client{Timeout: 60 * time.Second},
		pageSize: defaultPageSize,
		sourceID: sourceID,
		log:      log,
	}
}

// apiItem is one resource in a listing response.
type apiItem struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Checksum    string `json:"checksum,omitempty"`
}

// apiPage is one page of a listing response. NextPage of zero means the
// listing is exhausted.
type apiPage struct {
	Items    []apiItem `json:"items"`
	NextPage int       `json:"next_page"`
}

// Name implements Backend.
func (m *Marketplace) Name() string { return "marketplace" }

// Supports implements Backend. The marketplace hosts all kinds.
func (*Marketplace) Supports(resource.Kind) bool { return true }

// List issues paginated requests against /v1/resources, requesting each
// page only when the iterator reaches it.
func (m *Marketplace) List(ctx context.Context, kind resource.Kind, q Query) Seq {
	return func(yield func(resource.Descriptor, error) bool) {
		page := 1
		for page > 0 {
			p, err := m.fetchPage(ctx, kind, q, page)
			if err != nil {
				yield(resource.Descriptor{}, err)
				return
			}
			for _, it := range p.Items {
				d := resource.Descriptor{
					SourceID:    m.sourceID,
					ResourceID:  it.ID,
					Kind:        kind,
					Name:        it.Name,
					Description: it.Description,
					Ref:         resource.RemoteRef{Scheme: resource.RefMarketplace, ID: it.ID},
					Checksum:    it.Checksum,
				}
				if !q.Matches(d) {
					continue
				}
				if !yield(d, nil) {
					return
				}
			}
			page = p.NextPage
		}
	}
}

func (m *Marketplace) fetchPage(ctx context.Context, kind resource.Kind, q Query, page int) (*apiPage, error) {
	u := fmt.Sprintf("%s/v1/resources?kind=%s&page=%d&per_page=%d",
		m.baseURL, url.QueryEscape(string(kind)), page, m.pageSize)
	if q.Text != "" {
		u += "&q=" + url.QueryEscape(q.Text)
	}

	resp, err := m.get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := m.checkStatus(resp); err != nil {
		return nil, err
	}

	var p apiPage
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decoding listing page %d: %v", resource.ErrParse, page, err)
	}
	m.log.Debug("marketplace page fetched",
		zap.String("kind", string(kind)),
		zap.Int("page", page),
		zap.Int("items", len(p.Items)))
	return &p, nil
}

// Fetch downloads the packaged resource to a staging file, verifying the
// server-supplied checksum when one is present on the descriptor.
func (m *Marketplace) Fetch(ctx context.Context, d resource.Descriptor) (*Staged, error) {
	if d.Ref.Scheme != resource.RefMarketplace || d.Ref.ID == "" {
		return nil, fmt.Errorf("%w: descriptor %q has no marketplace id", resource.ErrNotFound, d.ResourceID)
	}

	u := fmt.Sprintf("%s/v1/resources/%s/download", m.baseURL, url.PathEscape(d.Ref.ID))
	resp, err := m.get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := m.checkStatus(resp); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "rookery-download-*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating staging file: %v", resource.ErrIO, err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	hash := sha256.New()
	_, err = io.Copy(io.MultiWriter(tmp, hash), resp.Body)
	closeErr := tmp.Close()
	if err != nil {
		cleanup()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: downloading %s: %v", resource.ErrNetwork, d.Ref.ID, err)
	}
	if closeErr != nil {
		cleanup()
		return nil, fmt.Errorf("%w: closing staging file: %v", resource.ErrIO, closeErr)
	}

	sum := hex.EncodeToString(hash.Sum(nil))
	if d.Checksum != "" && sum != d.Checksum {
		cleanup()
		return nil, fmt.Errorf("%w: download checksum %s does not match expected %s",
			resource.ErrNetwork, sum, d.Checksum)
	}

	m.log.Debug("marketplace download complete",
		zap.String("resource", d.Ref.ID), zap.String("checksum", sum))
	return NewStaged(tmp.Name(), true, sum, cleanup), nil
}

func (m *Marketplace) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", resource.ErrNetwork, err)
	}
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", resource.ErrNetwork, err)
	}
	return resp, nil
}

// checkStatus maps HTTP statuses to the error taxonomy. The body is drained
// by the caller's deferred close.
func (m *Marketplace) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: marketplace returned %s", resource.ErrAuthentication, resp.Status)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: marketplace returned %s", resource.ErrNotFound, resp.Status)
	default:
		return fmt.Errorf("%w: marketplace returned unexpected status %s",
			resource.ErrNetwork, strconv.Itoa(resp.StatusCode)+" "+http.StatusText(resp.StatusCode))
	}
}
