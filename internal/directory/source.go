package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/sellercentry/centry/pkg/errors"
)

const defaultFetchTimeout = 10 * time.Second

// Source yields the raw mapping rows in directory order. Each row is
// (storeName, tenantId, contactEmail, dataSourceUrl); shorter rows are
// tolerated and treated as having blank trailing cells.
type Source interface {
	Rows(ctx context.Context) ([][]string, error)
}

// SheetConfig configures the HTTP mapping-sheet source.
type SheetConfig struct {
	// Endpoint is the values-range URL of the mapping sheet.
	Endpoint string
	// ServiceToken authenticates the service itself, never an end user.
	ServiceToken string
	Timeout      time.Duration
}

// SheetSource fetches directory rows from the remote mapping sheet using a
// service credential. Every call observes current remote state; there is no
// implicit caching here.
type SheetSource struct {
	cfg    SheetConfig
	client *http.Client
}

// NewSheetSource constructs a SheetSource. Misconfiguration is not an error
// at construction time; it surfaces as ErrUnavailable on first use so the
// rest of the pipeline is still exercisable locally.
func NewSheetSource(cfg SheetConfig) *SheetSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultFetchTimeout
	}
	return &SheetSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type valuesResponse struct {
	Values [][]string `json:"values"`
}

// Rows fetches the current mapping rows. All transport and configuration
// failures map to ErrUnavailable; the caller decides whether to retry.
func (s *SheetSource) Rows(ctx context.Context) ([][]string, error) {
	if strings.TrimSpace(s.cfg.Endpoint) == "" || strings.TrimSpace(s.cfg.ServiceToken) == "" {
		return nil, ErrUnavailable.WithInternal(fmt.Errorf("directory: endpoint or service token not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Endpoint, nil)
	if err != nil {
		return nil, ErrUnavailable.WithInternal(err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ServiceToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, ErrUnavailable.WithInternal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrUnavailable.WithInternal(fmt.Errorf("directory: mapping sheet returned status %d", resp.StatusCode))
	}

	var payload valuesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, ErrUnavailable.WithInternal(fmt.Errorf("directory: decode mapping rows: %w", err))
	}

	return payload.Values, nil
}

// Directory-level errors surfaced to callers. NotFound is terminal for the
// requester; Unavailable is retryable.
var (
	ErrTenantNotFound = apperrors.New("TENANT_NOT_FOUND", "No account is configured for this address", http.StatusNotFound)
	ErrUnavailable    = apperrors.New("DIRECTORY_UNAVAILABLE", "Tenant directory is unreachable, please retry", http.StatusServiceUnavailable)
	ErrMalformedEntry = apperrors.New("MALFORMED_DIRECTORY_ENTRY", "Tenant directory entry is malformed", http.StatusInternalServerError)
)
