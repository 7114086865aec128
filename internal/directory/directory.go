package directory

import (
	"context"
	"errors"
	"strings"

	"github.com/sellercentry/centry/pkg/metrics"
)

// Directory resolves subdomains and tenant ids against the mapping source.
// Lookups are read-only; rows are scanned in directory order and the first
// match wins.
type Directory struct {
	source Source
}

// New constructs a Directory over the provided row source.
func New(source Source) (*Directory, error) {
	if source == nil {
		return nil, errors.New("directory: source is required")
	}
	return &Directory{source: source}, nil
}

// LookupBySubdomain finds the tenant whose slugged store name equals the
// requested subdomain.
func (d *Directory) LookupBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" {
		return nil, ErrTenantNotFound
	}
	return d.lookup(ctx, func(row []string) bool {
		return Slug(cell(row, 0)) == subdomain
	})
}

// LookupByTenantID finds the tenant by exact tenant id equality.
func (d *Directory) LookupByTenantID(ctx context.Context, tenantID string) (*Tenant, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrTenantNotFound
	}
	return d.lookup(ctx, func(row []string) bool {
		return cell(row, 1) == tenantID
	})
}

func (d *Directory) lookup(ctx context.Context, match func(row []string) bool) (*Tenant, error) {
	rows, err := d.source.Rows(ctx)
	if err != nil {
		metrics.TenantLookups.WithLabelValues("error").Inc()
		return nil, err
	}

	for _, row := range rows {
		if !match(row) {
			continue
		}
		tenant, err := parseRow(row)
		if err != nil {
			metrics.TenantLookups.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.TenantLookups.WithLabelValues("hit").Inc()
		return tenant, nil
	}

	metrics.TenantLookups.WithLabelValues("miss").Inc()
	return nil, ErrTenantNotFound
}

// parseRow turns a raw mapping row into a Tenant. A row whose data-source
// URL does not carry the expected embedded id is a data-quality error, never
// coerced into a guessed handle.
func parseRow(row []string) (*Tenant, error) {
	storeName := strings.TrimSpace(cell(row, 0))

	sheetID, ok := ParseSheetID(cell(row, 3))
	if !ok {
		return nil, ErrMalformedEntry
	}

	return &Tenant{
		TenantID:     strings.TrimSpace(cell(row, 1)),
		StoreName:    storeName,
		Subdomain:    Slug(storeName),
		ContactEmail: strings.TrimSpace(cell(row, 2)),
		SheetID:      sheetID,
	}, nil
}

func cell(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return row[index]
}
