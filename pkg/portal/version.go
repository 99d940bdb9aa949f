package portal

import (
	"context"
	"fmt"

	"github.com/morezero/ckan-portal/pkg/action"
	"github.com/morezero/ckan-portal/pkg/semver"
)

// StatusAction reports site status, including the server version.
const StatusAction = "status_show"

// Status is the subset of status_show used by the portal.
type Status struct {
	SiteTitle   string   `json:"site_title" yaml:"site_title"`
	SiteURL     string   `json:"site_url" yaml:"site_url"`
	CKANVersion string   `json:"ckan_version" yaml:"ckan_version"`
	Extensions  []string `json:"extensions" yaml:"extensions"`
}

// Status fetches status_show.
func (p *Portal) Status(ctx context.Context) (*Status, error) {
	st, err := Call[Status](ctx, p, action.New(StatusAction), nil)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ServerVersion returns the version reported by the server.
func (p *Portal) ServerVersion(ctx context.Context) (string, error) {
	st, err := p.Status(ctx)
	if err != nil {
		return "", err
	}
	return st.CKANVersion, nil
}

// RequireVersion fails unless the server version satisfies rangeStr
// (e.g. ">=2.9", "2", "^2.10.0").
func (p *Portal) RequireVersion(ctx context.Context, rangeStr string) error {
	v, err := p.ServerVersion(ctx)
	if err != nil {
		return err
	}
	if !semver.SatisfiesRange(v, rangeStr) {
		return fmt.Errorf("%s - server version %q does not satisfy %q", logPrefix, v, rangeStr)
	}
	return nil
}
