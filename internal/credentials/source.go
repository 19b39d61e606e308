// Package credentials resolves warehouse connection parameters from either
// direct settings or a cloud secrets store.
package credentials

import (
	"context"

	"github.com/leapstack-labs/viewlineage/internal/catalog"
)

// Source produces the connection parameters for the catalog reader.
type Source interface {
	Resolve(ctx context.Context) (catalog.ConnParams, error)
}

// RegionResolver determines the region the process runs in.
type RegionResolver interface {
	Region(ctx context.Context) (string, error)
}

// Direct uses parameters given on the command line or in configuration,
// prompting for a missing username or password.
type Direct struct {
	Params catalog.ConnParams
	// Prompter is optional; without it missing credentials are an error.
	Prompter *Prompter
}

// Resolve implements Source.
func (d Direct) Resolve(_ context.Context) (catalog.ConnParams, error) {
	params := d.Params
	if err := params.Validate(); err != nil {
		return catalog.ConnParams{}, err
	}
	if err := d.Prompter.FillLogin("Redshift", &params.User, &params.Password); err != nil {
		return catalog.ConnParams{}, err
	}
	return params, nil
}
