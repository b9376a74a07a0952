// Package external fetches location data from third-party sources and
// normalizes it into the shared Location record shape.
package external

import (
	"context"
	"net/http"

	"github.com/alpacaswillrule/BlueShark/pkg/models"
)

// Params describe one aggregation query.
type Params struct {
	Lat          float64
	Lng          float64
	RadiusKm     float64
	MaxRestrooms int
}

// Source produces normalized location records around a coordinate.
type Source interface {
	Name() string
	Fetch(ctx context.Context, p Params) ([]*models.Location, error)
}

// HTTPClient is implemented by http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
