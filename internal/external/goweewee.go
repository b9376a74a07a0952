package external

import (
	"context"
	"fmt"

	"github.com/alpacaswillrule/BlueShark/pkg/models"
)

// SourceGoWeeWee identifies records from the GoWeeWee feed. The real API is
// not usable, so this source generates a deterministic stand-in set around
// the query coordinate.
const SourceGoWeeWee = "goweewee"

const goWeeWeeCount = 10

type GoWeeWeeSource struct{}

func NewGoWeeWeeSource() *GoWeeWeeSource { return &GoWeeWeeSource{} }

func (g *GoWeeWeeSource) Name() string { return SourceGoWeeWee }

func (g *GoWeeWeeSource) Fetch(_ context.Context, p Params) ([]*models.Location, error) {
	out := make([]*models.Location, 0, goWeeWeeCount)
	for i := 0; i < goWeeWeeCount; i++ {
		src := SourceGoWeeWee
		ada := i%2 == 0
		unisex := i%3 == 0
		out = append(out, &models.Location{
			Name:          fmt.Sprintf("GoWeeWee Restroom %d", i+1),
			Type:          models.TypeRestroom,
			Address:       fmt.Sprintf("Mock Address %d, Mock City, MA", i+1),
			Lat:           p.Lat + float64(i%5)*0.01,
			Lng:           p.Lng + float64(i%3)*0.01,
			Source:        &src,
			ExternalID:    fmt.Sprintf("goweewee-%d", i+1),
			ADAAccessible: &ada,
			Unisex:        &unisex,
			LastUpdated:   models.NowMillis(),
		})
	}
	return out, nil
}
