package query

import (
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"facility-finder/models"
)

// Plan is an ordered list of query stages.
type Plan struct {
	Stages []Stage
}

// Pipeline renders the plan as a MongoDB aggregation pipeline.
func (p *Plan) Pipeline() mongo.Pipeline {
	pipeline := make(mongo.Pipeline, 0, len(p.Stages))
	for _, s := range p.Stages {
		pipeline = append(pipeline, s.Render())
	}
	return pipeline
}

// Apply evaluates the plan over an in-memory slice. The input is not modified.
func (p *Plan) Apply(in []models.Facility) []models.Facility {
	out := make([]models.Facility, len(in))
	copy(out, in)
	for _, s := range p.Stages {
		out = s.Apply(out)
	}
	return out
}

// HasProximity reports whether the plan contains a proximity stage.
func (p *Plan) HasProximity() bool {
	for _, s := range p.Stages {
		if _, ok := s.(*Proximity); ok {
			return true
		}
	}
	return false
}

// String lists the stage names, for logging.
func (p *Plan) String() string {
	names := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		names[i] = s.Name()
	}
	return "[" + strings.Join(names, " > ") + "]"
}

// Build turns a descriptor into a plan. A limit of 0 means unbounded.
func Build(desc *Descriptor, limit int) *Plan {
	preds := Predicates(desc)
	plan := &Plan{}

	switch {
	case desc.Center != nil && desc.RadiusKm > 0:
		plan.Stages = append(plan.Stages, &Proximity{
			Center:     *desc.Center,
			RadiusKm:   desc.RadiusKm,
			Predicates: preds,
		})
	case len(preds) > 0:
		plan.Stages = append(plan.Stages, &Match{Predicates: preds})
	}

	if desc.Filters.RatingMin != nil {
		plan.Stages = append(plan.Stages, &MinRating{Min: *desc.Filters.RatingMin})
	}
	if limit > 0 {
		plan.Stages = append(plan.Stages, &Limit{N: limit})
	}
	return plan
}

// Predicates collects the attribute predicates of a descriptor.
func Predicates(desc *Descriptor) []Predicate {
	var preds []Predicate
	t := desc.Text
	if !t.empty() {
		if t.City != "" {
			preds = append(preds, CityContains{City: t.City})
		}
		if t.State != "" {
			preds = append(preds, StateEquals{Code: t.State})
		}
		if t.Zip != "" {
			preds = append(preds, ZipEquals{Zip: t.Zip})
		}
	}

	f := desc.Filters
	if f.BedsMin != nil || f.BedsMax != nil {
		preds = append(preds, BedsBetween{Min: f.BedsMin, Max: f.BedsMax})
	}
	if len(f.Ownership) > 0 {
		preds = append(preds, OwnershipIn{Types: f.Ownership})
	}
	return preds
}
