// Package domain maps entity types to the physical store that owns them and
// forbids relationships that would cross store boundaries.
package domain

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Domain identifies a physical store partition. Every entity type belongs to
// exactly one Domain.
type Domain string

const (
	Identity Domain = "identity"
	Clinical Domain = "clinical"
	Research Domain = "research"
)

// ErrUnknownEntity is returned when an entity type is not registered.
type ErrUnknownEntity struct {
	Entity string
}

func (e *ErrUnknownEntity) Error() string {
	return fmt.Sprintf("unknown entity type: %s", e.Entity)
}

// Router resolves entity types to their owning Domain.
type Router struct {
	entities map[string]Domain
}

// NewRouter returns a Router with the platform's entity registry.
func NewRouter() *Router {
	return &Router{entities: map[string]Domain{
		"tier":      Identity,
		"principal": Identity,
		"cohort":    Identity,

		"concept": Clinical,

		"person":               Research,
		"provider":             Research,
		"visit_occurrence":     Research,
		"condition_occurrence": Research,
		"drug_exposure":        Research,
		"procedure_occurrence": Research,
		"measurement":          Research,
		"observation":          Research,
		"note":                 Research,
		"patient_survey":       Research,
		"provider_survey":      Research,
		"audit_log":            Research,
	}}
}

// Of returns the Domain owning the given entity type.
func (r *Router) Of(entity string) (Domain, error) {
	d, ok := r.entities[entity]
	if !ok {
		return "", &ErrUnknownEntity{Entity: entity}
	}
	return d, nil
}

// AllowRelation reports whether a relationship between the two entity types is
// permitted. Relations may not cross Domain boundaries.
func (r *Router) AllowRelation(a, b string) bool {
	da, ok := r.entities[a]
	if !ok {
		return false
	}
	db, ok := r.entities[b]
	if !ok {
		return false
	}
	return da == db
}

// Entities returns the registered entity types for the given Domain.
func (r *Router) Entities(d Domain) []string {
	var out []string
	for name, dom := range r.entities {
		if dom == d {
			out = append(out, name)
		}
	}
	return out
}

// Stores routes each Domain to its connection pool. Repositories obtain their
// pool through here, so a query can never span stores.
type Stores struct {
	router *Router
	pools  map[Domain]*pgxpool.Pool
}

// NewStores builds the Domain -> pool routing table.
func NewStores(router *Router, identity, clinical, research *pgxpool.Pool) *Stores {
	return &Stores{
		router: router,
		pools: map[Domain]*pgxpool.Pool{
			Identity: identity,
			Clinical: clinical,
			Research: research,
		},
	}
}

// Router returns the entity registry behind this store set.
func (s *Stores) Router() *Router { return s.router }

// PoolFor returns the pool owning the given entity type.
func (s *Stores) PoolFor(entity string) (*pgxpool.Pool, error) {
	d, err := s.router.Of(entity)
	if err != nil {
		return nil, err
	}
	return s.pools[d], nil
}

// Pool returns the pool for a Domain directly.
func (s *Stores) Pool(d Domain) *pgxpool.Pool {
	return s.pools[d]
}

// Named returns the pools keyed by domain name, for health reporting.
func (s *Stores) Named() map[string]*pgxpool.Pool {
	out := make(map[string]*pgxpool.Pool, len(s.pools))
	for d, p := range s.pools {
		out[string(d)] = p
	}
	return out
}
