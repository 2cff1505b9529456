package records

import (
	"context"

	"gridpoint.org/internal/auth"
	"gridpoint.org/internal/peer"
	"gridpoint.org/internal/saga"
)

// DependencyBuilder derives the ordered peer checks for one request's
// natural key. Simple resources have none; compositions confirm each
// referenced record before touching their own store.
type DependencyBuilder func(key Key) []saga.Dependency

// Service executes the validation saga for one record resource.
type Service struct {
	desc  Descriptor
	gate  saga.Gate
	store Store
	deps  DependencyBuilder
}

// NewService wires a resource to its gate, store, and dependency chain.
// deps may be nil for resources without peer dependencies.
func NewService(desc Descriptor, gate saga.Gate, store Store, deps DependencyBuilder) *Service {
	return &Service{desc: desc, gate: gate, store: store, deps: deps}
}

// Descriptor exposes the resource identity for the HTTP layer.
func (s *Service) Descriptor() Descriptor { return s.desc }

// Create runs the create saga for the given natural key.
func (s *Service) Create(ctx context.Context, token string, key Key) saga.Outcome {
	return s.saga(s.desc.CreateAction, key).Create(ctx, token)
}

// Delete runs the delete saga for the given natural key.
func (s *Service) Delete(ctx context.Context, token string, key Key) saga.Outcome {
	return s.saga(s.desc.DeleteAction, key).Delete(ctx, token)
}

// Exists runs the existence saga for the given natural key.
func (s *Service) Exists(ctx context.Context, token string, key Key) saga.Outcome {
	return s.saga(s.desc.ExistAction, key).Exists(ctx, token)
}

func (s *Service) saga(action auth.Action, key Key) saga.Saga {
	var deps []saga.Dependency
	if s.deps != nil {
		deps = s.deps(key)
	}
	return saga.Saga{
		Gate:    s.gate,
		Action:  action,
		Subject: s.desc.Subject(key),
		Deps:    deps,
		Store:   storeAdapter{store: s.store, key: key},
	}
}

// PlaceItemDependencies confirms the referenced place and item, in that
// order, against their owning services.
func PlaceItemDependencies(places, items *peer.Client) DependencyBuilder {
	return func(key Key) []saga.Dependency {
		placeKey := map[string]string{
			"name":     key.Get("place"),
			"contract": key.Get("contract"),
		}
		itemKey := map[string]string{
			"name": key.Get("item"),
		}
		return []saga.Dependency{
			{
				Name: "place",
				Check: func(ctx context.Context, token string) peer.Result {
					return places.Exists(ctx, token, peer.Endpoint{Path: "/v1/places/exist"}, placeKey)
				},
			},
			{
				Name: "item",
				Check: func(ctx context.Context, token string) peer.Result {
					return items.Exists(ctx, token, peer.Endpoint{Path: "/v1/items/exist"}, itemKey)
				},
			},
		}
	}
}

// MeasurementPlaceItemDependencies confirms the referenced measurement and
// place-item assignment, in that order.
func MeasurementPlaceItemDependencies(measurements, placeItems *peer.Client) DependencyBuilder {
	return func(key Key) []saga.Dependency {
		measurementKey := map[string]string{
			"name": key.Get("measurement"),
			"unit": key.Get("unit"),
		}
		placeItemKey := map[string]string{
			"place":    key.Get("place"),
			"contract": key.Get("contract"),
			"item":     key.Get("item"),
		}
		return []saga.Dependency{
			{
				Name: "measurement",
				Check: func(ctx context.Context, token string) peer.Result {
					return measurements.Exists(ctx, token, peer.Endpoint{Path: "/v1/measurements/exist"}, measurementKey)
				},
			},
			{
				Name: "place-item",
				Check: func(ctx context.Context, token string) peer.Result {
					return placeItems.Exists(ctx, token, peer.Endpoint{Path: "/v1/place-items/exist"}, placeItemKey)
				},
			},
		}
	}
}
