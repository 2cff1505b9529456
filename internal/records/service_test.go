package records

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gridpoint.org/internal/auth"
	"gridpoint.org/internal/peer"
	"gridpoint.org/internal/saga"
)

func issueToken(t *testing.T, role auth.Role) string {
	t.Helper()
	t.Setenv("GRIDPOINT_AUTH_SECRET", base64.StdEncoding.EncodeToString([]byte("records-service-test-secret-key!")))
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)
	token, _, err := auth.Issue("user-1", role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func mustKey(t *testing.T, desc Descriptor, values map[string]string) Key {
	t.Helper()
	key, err := desc.NewKey(values)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	return key
}

func TestCreatePlaceAsEngineer(t *testing.T) {
	token := issueToken(t, auth.RoleEngineer)
	store := NewInMemory()
	svc := NewService(PlaceDescriptor, auth.LocalGate{}, store, nil)
	key := mustKey(t, PlaceDescriptor, map[string]string{"name": "Place-1", "contract": "C-1"})

	out := svc.Create(context.Background(), token, key)
	if out.Kind != saga.KindCreated {
		t.Fatalf("got %v: %s", out.Kind, out.Message)
	}
	if out.Ref == "" {
		t.Fatal("expected a surrogate id")
	}
	if store.Len() != 1 {
		t.Fatalf("store has %d records", store.Len())
	}
}

// A repeated identical create conflicts, the message names every key field,
// and the store still holds exactly one record.
func TestCreatePlaceConflict(t *testing.T) {
	token := issueToken(t, auth.RoleEngineer)
	store := NewInMemory()
	svc := NewService(PlaceDescriptor, auth.LocalGate{}, store, nil)
	key := mustKey(t, PlaceDescriptor, map[string]string{"name": "Place-1", "contract": "C-1"})

	first := svc.Create(context.Background(), token, key)
	second := svc.Create(context.Background(), token, key)
	if first.Kind != saga.KindCreated || second.Kind != saga.KindConflict {
		t.Fatalf("got %v then %v", first.Kind, second.Kind)
	}
	if !strings.Contains(second.Message, "Place-1") || !strings.Contains(second.Message, "C-1") {
		t.Fatalf("conflict message %q does not name the key", second.Message)
	}
	if store.Len() != 1 {
		t.Fatalf("store has %d records", store.Len())
	}
}

// A technician may not delete measurements; the denial happens before any
// peer or store interaction.
func TestDeleteMeasurementAsTechnicianForbidden(t *testing.T) {
	token := issueToken(t, auth.RoleTechnician)

	var peerCalls int32
	svc := NewService(MeasurementDescriptor, auth.LocalGate{}, NewInMemory(), func(key Key) []saga.Dependency {
		return []saga.Dependency{{
			Name: "never",
			Check: func(ctx context.Context, token string) peer.Result {
				atomic.AddInt32(&peerCalls, 1)
				return peer.Found()
			},
		}}
	})
	key := mustKey(t, MeasurementDescriptor, map[string]string{"name": "active-energy", "unit": "kWh"})

	out := svc.Delete(context.Background(), token, key)
	if out.Kind != saga.KindForbidden {
		t.Fatalf("got %v: %s", out.Kind, out.Message)
	}
	if atomic.LoadInt32(&peerCalls) != 0 {
		t.Fatal("peer was consulted despite the denial")
	}
}

// createPlaceItem with the place confirmed and the item peer down surfaces
// the item check as unavailable; the store is never touched.
func TestCreatePlaceItemItemPeerDown(t *testing.T) {
	token := issueToken(t, auth.RoleEngineer)

	placeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer placeSrv.Close()
	itemSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	itemSrv.Close() // refuse connections

	store := NewInMemory()
	svc := NewService(PlaceItemDescriptor, auth.LocalGate{}, store,
		PlaceItemDependencies(
			peer.NewClient(placeSrv.URL, time.Second),
			peer.NewClient(itemSrv.URL, 200*time.Millisecond),
		))
	key := mustKey(t, PlaceItemDescriptor, map[string]string{
		"place": "Place-1", "contract": "C-1", "item": "Meter-7",
	})

	out := svc.Create(context.Background(), token, key)
	if out.Kind != saga.KindDependencyUnavailable {
		t.Fatalf("got %v: %s", out.Kind, out.Message)
	}
	if out.Dependency != "item" {
		t.Fatalf("dependency = %q", out.Dependency)
	}
	if store.Len() != 0 {
		t.Fatal("store was touched")
	}
}

// The place check runs before the item check; a missing place stops the
// chain without calling the item peer.
func TestCreatePlaceItemDependencyOrder(t *testing.T) {
	token := issueToken(t, auth.RoleEngineer)

	placeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer placeSrv.Close()
	var itemCalls int32
	itemSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&itemCalls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer itemSrv.Close()

	svc := NewService(PlaceItemDescriptor, auth.LocalGate{}, NewInMemory(),
		PlaceItemDependencies(
			peer.NewClient(placeSrv.URL, time.Second),
			peer.NewClient(itemSrv.URL, time.Second),
		))
	key := mustKey(t, PlaceItemDescriptor, map[string]string{
		"place": "Place-1", "contract": "C-1", "item": "Meter-7",
	})

	out := svc.Create(context.Background(), token, key)
	if out.Kind != saga.KindDependencyMissing || out.Dependency != "place" {
		t.Fatalf("got %v dependency=%q", out.Kind, out.Dependency)
	}
	if atomic.LoadInt32(&itemCalls) != 0 {
		t.Fatal("item peer was called after the place miss")
	}
}

func TestExistsRoundTrip(t *testing.T) {
	token := issueToken(t, auth.RoleTechnician)
	store := NewInMemory()
	svc := NewService(ItemDescriptor, auth.LocalGate{}, store, nil)
	key := mustKey(t, ItemDescriptor, map[string]string{"name": "Meter-7"})

	if out := svc.Exists(context.Background(), token, key); out.Kind != saga.KindNotFound {
		t.Fatalf("empty store: got %v", out.Kind)
	}

	adminToken, _, err := auth.Issue("admin-1", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("issue admin token: %v", err)
	}
	if out := svc.Create(context.Background(), adminToken, key); out.Kind != saga.KindCreated {
		t.Fatalf("create: got %v", out.Kind)
	}
	out := svc.Exists(context.Background(), token, key)
	if out.Kind != saga.KindFound || out.Ref == "" {
		t.Fatalf("got %v ref=%q", out.Kind, out.Ref)
	}
}

func TestDeleteRemovesByNaturalKey(t *testing.T) {
	token := issueToken(t, auth.RoleAdmin)
	store := NewInMemory()
	svc := NewService(ProjectDescriptor, auth.LocalGate{}, store, nil)
	key := mustKey(t, ProjectDescriptor, map[string]string{"name": "Grid-North"})

	if out := svc.Create(context.Background(), token, key); out.Kind != saga.KindCreated {
		t.Fatalf("create: got %v", out.Kind)
	}
	if out := svc.Delete(context.Background(), token, key); out.Kind != saga.KindDeleted {
		t.Fatalf("delete: got %v", out.Kind)
	}
	if store.Len() != 0 {
		t.Fatalf("store has %d records", store.Len())
	}
	if out := svc.Delete(context.Background(), token, key); out.Kind != saga.KindNotFound {
		t.Fatalf("second delete: got %v", out.Kind)
	}
}
