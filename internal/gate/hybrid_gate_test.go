package gate_test

import (
	"context"
	"testing"
	"time"

	"github.com/otiuna/sigpat/internal/gate"
)

// mockDependencyPolicy checks if resource.DependencyID == userID (stand-in
// for a holder check in tests).
type mockDependencyPolicy struct{}

type mockResource struct {
	DependencyID uint
}

func (p *mockDependencyPolicy) Can(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	if r, ok := resource.(*mockResource); ok {
		return r.DependencyID == userID
	}
	return false
}

func TestHybridGate_ProfileOnly(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	profile := gate.NewStaticProfile(1, "mesa_de_partes",
		gate.NewPermission("documento", gate.ActionCreate),
		gate.NewPermission("documento", gate.ActionView),
	)
	resolver.Set(1, profile)

	g := gate.NewHybridGate[uint](resolver)

	if !g.Can(context.Background(), 1, gate.ActionCreate, "documento", nil) {
		t.Error("user with permission should be allowed")
	}
	if g.Can(context.Background(), 1, gate.ActionDelete, "documento", nil) {
		t.Error("user without permission should be denied")
	}
	// User 2 has no profile
	if g.Can(context.Background(), 2, gate.ActionView, "documento", nil) {
		t.Error("user without profile should be denied")
	}
	// Zero user is denied
	if g.Can(context.Background(), 0, gate.ActionView, "documento", nil) {
		t.Error("zero user should be denied")
	}
}

func TestHybridGate_WithResourcePolicy(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	profile := gate.NewStaticProfile(1, "mesa_de_partes",
		gate.NewPermission("documento", gate.ActionView),
		gate.NewPermission("documento", gate.ActionDerive),
	)
	resolver.Set(1, profile)
	resolver.Set(2, profile) // User 2 has same profile

	g := gate.NewHybridGate[uint](resolver)
	g.Register("documento", &mockDependencyPolicy{})

	resource := &mockResource{DependencyID: 1}

	if !g.Can(context.Background(), 1, gate.ActionDerive, "documento", resource) {
		t.Error("holder should be allowed")
	}
	if g.Can(context.Background(), 2, gate.ActionDerive, "documento", resource) {
		t.Error("non-holder should be denied even with profile permission")
	}
}

func TestHybridGate_CanProfile(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	profile := gate.NewStaticProfile(1, "inventariador",
		gate.NewPermission("sesion", gate.ActionVerify),
	)
	resolver.Set(1, profile)

	g := gate.NewHybridGate[uint](resolver)
	g.Register("sesion", &mockDependencyPolicy{})

	// CanProfile ignores resource policies - just checks profile
	if !g.CanProfile(context.Background(), 1, gate.ActionVerify, "sesion") {
		t.Error("CanProfile should return true for user with permission")
	}
	if g.CanProfile(context.Background(), 1, gate.ActionDelete, "sesion") {
		t.Error("CanProfile should return false for missing permission")
	}
}

func TestCachedResolver_CachesProfile(t *testing.T) {
	inner := gate.NewStaticResolver[uint]()
	inner.Set(1, gate.NewStaticProfile(1, "inventariador"))

	cached := gate.NewCachedResolver[uint](inner, 5*time.Minute)

	p1, err := cached.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1.Name() != "inventariador" {
		t.Errorf("expected 'inventariador', got '%s'", p1.Name())
	}

	// Change the inner assignment; cached value must survive until TTL.
	inner.Set(1, gate.NewStaticProfile(1, "administrador"))

	p2, err := cached.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p2.Name() != "inventariador" {
		t.Errorf("expected cached 'inventariador', got '%s'", p2.Name())
	}

	// Invalidate forces a re-fetch.
	cached.Invalidate(1)
	p3, err := cached.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p3.Name() != "administrador" {
		t.Errorf("expected 'administrador' after invalidation, got '%s'", p3.Name())
	}
}
