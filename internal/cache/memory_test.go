package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got != "v" {
		t.Fatalf("got %q want %q", got, "v")
	}

	if _, err := c.Get(ctx, "nope"); !IsNotFound(err) {
		t.Fatalf("esperaba ErrNotFound, got %v", err)
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	if err := c.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := c.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("la key debería haber expirado, got %v", err)
	}
}

func TestMemory_SetNX(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	ok, err := c.SetNX(ctx, "k", "primero", time.Minute)
	if err != nil || !ok {
		t.Fatalf("primer SetNX debería insertar: ok=%v err=%v", ok, err)
	}
	ok, err = c.SetNX(ctx, "k", "segundo", time.Minute)
	if err != nil || ok {
		t.Fatalf("segundo SetNX debería fallar: ok=%v err=%v", ok, err)
	}

	// El valor original queda intacto
	got, err := c.Get(ctx, "k")
	if err != nil || got != "primero" {
		t.Fatalf("got %q err=%v, want %q", got, err, "primero")
	}
}

// Un SetNX perdedor no debe renovar el TTL de la reserva original.
func TestMemory_SetNX_NoTTLRefresh(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	if ok, _ := c.SetNX(ctx, "k", "v", 30*time.Millisecond); !ok {
		t.Fatal("insert inicial falló")
	}
	time.Sleep(15 * time.Millisecond)
	if ok, _ := c.SetNX(ctx, "k", "v", time.Hour); ok {
		t.Fatal("no debería insertar sobre key viva")
	}
	time.Sleep(25 * time.Millisecond)
	// Si el perdedor hubiera renovado el TTL, la key seguiría viva
	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Fatal("la reserva original debería haber expirado")
	}
}

func TestMemory_GetDel(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	got, err := c.GetDel(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("GetDel got %q err=%v", got, err)
	}
	if _, err := c.GetDel(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("segundo GetDel debería dar not found, got %v", err)
	}
}

func TestMemory_Stats(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	_ = c.Set(ctx, "a", "1", time.Minute)
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "missing")

	st, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Driver != "memory" || st.Keys != 1 || st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("stats inesperadas: %+v", st)
	}
}
