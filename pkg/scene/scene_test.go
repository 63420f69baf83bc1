package scene

import (
	"errors"
	"testing"
)

// solid is a minimal kernel.Solid for registry tests.
type solid struct{ size float64 }

func (s solid) BoundingBox() (min, max [3]float64) {
	return [3]float64{}, [3]float64{s.size, s.size, s.size}
}

func TestNewScene(t *testing.T) {
	sc := New()
	if sc.Len() != 0 {
		t.Errorf("empty scene should have 0 objects, got %d", sc.Len())
	}
	if len(sc.Collections()) != 0 {
		t.Errorf("empty scene should have no collections, got %v", sc.Collections())
	}
}

func TestAddGetLookup(t *testing.T) {
	sc := New()
	a := sc.Add("part", solid{1})
	if len(a.ID) != 8 {
		t.Errorf("ID %q should have 8 characters", a.ID)
	}
	if got := sc.Get(a.ID); got != a {
		t.Fatalf("Get(%s) = %v, want %v", a.ID, got, a)
	}
	if got := sc.Lookup("part"); got != a {
		t.Fatalf("Lookup('part') = %v, want %v", got, a)
	}
	if sc.Lookup("missing") != nil {
		t.Error("Lookup of an unknown name should return nil")
	}

	// A newer object with the same name shadows the older one.
	b := sc.Add("part", solid{2})
	if a.ID == b.ID {
		t.Fatal("objects should get distinct IDs")
	}
	if got := sc.Lookup("part"); got != b {
		t.Errorf("Lookup('part') should return the newest object")
	}
	if err := sc.Remove(b.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := sc.Lookup("part"); got != a {
		t.Errorf("after removing the newest object Lookup should fall back to the older one")
	}
}

func TestObjectsOrderAndRemove(t *testing.T) {
	sc := New()
	var ids []ObjectID
	for _, name := range []string{"a", "b", "c"} {
		ids = append(ids, sc.Add(name, solid{1}).ID)
	}
	if err := sc.Remove(ids[1]); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	objs := sc.Objects()
	if len(objs) != 2 || objs[0].Name != "a" || objs[1].Name != "c" {
		t.Fatalf("Objects() = %v, want a and c in order", objs)
	}
	if err := sc.Remove(ids[1]); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove error = %v, want ErrNotFound", err)
	}
	if err := sc.Replace(ids[0], solid{5}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if sc.Get(ids[0]).Solid != (solid{5}) {
		t.Error("Replace should swap the solid")
	}
}

func TestCollectionLifecycle(t *testing.T) {
	sc := New()
	keep := sc.Add("keep", solid{1})

	if err := sc.CreateCollection("x parts"); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if err := sc.CreateCollection("x parts"); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate CreateCollection error = %v, want ErrExists", err)
	}

	a := sc.Add("a", solid{1})
	b := sc.Add("b", solid{2})
	for _, id := range []ObjectID{a.ID, b.ID, a.ID} {
		if err := sc.Link("x parts", id); err != nil {
			t.Fatalf("Link: %v", err)
		}
	}
	objs, err := sc.Collection("x parts")
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("collection should hold 2 objects, got %d", len(objs))
	}

	consumed, err := sc.Consume("x parts")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if len(consumed) != 2 {
		t.Fatalf("Consume returned %d objects, want 2", len(consumed))
	}
	if objs, _ := sc.Collection("x parts"); len(objs) != 0 {
		t.Errorf("consumed collection should be empty, got %d", len(objs))
	}
	if sc.Get(a.ID) == nil {
		t.Error("consumed objects should stay registered")
	}

	// Objects still linked when the collection is deleted leave the scene.
	c := sc.Add("c", solid{3})
	if err := sc.Link("x parts", c.ID); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if err := sc.DeleteCollection("x parts"); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if sc.HasCollection("x parts") {
		t.Error("collection should be gone")
	}
	if sc.Get(c.ID) != nil {
		t.Error("linked object should be removed with its collection")
	}
	if sc.Get(keep.ID) == nil || sc.Get(a.ID) == nil {
		t.Error("unlinked objects should survive")
	}
}

func TestCollectionErrors(t *testing.T) {
	sc := New()
	o := sc.Add("o", solid{1})
	if err := sc.Link("nope", o.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Link to unknown collection error = %v, want ErrNotFound", err)
	}
	if err := sc.CreateCollection("out"); err != nil {
		t.Fatal(err)
	}
	if err := sc.Link("out", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Link of unknown object error = %v, want ErrNotFound", err)
	}
	if _, err := sc.Consume("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Consume error = %v, want ErrNotFound", err)
	}
	if err := sc.DeleteCollection("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteCollection error = %v, want ErrNotFound", err)
	}
}
