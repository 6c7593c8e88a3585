package overlay

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ziadkadry99/sigplace/internal/geometry"
)

func mustAdd(t *testing.T, s *Store, o Overlay) Overlay {
	t.Helper()
	got, err := s.Add(o)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return got
}

func TestAddAssignsID(t *testing.T) {
	s := NewStore(3)
	o := mustAdd(t, s, Overlay{XPercent: 10, YPercent: 10, WidthPercent: 20, HeightPercent: 10})
	if o.ID == "" {
		t.Fatal("expected generated ID")
	}
	if s.IndexOf(o.ID) != 0 {
		t.Errorf("IndexOf = %d, want 0", s.IndexOf(o.ID))
	}
}

func TestAddRejectsOutOfRangePage(t *testing.T) {
	s := NewStore(2)
	for _, page := range []int{-1, 2, 10} {
		_, err := s.Add(Overlay{PageIndex: page, WidthPercent: 10, HeightPercent: 10})
		if !errors.Is(err, ErrPageOutOfRange) {
			t.Errorf("page %d: err = %v, want ErrPageOutOfRange", page, err)
		}
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestForPagePreservesInsertionOrder(t *testing.T) {
	s := NewStore(3)
	pages := []int{0, 1, 0, 2, 1, 0}
	var added []Overlay
	for i, p := range pages {
		added = append(added, mustAdd(t, s, Overlay{
			ID:            string(rune('a' + i)),
			PageIndex:     p,
			XPercent:      float64(i),
			WidthPercent:  20,
			HeightPercent: 10,
		}))
	}

	for k := 0; k < 4; k++ {
		var want []Overlay
		for _, o := range added {
			if o.PageIndex == k {
				want = append(want, o)
			}
		}
		got := s.ForPage(k)
		if diff := cmp.Diff(want, got, cmpopts.EquateEmpty(), cmpopts.IgnoreUnexported(Blob{})); diff != "" {
			t.Errorf("ForPage(%d) mismatch (-want +got):\n%s", k, diff)
		}
	}
}

func TestUpdateGeometryPartial(t *testing.T) {
	s := NewStore(1)
	mustAdd(t, s, Overlay{XPercent: 10, YPercent: 20, WidthPercent: 30, HeightPercent: 40})

	if err := s.UpdateGeometry(0, Position(55, 65)); err != nil {
		t.Fatalf("UpdateGeometry: %v", err)
	}
	got, _ := s.Get(0)
	if got.XPercent != 55 || got.YPercent != 65 {
		t.Errorf("position = (%v, %v), want (55, 65)", got.XPercent, got.YPercent)
	}
	if got.WidthPercent != 30 || got.HeightPercent != 40 {
		t.Errorf("size changed by position patch: %vx%v", got.WidthPercent, got.HeightPercent)
	}
}

func TestUpdateGeometryAllowsOffPage(t *testing.T) {
	s := NewStore(1)
	mustAdd(t, s, Overlay{WidthPercent: 10, HeightPercent: 10})

	if err := s.UpdateGeometry(0, FromRect(rect(-40, 180, 250, 300))); err != nil {
		t.Fatalf("off-page geometry rejected: %v", err)
	}
}

func TestUpdateGeometryRejectsNegativeSize(t *testing.T) {
	s := NewStore(1)
	mustAdd(t, s, Overlay{WidthPercent: 10, HeightPercent: 10})

	err := s.UpdateGeometry(0, Dimensions(-1, 5))
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("err = %v, want ErrInvalidGeometry", err)
	}
	got, _ := s.Get(0)
	if got.WidthPercent != 10 {
		t.Errorf("failed update mutated store: width = %v", got.WidthPercent)
	}
}

func TestUpdateGeometryUnknownIndex(t *testing.T) {
	s := NewStore(1)
	if err := s.UpdateGeometry(0, Position(1, 1)); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRemoveNotifiesListeners(t *testing.T) {
	s := NewStore(1)
	a := mustAdd(t, s, Overlay{WidthPercent: 10, HeightPercent: 10})
	b := mustAdd(t, s, Overlay{WidthPercent: 10, HeightPercent: 10})

	var removed []string
	s.OnRemove(func(o Overlay) { removed = append(removed, o.ID) })

	if _, err := s.Remove(0); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.IndexOf(b.ID) != 0 {
		t.Errorf("remaining overlay index = %d, want 0", s.IndexOf(b.ID))
	}
	if _, err := s.RemoveByID(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveByID twice: err = %v, want ErrNotFound", err)
	}

	s.Reset()
	if diff := cmp.Diff([]string{a.ID, b.ID}, removed); diff != "" {
		t.Errorf("removed IDs mismatch (-want +got):\n%s", diff)
	}
	if s.Len() != 0 {
		t.Errorf("Len after Reset = %d", s.Len())
	}
}

func TestReturnedOverlaysAreCopies(t *testing.T) {
	s := NewStore(1)
	mustAdd(t, s, Overlay{XPercent: 5, WidthPercent: 10, HeightPercent: 10})

	all := s.All()
	all[0].XPercent = 99
	page := s.ForPage(0)
	page[0].XPercent = 98

	got, _ := s.Get(0)
	if got.XPercent != 5 {
		t.Errorf("store mutated through returned slice: x = %v", got.XPercent)
	}
}

func TestBlobDigest(t *testing.T) {
	a := NewBlob([]byte("png bytes"), "image/png")
	b := NewBlob([]byte("png bytes"), "image/png")
	c := NewBlob([]byte("other"), "image/png")

	if a.Digest() != b.Digest() {
		t.Error("identical data produced different digests")
	}
	if a.Digest() == c.Digest() {
		t.Error("different data produced identical digests")
	}
	if len(a.Digest()) != 64 {
		t.Errorf("digest length = %d, want 64", len(a.Digest()))
	}

	var nilBlob *Blob
	if nilBlob.Digest() != "" || nilBlob.Len() != 0 {
		t.Error("nil blob should have empty digest and zero length")
	}
}

func rect(x, y, w, h float64) geometry.PercentRect {
	return geometry.PercentRect{X: x, Y: y, Width: w, Height: h}
}
