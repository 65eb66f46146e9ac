package store

import (
	"testing"
	"time"
)

func TestLocationAppendAndLatest(t *testing.T) {
	db := setupTestDB(t)
	parent, _ := NewUserStore(db).Create("dad", "Dad")
	c, _ := NewChildStore(db).Create(parent.ID, "Lila", "device-1", "")
	ls := NewLocationStore(db)

	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	acc := 5.0
	for i := 0; i < 3; i++ {
		if _, err := ls.Append(c.ID, 10+float64(i), -72.3, &acc, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	latest, err := ls.Latest(c.ID, 2)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("len = %d, want 2", len(latest))
	}
	if latest[0].Latitude != 12 {
		t.Errorf("newest latitude = %v, want 12", latest[0].Latitude)
	}
	if latest[0].Accuracy == nil || *latest[0].Accuracy != 5 {
		t.Errorf("accuracy = %v, want 5", latest[0].Accuracy)
	}
}

func TestLocationListSince(t *testing.T) {
	db := setupTestDB(t)
	parent, _ := NewUserStore(db).Create("dad", "Dad")
	c, _ := NewChildStore(db).Create(parent.ID, "Lila", "device-1", "")
	ls := NewLocationStore(db)

	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	ls.Append(c.ID, 1, 1, nil, base.Add(-48*time.Hour))
	ls.Append(c.ID, 2, 2, nil, base)
	ls.Append(c.ID, 3, 3, nil, base.Add(time.Hour))

	points, err := ls.ListSince(c.ID, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("len = %d, want 2", len(points))
	}
	if points[0].Latitude != 2 || points[1].Latitude != 3 {
		t.Errorf("points out of order: %+v", points)
	}
	if points[0].Accuracy != nil {
		t.Error("expected nil accuracy")
	}
}
