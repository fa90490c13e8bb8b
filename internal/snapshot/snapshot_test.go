package snapshot

import (
	"reflect"
	"testing"
	"time"
)

func TestMerge_CopiesMetricsAndSource(t *testing.T) {
	// WHAT: Merge folds a feed reading into the snapshot.
	// WHY: The board builds the snapshot exclusively through Merge.
	s := New(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	r := NewReading("co2", "https://gml.noaa.gov/ccgg/trends/")
	r.Metrics[CO2PPM] = Num(424.61)
	r.Series[SeriesCO2] = []Point{{At: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), Value: 424.61}}
	s.Merge(r)

	got, ok := s.Number(CO2PPM)
	if !ok || got != 424.61 {
		t.Errorf("co2_ppm: got %v ok=%v", got, ok)
	}
	if s.Sources["co2"] != "https://gml.noaa.gov/ccgg/trends/" {
		t.Errorf("source: got %q", s.Sources["co2"])
	}
	if len(s.Series[SeriesCO2]) != 1 {
		t.Errorf("series: got %d points", len(s.Series[SeriesCO2]))
	}
}

func TestMerge_Nil(t *testing.T) {
	// WHAT: Merging a nil reading is a no-op.
	s := New(time.Now())
	s.Merge(nil)
	if len(s.Metrics) != 0 {
		t.Errorf("metrics: got %d", len(s.Metrics))
	}
}

func TestPlaceholderAccessors(t *testing.T) {
	// WHAT: Placeholder and absent metrics read as unusable.
	// WHY: The renderer relies on this to choose placeholder text.
	s := New(time.Now())
	s.Set(FiresCount, Missing())
	s.Set(DublinNote, Str("rising"))

	if _, ok := s.Number(FiresCount); ok {
		t.Error("placeholder should not be usable")
	}
	if !s.IsPlaceholder(FiresCount) {
		t.Error("fires_count should be placeholder")
	}
	if !s.IsPlaceholder(OHCValue) {
		t.Error("absent metric should count as placeholder")
	}
	if s.Text(DublinNote) != "rising" {
		t.Errorf("text: got %q", s.Text(DublinNote))
	}
	if s.PlaceholderCount() != 1 {
		t.Errorf("placeholder count: got %d", s.PlaceholderCount())
	}
}

func TestNames_Sorted(t *testing.T) {
	s := New(time.Now())
	s.Set(OHCYear, Num(2024))
	s.Set(CO2PPM, Num(1))
	s.Set(FiresCount, Num(2))
	want := []string{CO2PPM, FiresCount, OHCYear}
	if got := s.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("names: got %v, want %v", got, want)
	}
}

func TestFailed(t *testing.T) {
	s := New(time.Now())
	s.Record(FeedStatus{Feed: "co2", OK: true})
	s.Record(FeedStatus{Feed: "nsidc", OK: false, Error: "http 503"})
	s.Record(FeedStatus{Feed: "fires", Disabled: true})
	if got := s.Failed(); !reflect.DeepEqual(got, []string{"nsidc"}) {
		t.Errorf("failed: got %v", got)
	}
}
