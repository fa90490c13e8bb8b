package feeds

import (
	"context"

	"github.com/hazyhaar/climateboard/internal/snapshot"
)

// Static values that have no machine-readable feed yet.
const (
	SeaLevelSource  = "https://sealevel.nasa.gov/"
	SeaLevelRiseMM  = 92.0
	TideGaugeSource = "https://psmsl.org/data/obtaining/stations/432.php"
	TideGaugeNote   = "Dublin tide-gauge shows a gradual long-term rise."
)

// SeaLevel reports global mean sea level rise since 1993 in millimetres.
type SeaLevel struct {
	MM float64
}

func (SeaLevel) Name() string { return "sealevel" }

func (s SeaLevel) Fetch(context.Context, Getter) (*snapshot.Reading, error) {
	mm := s.MM
	if mm == 0 {
		mm = SeaLevelRiseMM
	}
	r := snapshot.NewReading(s.Name(), SeaLevelSource)
	r.Metrics[snapshot.SeaLevelMM] = snapshot.Num(mm)
	return r, nil
}

func (s SeaLevel) Placeholder() *snapshot.Reading {
	r := snapshot.NewReading(s.Name(), SeaLevelSource)
	r.Metrics[snapshot.SeaLevelMM] = snapshot.Missing()
	return r
}

// TideGauge carries the note on PSMSL station 432 (Dublin).
type TideGauge struct{}

func (TideGauge) Name() string { return "psmsl" }

func (t TideGauge) Fetch(context.Context, Getter) (*snapshot.Reading, error) {
	r := snapshot.NewReading(t.Name(), TideGaugeSource)
	r.Metrics[snapshot.DublinNote] = snapshot.Str(TideGaugeNote)
	return r, nil
}

func (t TideGauge) Placeholder() *snapshot.Reading {
	r := snapshot.NewReading(t.Name(), TideGaugeSource)
	r.Metrics[snapshot.DublinNote] = snapshot.Missing()
	return r
}
