package settlement

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/model"
	"github.com/iliyamo/toll-settlement/internal/repository"
)

// memStore answers the aggregation queries from in-memory passes.  tags
// holds the tag's current operator; calls counts every store access.
type memStore struct {
	companies map[string]bool
	stations  map[string]string
	tags      map[string]string
	passes    []model.Pass
	calls     int
	err       error
}

func newMemStore() *memStore {
	return &memStore{
		companies: map[string]bool{"OPA": true, "OPB": true, "OPC": true},
		stations:  map[string]string{"S1": "OPB", "S2": "OPA", "S3": "OPC"},
		tags:      map[string]string{},
	}
}

func (m *memStore) add(ts time.Time, station, tag, tagOp, charge string) {
	m.tags[tag] = tagOp
	m.passes = append(m.passes, model.Pass{
		ID:        uint64(len(m.passes) + 1),
		StationID: station,
		TagID:     tag,
		Timestamp: ts,
		Charge:    decimal.RequireFromString(charge),
		Type:      model.ClassifyPass(tagOp, m.stations[station]),
	})
}

func (m *memStore) StationOwner(_ context.Context, id string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	op, ok := m.stations[id]
	if !ok {
		return "", repository.ErrStationNotFound
	}
	return op, nil
}

func (m *memStore) CompanyExists(_ context.Context, id string) (bool, error) {
	m.calls++
	return m.companies[id], m.err
}

func (m *memStore) OperatorExists(_ context.Context, id string) (bool, error) {
	m.calls++
	for _, op := range m.stations {
		if op == id {
			return true, m.err
		}
	}
	return false, m.err
}

func (m *memStore) StationPasses(_ context.Context, id string, w model.Window) ([]model.StationPass, error) {
	m.calls++
	var out []model.StationPass
	for _, p := range m.passes {
		if p.StationID == id && w.Contains(p.Timestamp) {
			out = append(out, model.StationPass{PassID: p.ID, Timestamp: p.Timestamp, TagID: p.TagID,
				TagProvider: m.tags[p.TagID], Type: p.Type, Charge: p.Charge})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, m.err
}

func (m *memStore) OperatorPasses(_ context.Context, stationOp, tagOp string, w model.Window) ([]model.OperatorPass, error) {
	m.calls++
	var out []model.OperatorPass
	for _, p := range m.passes {
		if m.stations[p.StationID] == stationOp && m.tags[p.TagID] == tagOp && w.Contains(p.Timestamp) {
			out = append(out, model.OperatorPass{PassID: p.ID, StationID: p.StationID, Timestamp: p.Timestamp, TagID: p.TagID, Charge: p.Charge})
		}
	}
	return out, m.err
}

func (m *memStore) PassesCost(_ context.Context, stationOp, tagOp string, w model.Window) (model.PassesCost, error) {
	m.calls++
	pc := model.PassesCost{Total: decimal.Zero}
	for _, p := range m.passes {
		if m.stations[p.StationID] == stationOp && m.tags[p.TagID] == tagOp && w.Contains(p.Timestamp) {
			pc.Count++
			pc.Total = pc.Total.Add(p.Charge)
		}
	}
	return pc, m.err
}

func (m *memStore) VisitorCharges(_ context.Context, op string, w model.Window) ([]model.VisitorCharges, error) {
	m.calls++
	agg := map[string]*model.VisitorCharges{}
	for _, p := range m.passes {
		tagOp := m.tags[p.TagID]
		if m.stations[p.StationID] != op || tagOp == op || !w.Contains(p.Timestamp) {
			continue
		}
		vc, ok := agg[tagOp]
		if !ok {
			vc = &model.VisitorCharges{VisitingOpID: tagOp, Total: decimal.Zero}
			agg[tagOp] = vc
		}
		vc.Count++
		vc.Total = vc.Total.Add(p.Charge)
	}
	var out []model.VisitorCharges
	for _, vc := range agg {
		out = append(out, *vc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitingOpID < out[j].VisitingOpID })
	return out, m.err
}

var jan1 = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

// scenarioA: tag T1 of OPA crosses OPB's station S1 for 2.50.
func scenarioA() *memStore {
	m := newMemStore()
	m.add(jan1, "S1", "T1", "OPA", "2.50")
	return m
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name, from, to string
		code           string
	}{
		{"valid", "20240101", "20240131", ""},
		{"single day", "20240101", "20240101", ""},
		{"too short", "2024011", "20240131", apperr.CodeInvalidDate},
		{"not digits", "2024-1-1", "20240131", apperr.CodeInvalidDate},
		{"impossible day", "20240230", "20240301", apperr.CodeInvalidDate},
		{"reversed", "20240201", "20240101", apperr.CodeInvalidPeriod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ParsePeriod(tt.from, tt.to)
			if tt.code == "" {
				require.NoError(t, err)
				assert.Equal(t, "00:00:00", w.Start.Format("15:04:05"))
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}
}

func TestChargesByScenarioC(t *testing.T) {
	e := NewEngine(scenarioA(), time.Second)
	rep, err := e.ChargesBy(context.Background(), "OPB", "20240101", "20240131")
	require.NoError(t, err)
	require.Len(t, rep.Visitors, 1)
	assert.Equal(t, "OPA", rep.Visitors[0].VisitingOpID)
	assert.Equal(t, int64(1), rep.Visitors[0].Count)
	assert.Equal(t, "2.50", rep.Visitors[0].Total.StringFixed(2))
}

func TestChargesByExcludesHomeTraffic(t *testing.T) {
	m := scenarioA()
	m.add(jan1, "S1", "T2", "OPB", "9.00")
	rep, err := NewEngine(m, 0).ChargesBy(context.Background(), "opb", "20240101", "20240101")
	require.NoError(t, err)
	require.Len(t, rep.Visitors, 1)
	assert.Equal(t, "OPA", rep.Visitors[0].VisitingOpID)
}

func TestNetChargesScenarioD(t *testing.T) {
	e := NewEngine(scenarioA(), time.Second)
	rep, err := e.NetCharges(context.Background(), "OPB", "OPA", "20240101", "20240131")
	require.NoError(t, err)
	assert.Equal(t, "2.50", rep.OwedByOp2.StringFixed(2))
	assert.Equal(t, "0.00", rep.OwedByOp1.StringFixed(2))
	assert.Equal(t, "2.50", rep.Net.StringFixed(2))
}

func TestNetChargesAntisymmetryAndIdentity(t *testing.T) {
	m := newMemStore()
	m.add(jan1, "S1", "T1", "OPA", "2.50")
	m.add(jan1.Add(time.Hour), "S1", "T3", "OPA", "1.333")
	m.add(jan1, "S2", "T2", "OPB", "4.10")
	m.add(jan1, "S2", "T4", "OPC", "7.00")
	e := NewEngine(m, 0)

	xy, err := e.NetCharges(context.Background(), "OPB", "OPA", "20240101", "20240101")
	require.NoError(t, err)
	yx, err := e.NetCharges(context.Background(), "OPA", "OPB", "20240101", "20240101")
	require.NoError(t, err)

	assert.True(t, xy.Net.Equal(yx.Net.Neg()), "%s vs %s", xy.Net, yx.Net)
	assert.True(t, xy.Net.Equal(xy.OwedByOp2.Sub(xy.OwedByOp1).Round(2)))
	assert.Equal(t, "-0.27", xy.Net.StringFixed(2))
}

func TestNetChargesOneSidedIsReported(t *testing.T) {
	m := newMemStore()
	m.add(jan1, "S2", "T2", "OPB", "3.00")
	rep, err := NewEngine(m, 0).NetCharges(context.Background(), "OPB", "OPA", "20240101", "20240101")
	require.NoError(t, err)
	assert.Equal(t, "-3.00", rep.Net.StringFixed(2))
}

func TestEmptyPeriodIsNoContent(t *testing.T) {
	e := NewEngine(scenarioA(), 0)
	ctx := context.Background()

	_, err := e.StationPasses(ctx, "S1", "20230101", "20230131")
	assert.ErrorIs(t, err, apperr.ErrNoContent)
	_, err = e.PassAnalysis(ctx, "OPB", "OPA", "20230101", "20230131")
	assert.ErrorIs(t, err, apperr.ErrNoContent)
	_, err = e.PassesCost(ctx, "OPB", "OPA", "20230101", "20230131")
	assert.ErrorIs(t, err, apperr.ErrNoContent)
	_, err = e.ChargesBy(ctx, "OPB", "20230101", "20230131")
	assert.ErrorIs(t, err, apperr.ErrNoContent)
	_, err = e.NetCharges(ctx, "OPB", "OPA", "20230101", "20230131")
	assert.ErrorIs(t, err, apperr.ErrNoContent)
}

func TestWindowBoundary(t *testing.T) {
	m := newMemStore()
	m.add(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), "S1", "T1", "OPA", "1.00")
	m.add(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "S1", "T1", "OPA", "5.00")

	rep, err := NewEngine(m, 0).StationPasses(context.Background(), "S1", "20240101", "20240131")
	require.NoError(t, err)
	require.Len(t, rep.Passes, 1)
	assert.Equal(t, "1.00", rep.Passes[0].Charge.StringFixed(2))
	assert.Equal(t, "OPB", rep.StationOperator)
	assert.Equal(t, "OPA", rep.Passes[0].TagProvider)
	assert.Equal(t, model.PassVisitor, rep.Passes[0].Type)
}

func TestPassesCost(t *testing.T) {
	m := scenarioA()
	m.add(jan1.Add(time.Minute), "S1", "T9", "OPA", "1.25")
	rep, err := NewEngine(m, 0).PassesCost(context.Background(), "OPB", "OPA", "20240101", "20240101")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rep.Cost.Count)
	assert.Equal(t, "3.75", rep.Cost.Total.StringFixed(2))
}

func TestValidationRunsBeforeStorage(t *testing.T) {
	tests := []struct {
		name string
		call func(*Engine) error
		kind apperr.Kind
	}{
		{"bad date", func(e *Engine) error { _, err := e.ChargesBy(context.Background(), "OPB", "2024", "20240101"); return err }, apperr.KindValidation},
		{"unknown station", func(e *Engine) error {
			_, err := e.StationPasses(context.Background(), "NOPE", "20240101", "20240101")
			return err
		}, apperr.KindNotFoundReference},
		{"not a station operator", func(e *Engine) error {
			_, err := e.PassAnalysis(context.Background(), "ZZZ", "OPA", "20240101", "20240101")
			return err
		}, apperr.KindBadParameter},
		{"unknown tag operator", func(e *Engine) error {
			_, err := e.PassesCost(context.Background(), "OPB", "ZZZ", "20240101", "20240101")
			return err
		}, apperr.KindNotFoundReference},
		{"unknown company", func(e *Engine) error {
			_, err := e.NetCharges(context.Background(), "OPB", "ZZZ", "20240101", "20240101")
			return err
		}, apperr.KindNotFoundReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := scenarioA()
			err := tt.call(NewEngine(m, 0))
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, 400, apperr.HTTPStatus(err))
		})
	}

	m := scenarioA()
	_, err := NewEngine(m, 0).ChargesBy(context.Background(), "OPB", "bad", "20240101")
	require.Error(t, err)
	assert.Zero(t, m.calls)
}

func TestStorageErrorIsStorageKind(t *testing.T) {
	m := scenarioA()
	m.err = errors.New("too many connections")
	_, err := NewEngine(m, 0).ChargesBy(context.Background(), "OPB", "20240101", "20240101")
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	assert.Equal(t, 500, apperr.HTTPStatus(err))
}
