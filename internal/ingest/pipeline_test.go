package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/model"
	"github.com/iliyamo/toll-settlement/internal/repository"
)

// memWriter is an in-memory Writer keyed on station owners.
type memWriter struct {
	mu       sync.Mutex
	owners   map[string]string
	tags     map[string]string
	passes   []model.Pass
	failTag  string
	delay    time.Duration
	inFlight int32
	peak     int32
}

func newMemWriter(owners map[string]string) *memWriter {
	return &memWriter{owners: owners, tags: map[string]string{}}
}

func (w *memWriter) WritePass(ctx context.Context, row model.PassRow) (model.Pass, error) {
	n := atomic.AddInt32(&w.inFlight, 1)
	defer atomic.AddInt32(&w.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&w.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&w.peak, peak, n) {
			break
		}
	}
	if w.delay > 0 {
		time.Sleep(w.delay)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if row.TagID == w.failTag {
		return model.Pass{}, errors.New("connection reset")
	}
	owner, ok := w.owners[row.StationID]
	if !ok {
		return model.Pass{}, repository.ErrStationNotFound
	}
	w.tags[row.TagID] = row.CompanyID
	p := model.Pass{
		ID:        uint64(len(w.passes) + 1),
		StationID: row.StationID,
		TagID:     row.TagID,
		Timestamp: row.Timestamp,
		Charge:    row.Charge,
		Type:      model.ClassifyPass(row.CompanyID, owner),
	}
	w.passes = append(w.passes, p)
	return p, nil
}

func TestRunScenarios(t *testing.T) {
	tests := []struct {
		name     string
		owner    string
		wantType model.PassType
	}{
		{"visitor when tag operator differs", "OPB", model.PassVisitor},
		{"home when tag operator matches", "OPA", model.PassHome},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newMemWriter(map[string]string{"S1": tt.owner})
			p := &Pipeline{Writer: w, Workers: 2}
			res, err := p.Run(context.Background(), strings.NewReader("2024-01-01T08:00:00,S1,T1,OPA,2.50\n"))
			require.NoError(t, err)
			require.Len(t, res.Imported, 1)
			got := res.Imported[0].Pass
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, "2.50", got.Charge.StringFixed(2))
		})
	}
}

func TestRunSkipIsolation(t *testing.T) {
	input := strings.Join([]string{
		"2024-01-01 08:00,S1,T1,OPA,1.00",
		"2024-01-01 09:00,S1,T2,OPB,2.00",
		"2024-01-01 10:00,MISSING,T3,OPA,3.00",
		"2024-01-01 11:00,S2,T4,OPB,4.00",
		"2024-01-01 12:00,S2,T5,OPA,5.00",
	}, "\n")
	w := newMemWriter(map[string]string{"S1": "OPA", "S2": "OPB"})
	p := &Pipeline{Writer: w, Workers: 3}

	res, err := p.Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, res.Imported, 4)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 3, res.Skipped[0].Line)
	assert.Equal(t, apperr.CodeStationNotFound, res.Skipped[0].Code)
	assert.Empty(t, res.Failed)

	lines := make([]int, 0, len(res.Imported))
	for _, im := range res.Imported {
		lines = append(lines, im.Line)
	}
	assert.Equal(t, []int{1, 2, 4, 5}, lines)
}

func TestRunHeaderAndMixedOutcomes(t *testing.T) {
	input := "timestamp,tollID,tagRef,tagHomeID,charge\n" +
		"2024-01-01 08:00,S1,T1,OPA,1.00\n" +
		"2024-01-01 08:05,S1,,OPA,1.00\n" +
		"2024-01-01 08:10,S1,BROKEN,OPA,1.00\n" +
		"2024-01-01 08:15,S1,T9,OPB,-3\n"
	w := newMemWriter(map[string]string{"S1": "OPA"})
	w.failTag = "BROKEN"
	p := &Pipeline{Writer: w, Workers: 4, HasHeader: true}

	res, err := p.Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)
	assert.Equal(t, 2, res.Imported[0].Line)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 3, res.Skipped[0].Line)
	assert.Equal(t, 5, res.Skipped[1].Line)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 4, res.Failed[0].Line)
}

func TestRunRespectsWorkerBound(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("2024-01-01 08:00,S1,T1,OPA,1.00\n")
	}
	w := newMemWriter(map[string]string{"S1": "OPA"})
	w.delay = 2 * time.Millisecond
	p := &Pipeline{Writer: w, Workers: 3}

	res, err := p.Run(context.Background(), strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Len(t, res.Imported, 40)
	assert.LessOrEqual(t, atomic.LoadInt32(&w.peak), int32(3))
	// Re-running the same file inserts duplicates; tags stay unique.
	_, err = p.Run(context.Background(), strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Len(t, w.passes, 80)
	assert.Len(t, w.tags, 1)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	w := newMemWriter(map[string]string{"S1": "OPA"})
	res, err := (&Pipeline{Writer: w, Workers: 1}).Run(ctx, strings.NewReader("2024-01-01 08:00,S1,T1,OPA,1.00\n"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
	assert.Empty(t, res.Imported)
}

// blockingWriter holds every row until its context is done.
type blockingWriter struct{}

func (blockingWriter) WritePass(ctx context.Context, _ model.PassRow) (model.Pass, error) {
	<-ctx.Done()
	return model.Pass{}, ctx.Err()
}

func TestRunDeadlineDuringWritesIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	input := "2024-01-01 08:00,S1,T1,OPA,1.00\n2024-01-01 09:00,S1,T2,OPA,2.00\n"
	res, err := (&Pipeline{Writer: blockingWriter{}, Workers: 4}).Run(ctx, strings.NewReader(input))
	require.Error(t, err)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
	assert.Equal(t, 504, apperr.HTTPStatus(err))
	assert.Empty(t, res.Imported)
	assert.Len(t, res.Failed, 2)
}

func TestRunMalformedHeaderKeepsFirstDataRow(t *testing.T) {
	input := "a,\"b\"x,c\n2024-01-01 08:00,S1,T1,OPA,2.5\n"
	w := newMemWriter(map[string]string{"S1": "OPA"})

	res, err := (&Pipeline{Writer: w, Workers: 2, HasHeader: true}).Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)
	assert.Equal(t, 2, res.Imported[0].Line)
	assert.Empty(t, res.Skipped)
}

func TestRunMalformedFirstRowWithoutHeaderIsSkipped(t *testing.T) {
	input := "a,\"b\"x,c\n2024-01-01 08:00,S1,T1,OPA,2.5\n"
	w := newMemWriter(map[string]string{"S1": "OPA"})

	res, err := (&Pipeline{Writer: w, Workers: 2}).Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 1, res.Skipped[0].Line)
	assert.Equal(t, apperr.CodeMalformedRow, res.Skipped[0].Code)
}
