package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHitList_NormalizesOrderAndDuplicates(t *testing.T) {
	h := NewHitList([]string{"600000.SH", "000001.SZ", "600000.SH", ""})
	assert.Equal(t, HitList{"000001.SZ", "600000.SH"}, h)
	assert.True(t, h.Contains("600000.SH"))
	assert.False(t, h.Contains("300001.SZ"))
}

func TestNewHitList_NeverNil(t *testing.T) {
	assert.NotNil(t, NewHitList(nil))
	assert.Len(t, NewHitList(nil), 0)
}

func TestHitList_Equal(t *testing.T) {
	a := NewHitList([]string{"b", "a"})
	b := NewHitList([]string{"a", "b", "a"})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(NewHitList([]string{"a"})))
}

func TestCacheKey_String(t *testing.T) {
	k := CacheKey{Feature: "bbc", Date: "20240105"}
	assert.Equal(t, "feature:bbc:20240105", k.String())
}

func TestScanResult_Total(t *testing.T) {
	r := ScanResult{Scanned: 5, Skipped: 3, Errors: 1}
	assert.Equal(t, 9, r.Total())
	assert.False(t, r.FromCache())
	assert.Equal(t, "computed", r.Provenance.String())
	assert.Equal(t, "cached", ProvenanceCached.String())
}

func TestNewWorkItem_CarriesOnlyDetectorColumns(t *testing.T) {
	bars := Series{{Symbol: "other", Date: "20240101", Close: 10, Amount: 999, Change: 1}}
	w := NewWorkItem("bbc", 30, "A", bars)

	assert.Equal(t, WorkItemVersion, w.Version)
	assert.Equal(t, "A", w.Symbol)
	assert.Equal(t, 30, w.MinDays)
	assert.Equal(t, "A", w.Bars[0].Symbol)
	assert.Equal(t, 10.0, w.Bars[0].Close)
	assert.Zero(t, w.Bars[0].Amount)
	assert.Zero(t, w.Bars[0].Change)
}

func TestValidDate(t *testing.T) {
	assert.True(t, ValidDate("20240105"))
	assert.False(t, ValidDate("2024-01-05"))
	assert.False(t, ValidDate("2024015"))
	assert.False(t, ValidDate("2024010a"))
}

func TestSeries_UpToAndAfter(t *testing.T) {
	s := Series{{Date: "20240101"}, {Date: "20240102"}, {Date: "20240104"}}
	assert.Len(t, s.UpTo("20240102"), 2)
	assert.Len(t, s.UpTo("20240103"), 2)
	assert.Len(t, s.After("20240102"), 1)
	assert.Len(t, s.After("20231231"), 3)
	assert.Empty(t, s.After("20240104"))
}
