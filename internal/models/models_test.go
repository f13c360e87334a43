package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageTransitions(t *testing.T) {
	cases := []struct {
		from, to Stage
		want     bool
	}{
		{StageBaru, StageProses, true},
		{StageBaru, StageSelesai, true},
		{StageProses, StageDitolak, true},
		{StageProses, StageProses, false},
		{StageProses, StageBaru, false},
		{StageSelesai, StageDitolak, false},
		{StageDitolak, StageProses, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.False(t, Stage("arsip").CanTransitionTo(StageSelesai))
}

func TestStageDecodeRejectsUnknown(t *testing.T) {
	var p Permohonan
	err := json.Unmarshal([]byte(`{"id":1,"status":"arsip"}`), &p)
	require.Error(t, err)

	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"status":"Proses"}`), &p))
	assert.Equal(t, StageProses, p.Status)
	assert.Equal(t, "Verifikasi Dokumen", p.Status.Label())
}

func TestStageLabelPanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { _ = Stage("arsip").Label() })
}

func TestRequirementsDecodeShapes(t *testing.T) {
	var l Layanan
	require.NoError(t, json.Unmarshal([]byte(`{"persyaratan":["KTP","KK"]}`), &l))
	assert.Equal(t, Requirements{"KTP", "KK"}, l.Persyaratan)

	require.NoError(t, json.Unmarshal([]byte(`{"persyaratan":"[\"KTP\",\"Surat Pengantar RT\"]"}`), &l))
	assert.Equal(t, Requirements{"KTP", "Surat Pengantar RT"}, l.Persyaratan)

	require.NoError(t, json.Unmarshal([]byte(`{"persyaratan":"KTP\n\n  KK  \r\nPas foto"}`), &l))
	assert.Equal(t, Requirements{"KTP", "KK", "Pas foto"}, l.Persyaratan)
}

func TestTimestampLayouts(t *testing.T) {
	var ev StatusEvent
	require.NoError(t, json.Unmarshal([]byte(`{"step":"Pengajuan Diterima","tanggal":"2025-01-15 08:30:00"}`), &ev))
	assert.Equal(t, time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC), ev.Tanggal.Time)
	assert.True(t, ev.Matches(StageBaru))
	assert.False(t, ev.Matches(StageProses))

	require.NoError(t, json.Unmarshal([]byte(`{"step":"proses","tanggal":null}`), &ev))
	assert.True(t, ev.Tanggal.IsZero())
	assert.True(t, ev.Matches(StageProses))

	out, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":"proses","tanggal":null}`, string(out))
}

func TestSelection(t *testing.T) {
	sel := NewSelection(3, 1)
	assert.True(t, sel.Toggle(2))
	assert.False(t, sel.Toggle(3))
	assert.Equal(t, []int64{1, 2}, sel.IDs())

	sel.SelectAllVisible([]int64{1, 2, 5})
	assert.Equal(t, []int64{1, 2, 5}, sel.IDs())

	sel.SelectAllVisible([]int64{1, 2, 5})
	assert.Zero(t, sel.Len())

	sel = NewSelection(1, 2, 3)
	sel.Retain([]int64{3, 4})
	assert.Equal(t, []int64{3}, sel.IDs())
}

func TestKindForMIME(t *testing.T) {
	assert.Equal(t, BerkasImage, KindForMIME("image/png"))
	assert.Equal(t, BerkasDocument, KindForMIME("application/pdf"))
}
