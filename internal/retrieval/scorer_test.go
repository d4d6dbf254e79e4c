package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinearDecay(t *testing.T) {
	tests := []struct {
		age  float64
		want float64
	}{
		{age: 0, want: 1},
		{age: 200, want: 1},
		{age: 365, want: 1},
		{age: 730, want: 0.5},
		{age: 1095, want: 0},
		{age: 5000, want: 0},
		{age: -100, want: 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, LinearDecay(tt.age), 1e-9, "age %v", tt.age)
	}
}

func TestAuthorityWeight(t *testing.T) {
	assert.Equal(t, 2.4, TypeConstitution.AuthorityWeight())
	assert.Equal(t, 2.0, TypeStatute.AuthorityWeight())
	assert.Equal(t, 2.0, TypeEmergencyStatute.AuthorityWeight())
	assert.Equal(t, 1.0, TypeAgencyRegulation.AuthorityWeight())
	assert.Equal(t, DefaultAuthorityWeight, DocumentType("SURAT EDARAN").AuthorityWeight())
	assert.Len(t, KnownTypes(), 9)
}

func TestComposite_IsArithmeticMean(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	enacted := now.AddDate(-2, 0, 0)

	got := Composite(3.0, enacted, TypeGovernmentRegulation, now)
	want := (3.0 + LinearDecay(AgeDays(enacted, now)) + 1.8) / 3

	assert.InDelta(t, want, got, 1e-9)
}

func TestComposite_StatuteOutranksAgencyRegulation(t *testing.T) {
	now := time.Now()
	enacted := now.AddDate(-3, 0, 0)

	for _, text := range []float64{0, 0.5, 1, 4, 12} {
		statute := Composite(text, enacted, TypeStatute, now)
		agency := Composite(text, enacted, TypeAgencyRegulation, now)
		assert.Greater(t, statute, agency, "text score %v", text)
	}
}

func TestComposite_NewerOutranksOlderPastOffset(t *testing.T) {
	now := time.Now()
	newer := Composite(1, now.AddDate(-1, -6, 0), TypeStatute, now)
	older := Composite(1, now.AddDate(-2, -6, 0), TypeStatute, now)
	assert.Greater(t, newer, older)

	withinYearA := Composite(1, now.AddDate(0, -2, 0), TypeStatute, now)
	withinYearB := Composite(1, now.AddDate(0, -10, 0), TypeStatute, now)
	assert.InDelta(t, withinYearA, withinYearB, 1e-9)
}

func TestAgeDays_ZeroDateHasFullWeight(t *testing.T) {
	assert.Equal(t, 0.0, AgeDays(time.Time{}, time.Now()))
	assert.Equal(t, 1.0, LinearDecay(AgeDays(time.Time{}, time.Now())))
}
