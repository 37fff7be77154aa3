package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPosition_IsCredit(t *testing.T) {
	credit := &Position{EntryPrice: -1.25}
	assert.True(t, credit.IsCredit())

	debit := &Position{EntryPrice: 2.50}
	assert.False(t, debit.IsCredit())
}

func TestPosition_SetMarkAndLastMark(t *testing.T) {
	p := &Position{}

	_, ok := p.LastMark()
	assert.False(t, ok, "no mark recorded yet")

	p.SetMark(3.40)
	mark, ok := p.LastMark()
	assert.True(t, ok)
	assert.Equal(t, 3.40, mark)

	// a later mark overwrites the earlier one and the "has mark" flag stays
	// true.
	p.SetMark(3.10)
	mark, ok = p.LastMark()
	assert.True(t, ok)
	assert.Equal(t, 3.10, mark)
}

func TestPosition_PrimaryExpiration(t *testing.T) {
	single := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	vertical := &Position{Legs: []Leg{{Expiration: single}, {Expiration: single}}}
	assert.True(t, vertical.PrimaryExpiration().Equal(single))

	near := time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC)
	far := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	calendar := &Position{
		Legs:           []Leg{{Expiration: near}, {Expiration: far}},
		NearExpiration: near,
		FarExpiration:  far,
	}
	assert.True(t, calendar.PrimaryExpiration().Equal(near))
}

func TestPosition_DTE(t *testing.T) {
	asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	exp := asOf.Add(10 * 24 * time.Hour)
	p := &Position{Legs: []Leg{{Expiration: exp}}}

	assert.Equal(t, 10, p.DTE(asOf))

	// past expiration clamps to 0, never negative.
	past := &Position{Legs: []Leg{{Expiration: asOf.Add(-72 * time.Hour)}}}
	assert.Equal(t, 0, past.DTE(asOf))
}

func TestNewTradeRecord_ComputesDaysInTrade(t *testing.T) {
	entry := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	exit := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	pos := &Position{
		ID:         "pos-1",
		StrategyID: "bull_put",
		EntryDate:  entry,
		EntryPrice: -1.50,
		Contracts:  2,
		MaxProfit:  150,
		MaxLoss:    350,
	}

	rec := NewTradeRecord(pos, exit, 410.25, 14.2, 55.0, -0.35, ExitProfitTarget)

	assert.Equal(t, "pos-1", rec.ID)
	assert.Equal(t, ExitProfitTarget, rec.ExitReason)
	assert.Equal(t, 18, rec.DaysInTrade)
	assert.Equal(t, pos.MaxLoss, rec.MaxLoss)
}
