package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceCDF is a second, independently-written implementation of the
// standard normal CDF (via math.Erfc), used to cross-check stdNormCDF
// without sharing code paths.
func referenceCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func TestBSM_SignConvention(t *testing.T) {
	// Call delta in (0,1), put delta in (-1,0).
	cases := []struct {
		name string
		s    float64
	}{
		{"deep OTM put / deep ITM call underlying", 460},
		{"ATM", 400},
		{"deep ITM put / deep OTM call underlying", 340},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			call, err := BSM(Call, tc.s, 400, 30.0/365, 0.20, 0.04, 0.015)
			require.NoError(t, err)
			put, err := BSM(Put, tc.s, 400, 30.0/365, 0.20, 0.04, 0.015)
			require.NoError(t, err)

			assert.Greater(t, call.Delta, 0.0)
			assert.Less(t, call.Delta, 1.0)
			assert.Greater(t, put.Delta, -1.0)
			assert.Less(t, put.Delta, 0.0)
		})
	}
}

func TestBSM_DividendOffsetsATMDelta(t *testing.T) {
	// With q>0 the dividend drift pulls the ATM call delta below its
	// no-dividend value: about 0.5159 with q=0.03 against about 0.5343 with
	// q=0 for these inputs (b + v^2/2 stays positive, so both exceed 0.5).
	call, err := BSM(Call, 400, 400, 30.0/365, 0.20, 0.04, 0.03)
	require.NoError(t, err)
	assert.InDelta(t, 0.5159, call.Delta, 1e-4)

	callNoDiv, err := BSM(Call, 400, 400, 30.0/365, 0.20, 0.04, 0.0)
	require.NoError(t, err)
	assert.Greater(t, callNoDiv.Delta, call.Delta)
}

func TestBSM_ExpirationCollapsesToIntrinsic(t *testing.T) {
	call, err := BSM(Call, 410, 400, 0, 0.20, 0.04, 0.015)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, call.Price, 1e-9)
	assert.Equal(t, 1.0, call.Delta)

	putOTM, err := BSM(Put, 410, 400, 0, 0.20, 0.04, 0.015)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, putOTM.Price, 1e-9)
	assert.Equal(t, 0.0, putOTM.Delta)
}

func TestBSM_ZeroVolCollapsesToDiscountedIntrinsic(t *testing.T) {
	s, k, tYears, r, q := 420.0, 400.0, 30.0/365, 0.04, 0.0
	call, err := BSM(Call, s, k, tYears, 0, r, q)
	require.NoError(t, err)

	forward := s * math.Exp((r-q)*tYears)
	want := math.Exp(-r*tYears) * math.Max(0, forward-k)
	assert.InDelta(t, want, call.Price, 1e-9)
}

func TestBSM_InvalidInputsReturnPricingError(t *testing.T) {
	_, err := BSM(Call, -1, 400, 1, 0.2, 0.04, 0.0)
	require.Error(t, err)

	_, err = BSM(Call, 400, 400, -1, 0.2, 0.04, 0.0)
	require.Error(t, err)
}

func TestBSM_MatchesReferenceCDF(t *testing.T) {
	for _, x := range []float64{-3, -1, -0.1, 0, 0.1, 1, 3} {
		assert.InDelta(t, referenceCDF(x), stdNormCDF(x), 1e-12)
	}
}

// TestBSM_DeltaMatchesReferenceAcrossGrid cross-checks delta against a
// second hand-derived BSM delta formula across 7 DTEs x 7 moneyness points x
// {call,put} = 98 points.
func TestBSM_DeltaMatchesReferenceAcrossGrid(t *testing.T) {
	dtes := []int{7, 14, 21, 30, 45, 60, 90}
	moneyness := []float64{-0.05, -0.02, -0.01, 0, 0.01, 0.02, 0.05}
	const spot = 400.0
	const vol = 0.18
	const r = 0.04
	const q = 0.015

	for _, dte := range dtes {
		tYears := float64(dte) / 365.0
		for _, m := range moneyness {
			strike := spot * (1 + m)
			for _, ot := range []OptionType{Call, Put} {
				out, err := BSM(ot, spot, strike, tYears, vol, r, q)
				require.NoError(t, err)

				b := r - q
				sqrtT := math.Sqrt(tYears)
				d1 := (math.Log(spot/strike) + (b+vol*vol/2)*tYears) / (vol * sqrtT)
				var wantDelta float64
				if ot == Call {
					wantDelta = math.Exp((b-r)*tYears) * referenceCDF(d1)
				} else {
					wantDelta = math.Exp((b-r)*tYears) * (referenceCDF(d1) - 1.0)
				}
				assert.InDelta(t, wantDelta, out.Delta, 1e-6)
			}
		}
	}
}
