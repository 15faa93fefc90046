package rating_services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateTwoPlayerWinnerGainsLoserLoses(t *testing.T) {
	winner := NewDefaultRating()
	loser := NewDefaultRating()

	out := Rate([][]Rating{{winner}, {loser}}, []int{0, 1}, DefaultBeta, DefaultTau, DefaultDrawProbability)

	require := assert.New(t)
	require.Greater(out[0][0].Mu, winner.Mu, "winner's mean should increase")
	require.Less(out[1][0].Mu, loser.Mu, "loser's mean should decrease")
	require.Less(out[0][0].Sigma, winner.Sigma, "winner's uncertainty should shrink")
	require.Less(out[1][0].Sigma, loser.Sigma, "loser's uncertainty should shrink")
}

func TestRateDrawMovesRatingsTowardEachOther(t *testing.T) {
	stronger := Rating{Mu: 30, Sigma: DefaultSigma}
	weaker := Rating{Mu: 20, Sigma: DefaultSigma}

	out := Rate([][]Rating{{stronger}, {weaker}}, []int{0, 0}, DefaultBeta, DefaultTau, DefaultDrawProbability)

	assert.Less(t, out[0][0].Mu, stronger.Mu, "the stronger side should regress down on a draw")
	assert.Greater(t, out[1][0].Mu, weaker.Mu, "the weaker side should regress up on a draw")
}

func TestRateIsApproximatelyZeroSum(t *testing.T) {
	a := NewDefaultRating()
	b := NewDefaultRating()

	out := Rate([][]Rating{{a}, {b}}, []int{0, 1}, DefaultBeta, DefaultTau, DefaultDrawProbability)

	delta := (out[0][0].Mu - a.Mu) + (out[1][0].Mu - b.Mu)
	assert.InDelta(t, 0, delta, 0.25)
}

func TestPenisPointsIsMuMinusThreeSigma(t *testing.T) {
	r := Rating{Mu: 30, Sigma: 5}
	assert.Equal(t, 15.0, r.PenisPoints())
}

func TestWinProbabilityHigherForStrongerTeam(t *testing.T) {
	strong := []Rating{{Mu: 40, Sigma: DefaultSigma}}
	weak := []Rating{{Mu: 10, Sigma: DefaultSigma}}

	p := WinProbability(strong, weak, DefaultBeta)
	assert.Greater(t, p, 0.5)

	pInverse := WinProbability(weak, strong, DefaultBeta)
	assert.InDelta(t, 1.0, p+pInverse, 1e-9)
}

func TestWinProbabilityEqualTeamsIsAHalf(t *testing.T) {
	even := []Rating{NewDefaultRating()}
	p := WinProbability(even, even, DefaultBeta)
	assert.InDelta(t, 0.5, p, 1e-9)
}
