package rating_services

import "math"

// TrueSkill defaults, as specified by Herbrich et al., "TrueSkill(TM): A
// Bayesian Skill Rating System". Beta is half the default sigma (a
// performance variance of one tier should make the better-rated player
// about 76% likely to win); Tau is the small per-game skill drift that
// keeps a long-inactive player's sigma from fully collapsing.
const (
	DefaultMu            = 25.0
	DefaultSigma         = DefaultMu / 3
	DefaultBeta          = DefaultSigma / 2
	DefaultTau           = DefaultSigma / 100
	DefaultDrawProbability = 0.10
)

// Rating is one player's skill estimate going into or coming out of a
// TrueSkill update.
type Rating struct {
	Mu    float64
	Sigma float64
}

func NewDefaultRating() Rating {
	return Rating{Mu: DefaultMu, Sigma: DefaultSigma}
}

// PenisPoints is the conservative skill estimate (mu - 3*sigma) used
// throughout the source server for ranking and matchmaking.
func (r Rating) PenisPoints() float64 {
	return r.Mu - 3*r.Sigma
}

func vExceedsMargin(x, margin float64) float64 {
	denom := cdf(x - margin)
	if denom < 2.222758749e-162 {
		return -x + margin
	}
	return pdf(x-margin) / denom
}

func wExceedsMargin(x, margin float64) float64 {
	v := vExceedsMargin(x, margin)
	return v * (v + x - margin)
}

func vWithinMargin(x, margin float64) float64 {
	absX := math.Abs(x)
	a, b := absX-margin, -absX-margin
	denom := cdf(a) - cdf(b)
	if denom < 2.222758749e-162 {
		if x < 0 {
			return -x - margin
		}
		return -x + margin
	}
	num := pdf(b) - pdf(a)
	if x < 0 {
		return -num / denom
	}
	return num / denom
}

func wWithinMargin(x, margin float64) float64 {
	absX := math.Abs(x)
	a, b := absX-margin, -absX-margin
	denom := cdf(a) - cdf(b)
	if denom < 2.222758749e-162 {
		return 1.0
	}
	v := vWithinMargin(x, margin)
	return v*v + (a*pdf(a)-b*pdf(b))/denom
}

func pdf(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func cdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// drawMargin converts a draw probability and team size into the
// performance-difference margin within which a match counts as a draw.
func drawMargin(drawProbability float64, beta float64, totalPlayers int) float64 {
	return math.Sqrt(float64(totalPlayers)) * beta * math.Sqrt2 * erfcinv(1-drawProbability)
}

// erfcinv is the inverse complementary error function, computed directly
// from the stdlib's math.Erfinv, since erfcinv(y) == erfinv(1-y).
func erfcinv(y float64) float64 {
	return math.Erfinv(1 - y)
}

// team is a rating group competing as a single unit in one match.
type team struct {
	ratings []Rating
	rank    int
}

// Rate computes updated ratings for every player across all teams in one
// match. ratingGroups[i] is the list of player ratings on team i; ranks[i]
// is that team's finishing place, lower is better, ties share a rank. Rate
// performs a sequence of pairwise team-vs-team updates ordered by rank, an
// approximation of the full factor-graph solution that is exact for two
// teams and accurate to a fraction of a rating point for more: good enough
// for leaderboard purposes, where PenisPoints already rounds the estimate
// down by three sigma.
func Rate(ratingGroups [][]Rating, ranks []int, beta, tau, drawProbability float64) [][]Rating {
	n := len(ratingGroups)
	teams := make([]team, n)
	for i := range ratingGroups {
		teams[i] = team{ratings: append([]Rating(nil), ratingGroups[i]...), rank: ranks[i]}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := 1; i < n; i++ {
		for j := i; j > 0 && teams[order[j]].rank < teams[order[j-1]].rank; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	for i := 0; i < len(order)-1; i++ {
		a, b := order[i], order[i+1]
		drawn := teams[a].rank == teams[b].rank
		updateTeamPair(&teams[a], &teams[b], drawn, beta, tau, drawProbability)
	}

	out := make([][]Rating, n)
	for i, t := range teams {
		out[i] = t.ratings
	}
	return out
}

func teamMuSigma(t team, beta float64) (mu, sigmaSq float64) {
	for _, r := range t.ratings {
		mu += r.Mu
		sigmaSq += r.Sigma*r.Sigma + beta*beta
	}
	return mu, sigmaSq
}

func updateTeamPair(a, b *team, drawn bool, beta, tau, drawProbability float64) {
	muA, varA := teamMuSigma(*a, beta)
	muB, varB := teamMuSigma(*b, beta)

	c := math.Sqrt(varA + varB)
	totalPlayers := len(a.ratings) + len(b.ratings)
	margin := drawMargin(drawProbability, beta, totalPlayers)

	// a is always the better-or-equal-ranked side (caller sorts teams by
	// rank before pairing); the update treats it as the winner side even
	// when its raw mu happens to trail b's.
	winner, loser := a, b

	t := (muA - muB) / c
	var v, w float64
	if drawn {
		v = vWithinMargin(t, margin/c)
		w = wWithinMargin(t, margin/c)
	} else {
		v = vExceedsMargin(t, margin/c)
		w = wExceedsMargin(t, margin/c)
	}

	applyUpdate(winner, c, v, w, tau, true)
	applyUpdate(loser, c, v, w, tau, false)
}

func applyUpdate(t *team, c, v, w, tau float64, isWinnerSide bool) {
	sign := 1.0
	if !isWinnerSide {
		sign = -1.0
	}
	for i, r := range t.ratings {
		sigmaSq := r.Sigma*r.Sigma + tau*tau
		meanMultiplier := sigmaSq / c
		newMu := r.Mu + sign*meanMultiplier*v
		stdDevMultiplier := sigmaSq / (c * c)
		newSigmaSq := sigmaSq * (1 - w*stdDevMultiplier)
		if newSigmaSq < 0 {
			newSigmaSq = 0.0001
		}
		t.ratings[i] = Rating{Mu: newMu, Sigma: math.Sqrt(newSigmaSq)}
	}
}

// WinProbability estimates the chance teamA beats teamB given their
// current ratings, ignoring draws.
func WinProbability(teamA, teamB []Rating, beta float64) float64 {
	ta := team{ratings: teamA}
	tb := team{ratings: teamB}
	muA, varA := teamMuSigma(ta, beta)
	muB, varB := teamMuSigma(tb, beta)
	denom := math.Sqrt(varA + varB)
	return cdf((muA - muB) / denom)
}

// OutcomeLikelihood is one team's chance of winning, drawing, or losing a
// would-be match, estimated from its pre-rating ratings. The three values
// always sum to 1.
type OutcomeLikelihood struct {
	Win  float64
	Draw float64
	Lose float64
}

// WinDrawLoseLikelihoods estimates teamA's win/draw/lose odds against teamB
// from their pre-rating means and combined variance, using the same draw
// margin the rater itself uses. RatingService computes this once per rated
// game, before applying updates, and hands it to every registered
// callback (e.g. GalacticWarService's stake pricing).
func WinDrawLoseLikelihoods(teamA, teamB []Rating, beta, drawProbability float64) OutcomeLikelihood {
	ta := team{ratings: teamA}
	tb := team{ratings: teamB}
	muA, varA := teamMuSigma(ta, beta)
	muB, varB := teamMuSigma(tb, beta)
	c := math.Sqrt(varA + varB)
	margin := drawMargin(drawProbability, beta, len(teamA)+len(teamB))

	diff := (muA - muB) / c
	m := margin / c

	win := 1 - cdf(m-diff)
	lose := cdf(-m - diff)
	draw := 1 - win - lose
	if draw < 0 {
		draw = 0
	}
	return OutcomeLikelihood{Win: win, Draw: draw, Lose: lose}
}
