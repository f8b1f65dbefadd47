package scoring

// Status is the terminal disposition of one candidate.
type Status string

const (
	// StatusRanked means the candidate passed every hard filter and
	// carries a comparable normalized score.
	StatusRanked Status = "ranked"
	// StatusHardFiltered is a deliberate, expected exclusion: the trade
	// is bad, not broken.
	StatusHardFiltered Status = "hard_filtered"
	// StatusErrored means the candidate could not be evaluated. It is
	// excluded from ranking but reported distinctly from a hard filter so
	// a failed computation is never mistaken for a judged trade.
	StatusErrored Status = "errored"
)

// ReasonCode identifies why a candidate was excluded or errored.
type ReasonCode string

const (
	ReasonNegativeExpectancy ReasonCode = "negative_expectancy"
	ReasonEarningsWindow     ReasonCode = "earnings_window"
	ReasonOpenInterestFloor  ReasonCode = "open_interest_floor"
	ReasonAssignmentRisk     ReasonCode = "assignment_risk"

	ReasonInvalidStructure  ReasonCode = "invalid_structure"
	ReasonInvalidSimulation ReasonCode = "invalid_simulation"
	ReasonScoringFault      ReasonCode = "scoring_fault"
)

// Verdict is the final ruling attached to a candidate. Reason is empty
// for a ranked candidate.
type Verdict struct {
	Status Status     `json:"status"`
	Reason ReasonCode `json:"reason,omitempty"`
	Detail string     `json:"detail,omitempty"`
}

// Penalty is one applied multiplicative factor with its documented
// policy rationale.
type Penalty struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
	Rationale  string  `json:"rationale"`
}

// FilterCheck records one hard-filter evaluation. Filters run after
// scoring so the reason is always recorded alongside the score.
type FilterCheck struct {
	Name   string     `json:"name"`
	Passed bool       `json:"passed"`
	Reason ReasonCode `json:"reason,omitempty"`
	Detail string     `json:"detail"`
}

// Breakdown is the auditable scoring trail for one candidate.
//
// BaseScore and FinalScore live on the strategy's own scale, whose
// theoretical maximum differs per type; NormalizedScore rescales to
// 0-100 and is the only figure comparable across strategy types.
type Breakdown struct {
	SubScores       map[string]float64 `json:"sub_scores"`
	BaseScore       float64            `json:"base_score"`
	TheoreticalMax  float64            `json:"theoretical_max"`
	Penalties       []Penalty          `json:"penalties"`
	FinalScore      float64            `json:"final_score"`
	NormalizedScore float64            `json:"normalized_score"`
	Filters         []FilterCheck      `json:"filters"`
}

// Outcome couples the verdict with the breakdown. Breakdown is nil only
// when evaluation errored before scoring completed.
type Outcome struct {
	Verdict   Verdict    `json:"verdict"`
	Breakdown *Breakdown `json:"breakdown,omitempty"`
}
