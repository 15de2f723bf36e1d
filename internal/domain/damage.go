package domain

// DamageFace is one of the six inspected surfaces of a returned item.
type DamageFace string

const (
	FaceFront  DamageFace = "front"
	FaceBack   DamageFace = "back"
	FaceLeft   DamageFace = "left"
	FaceRight  DamageFace = "right"
	FaceTop    DamageFace = "top"
	FaceBottom DamageFace = "bottom"
)

// AllFaces returns the six faces in their display order.
func AllFaces() []DamageFace {
	return []DamageFace{FaceFront, FaceBack, FaceLeft, FaceRight, FaceTop, FaceBottom}
}

// Issue tags from the platform's damage vocabulary. The policy table is
// server-provided; these constants exist because the verdict rules name them.
const (
	IssueNone         = "none"
	IssueScratchHeavy = "scratch_heavy"
	IssueDentSmall    = "dent_small"
	IssueDentLarge    = "dent_large"
	IssueCrackSmall   = "crack_small"
	IssueCrackLarge   = "crack_large"
	IssueDeformed     = "deformed"
	IssueBroken       = "broken"
)

// DamageObservation records what was seen on one face of a returned item.
// Observations live only in the return form; they are never persisted.
type DamageObservation struct {
	Face      DamageFace `json:"face"`
	Issue     string     `json:"issue"`
	ImagePath string     `json:"-"`
}

// PolicyEntry is the wire shape of one damage-policy row.
type PolicyEntry struct {
	Issue  string `json:"issue"`
	Points int    `json:"points"`
}

// DamagePolicy maps an issue tag to its point value.
type DamagePolicy map[string]int

// NewDamagePolicy builds a policy table from the wire representation.
func NewDamagePolicy(entries []PolicyEntry) DamagePolicy {
	p := make(DamagePolicy, len(entries))
	for _, e := range entries {
		p[e.Issue] = e.Points
	}
	return p
}

// Points returns the point value for an issue; unknown issues score zero.
func (p DamagePolicy) Points(issue string) int {
	return p[issue]
}

// Condition is the binary verdict on a returned item.
type Condition string

const (
	ConditionGood    Condition = "good"
	ConditionDamaged Condition = "damaged"
)

// DamageAssessment is the derived scoring result. It is computed twice: once
// locally as a preview and once authoritatively by the server during the
// check phase; only the server's values are ever submitted.
type DamageAssessment struct {
	TotalPoints int       `json:"totalPoints"`
	Condition   Condition `json:"condition"`
}

// ReturnPreview is the server's response to a check-return call. TempImages
// are the uploaded face photos; they must be reused at confirm time instead
// of re-uploading.
type ReturnPreview struct {
	TempImages        []string          `json:"tempImages"`
	TotalDamagePoints int               `json:"totalDamagePoints"`
	FinalCondition    Condition         `json:"finalCondition"`
	DamageFaces       map[string]string `json:"damageFaces"`
	Note              string            `json:"note"`
}

// ReturnSubmission is the confirm-return request body. Score, condition and
// temp image URLs must come from the check phase's preview, not from any
// client-side computation.
type ReturnSubmission struct {
	Note              string            `json:"note"`
	DamageFaces       map[string]string `json:"damageFaces"`
	TempImages        []string          `json:"tempImages"`
	TotalDamagePoints int               `json:"totalDamagePoints"`
	FinalCondition    Condition         `json:"finalCondition"`
}
