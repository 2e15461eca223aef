package dto

// ScreeningRequest delivers clinical screening scores for a student. At least one score is
// required; a recommendation is logged as an observation for the given partial.
type ScreeningRequest struct {
	StudentID      string   `json:"student_id" validate:"required"`
	PartialID      string   `json:"partial_id" validate:"required_with=Recommendation,omitempty,oneof=p1 p2 p3"`
	GAD7           *float64 `json:"gad7" validate:"required_without=Cognitive,omitempty,gte=0,lte=21"`
	Cognitive      *float64 `json:"cognitive" validate:"required_without=GAD7,omitempty,gte=0,lte=100"`
	Recommendation string   `json:"recommendation" validate:"max=2000"`
	Source         string   `json:"source" validate:"max=64"`
}
