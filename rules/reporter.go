package rules

import "github.com/liamcoop/ilrvalidation/model"

// Reporter raises violations on behalf of one rule. Rules hold a Reporter
// rather than sharing a base type.
type Reporter struct {
	RuleName string
}

// NewReporter creates a reporter for ruleName
func NewReporter(ruleName string) Reporter {
	return Reporter{RuleName: ruleName}
}

// Name returns the rule name the reporter raises under
func (r Reporter) Name() string {
	return r.RuleName
}

// Field is a parameter awaiting formatting by the handler
type Field struct {
	Name  string
	Value any
}

// F builds a Field
func F(name string, value any) Field {
	return Field{Name: name, Value: value}
}

// Raise reports one violation for the learner, optionally tied to a delivery
func (r Reporter) Raise(h ErrorHandler, learnRefNumber string, aimSequenceNumber *int, fields ...Field) {
	params := make([]Parameter, 0, len(fields))
	for _, f := range fields {
		params = append(params, h.BuildErrorMessageParameter(f.Name, f.Value))
	}
	h.Handle(r.RuleName, learnRefNumber, aimSequenceNumber, params)
}

// RaiseForDelivery reports one violation tied to the delivery's aim sequence number
func (r Reporter) RaiseForDelivery(h ErrorHandler, learner *model.Learner, delivery *model.LearningDelivery, fields ...Field) {
	seq := delivery.AimSeqNumber
	r.Raise(h, learner.LearnRefNumber, &seq, fields...)
}
