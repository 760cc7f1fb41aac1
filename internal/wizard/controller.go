package wizard

import "github.com/karthiknish/aroosi-onboarding/internal/normalize"

// Controller gates step transitions behind the validation policy. Transition
// computation itself stays pure; the controller only decides whether the move
// is allowed and what the UI should focus when it is not.
type Controller struct {
	policy     Policy
	focusOrder map[int][]string
}

// NewController builds a controller around the injected validation policy.
// A nil policy falls back to required-field presence checks, and the focus
// order defaults to each step's required-field order.
func NewController(policy Policy) *Controller {
	if policy == nil {
		policy = RequiredFieldsPolicy{}
	}
	focus := make(map[int][]string, len(requiredFields))
	for step, fields := range requiredFields {
		focus[step] = fields
	}
	return &Controller{policy: policy, focusOrder: focus}
}

// SetFocusOrder overrides the focus priority for a step.
func (c *Controller) SetFocusOrder(step int, fields []string) {
	c.focusOrder[step] = fields
}

// AdvanceResult describes the outcome of a requested transition.
type AdvanceResult struct {
	Step        int
	Moved       bool
	FocusField  string
	Message     string
	FieldErrors FieldErrors
}

// Advance validates the current step (for forward moves) and resolves the next
// step. Moving back never requires validation. On validation failure the
// controller stays on the current step and surfaces the first invalid field;
// the user corrects and resubmits, there is no retry loop.
func (c *Controller) Advance(current int, hasBasicData bool, direction Direction, draft map[string]any) AdvanceResult {
	current = clampStep(current)

	if direction == DirectionNext {
		result := c.policy.ValidateStep(current, draft)
		if !result.IsValid {
			return AdvanceResult{
				Step:        current,
				FocusField:  FirstInvalidField(result.FieldErrors, c.focusOrder[current]),
				Message:     Summary(result.FieldErrors),
				FieldErrors: result.FieldErrors,
			}
		}
	}

	next := ComputeNextStep(current, hasBasicData, direction)
	return AdvanceResult{Step: next, Moved: next != current}
}

// ApplyFields merges submitted step fields into the draft through normalized
// setters so the draft only ever holds canonical values.
func ApplyFields(draft map[string]any, fields map[string]any) {
	for key, value := range fields {
		switch key {
		case "height":
			if s, ok := value.(string); ok {
				draft[key] = normalize.Height(s)
				continue
			}
		case "preferredCities":
			if s, ok := value.(string); ok {
				draft[key] = normalize.CityList(s)
				continue
			}
		}
		draft[key] = value
	}
}
