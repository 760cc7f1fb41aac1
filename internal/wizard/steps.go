package wizard

// Direction indicates which way the user is moving through the wizard.
type Direction int

const (
	// DirectionNext advances to the following step.
	DirectionNext Direction = iota
	// DirectionBack returns to the previous step.
	DirectionBack
)

const (
	// MinStep is the first wizard screen.
	MinStep = 1
	// MaxStep is the final wizard screen.
	MaxStep = 7
	// StepPhotosOnly is the virtual step used by photo-only edit flows.
	StepPhotosOnly = 8

	basicInfoStep = 1
)

// requiredFields maps each step to the fields that must be present before the
// user may advance past it. Steps 6 and 7 collect optional preferences and
// photos.
var requiredFields = map[int][]string{
	1: {"profileFor", "gender"},
	2: {"city", "height", "maritalStatus"},
	3: {"education", "occupation"},
	4: {"aboutMe"},
	5: {"phoneNumber"},
}

// RequiredFields returns the required field names for a step. The returned
// slice must not be mutated.
func RequiredFields(step int) []string {
	return requiredFields[step]
}

// AllRequiredFields returns the union of every step's required fields in step
// order, used for the pre-submission gate.
func AllRequiredFields() []string {
	fields := make([]string, 0, 8)
	for step := MinStep; step <= MaxStep; step++ {
		fields = append(fields, requiredFields[step]...)
	}
	return fields
}

// ComputeNextStep resolves the step that follows current in the given
// direction. It is pure: bounds are clamped to [MinStep, MaxStep], and when
// basic data was pre-populated upstream the basic-info step is skipped and
// never re-entered going back.
func ComputeNextStep(current int, hasBasicData bool, direction Direction) int {
	current = clampStep(current)

	switch direction {
	case DirectionNext:
		if current == basicInfoStep && hasBasicData {
			return basicInfoStep + 1
		}
		return clampStep(current + 1)
	case DirectionBack:
		if current == basicInfoStep+1 && hasBasicData {
			return current
		}
		return clampStep(current - 1)
	}

	return current
}

// NormalizeStartStep picks the first step shown when the wizard opens.
func NormalizeStartStep(hasBasicData bool) int {
	if hasBasicData {
		return basicInfoStep + 1
	}
	return basicInfoStep
}

func clampStep(step int) int {
	if step < MinStep {
		return MinStep
	}
	if step > MaxStep {
		return MaxStep
	}
	return step
}
