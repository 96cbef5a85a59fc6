package domain

// SignalName identifies one piece of required-ness evidence.
type SignalName string

const (
	SignalHTMLRequired         SignalName = "html_required"
	SignalAriaRequired         SignalName = "aria_required"
	SignalAsteriskInLabel      SignalName = "asterisk_in_label"
	SignalRequiredKeyword      SignalName = "required_keyword"
	SignalValidationConstraint SignalName = "has_validation_constraint"
	SignalBlurProbe            SignalName = "blur_probe_result"
)

// SignalNames lists every signal the classifier counts, in reporting order.
var SignalNames = []SignalName{
	SignalHTMLRequired,
	SignalAriaRequired,
	SignalAsteriskInLabel,
	SignalRequiredKeyword,
	SignalValidationConstraint,
	SignalBlurProbe,
}

// IsKnown reports whether the classifier recognises the signal.
func (n SignalName) IsKnown() bool {
	for _, known := range SignalNames {
		if n == known {
			return true
		}
	}
	return false
}

// Signal is a named observation about one field. A nil Value means the
// producer could not determine it.
type Signal struct {
	Name  SignalName `json:"name"`
	Value *bool      `json:"value"`
}

// NewSignal returns a signal with a known boolean value.
func NewSignal(name SignalName, value bool) Signal {
	v := value
	return Signal{Name: name, Value: &v}
}

// UnknownSignal returns a signal whose value could not be determined.
func UnknownSignal(name SignalName) Signal {
	return Signal{Name: name}
}

// IsTrue reports whether the signal carries a known true value.
func (s Signal) IsTrue() bool {
	return s.Value != nil && *s.Value
}

// IsKnown reports whether the signal carries a value at all.
func (s Signal) IsKnown() bool {
	return s.Value != nil
}
