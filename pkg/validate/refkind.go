package validate

// RefKind classifies a reference by its first path segment.
type RefKind int

const (
	refOther RefKind = iota
	refAction
	refSigner
	refVariable
	refOutput
	refFlow
	refInput
)

func (k RefKind) String() string {
	switch k {
	case refAction:
		return "action"
	case refSigner:
		return "signer"
	case refVariable:
		return "variable"
	case refOutput:
		return "output"
	case refFlow:
		return "flow"
	case refInput:
		return "input"
	case refOther:
		return "other"
	}
	return "unknown"
}

// classify maps a root segment to its kind. "env" shares the input
// namespace.
func classify(root string) RefKind {
	switch root {
	case "action":
		return refAction
	case "signer":
		return refSigner
	case "variable":
		return refVariable
	case "output":
		return refOutput
	case "flow":
		return refFlow
	case "input", "env":
		return refInput
	}
	return refOther
}
