package rewriter

// Kind tags what a Result asks the host to do
type Kind int

const (
	// Unchanged means the host keeps its own text and link
	Unchanged Kind = iota
	// TextOnly means the host replaces only the link text with HTML
	TextOnly
	// Fragment means the host uses HTML as the complete <a> element
	Fragment
	// Suppressed means the host drops the notice text entirely
	Suppressed
)

func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case TextOnly:
		return "text"
	case Fragment:
		return "fragment"
	case Suppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one rewrite opportunity
type Result struct {
	Kind Kind
	// HTML is the replacement text for TextOnly or the anchor for Fragment
	HTML string
}

// Changed reports whether the host has to apply anything
func (r Result) Changed() bool {
	return r.Kind != Unchanged
}

func unchanged() Result { return Result{Kind: Unchanged} }
