package pipeline

// State is a step of one extraction. Front and back move through
// Preprocessing, Recognizing and Normalizing independently, then join at
// Extracting.
type State string

const (
	StateAwaitingInputs State = "awaiting_inputs"
	StatePreprocessing  State = "preprocessing"
	StateRecognizing    State = "recognizing"
	StateNormalizing    State = "normalizing"
	StateExtracting     State = "extracting"
	StateValidating     State = "validating"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Side identifies which face of the card an image shows.
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)
