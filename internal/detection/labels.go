package detection

// NoClass marks a scan that found no sign.
const NoClass = -1

// DefaultLabels are the classes of the bundled sign model, in output order.
var DefaultLabels = Labels{
	"50 speed limit",
	"give way",
	"STOP",
	"no vehicles",
	"no entry",
	"pedestrian crossing",
}

// Labels maps class indices to human-readable names.
type Labels []string

// Name returns the label for class, or "none" when the index is unknown.
func (l Labels) Name(class int) string {
	if class < 0 || class >= len(l) {
		return "none"
	}
	return l[class]
}
