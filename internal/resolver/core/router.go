package core

// Router maps a final blended confidence to one of three resolution paths.
// There is no state between calls; each resolution computes its own terminal
// path.
type Router struct {
	autoResolveThreshold int
	secondPassThreshold  int
}

func NewRouter(autoResolve, secondPass int) *Router {
	return &Router{autoResolveThreshold: autoResolve, secondPassThreshold: secondPass}
}

// Route is a pure function of the final blended confidence.
func (r *Router) Route(confidence int) ResolutionPath {
	switch {
	case confidence >= r.autoResolveThreshold:
		return PathAutoResolve
	case confidence >= r.secondPassThreshold:
		return PathSecondPass
	default:
		return PathManualReview
	}
}
