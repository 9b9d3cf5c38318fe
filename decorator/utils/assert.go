package utils

// Assert panics when condition is false. It guards invariants whose failure
// means a bug in this module rather than a host race.
func Assert(condition bool, message ...string) {
	if !condition {
		if len(message) == 1 {
			panic(message[0])
		}
		panic("failed assertion")
	}
}
