package rt

// MatchCon checks v against one constructor tag and borrows its fields on
// a match. Matching a black-holed block raises the pattern-match-failure
// panic: this is the channel through which a returned lazy cycle reaches
// user code.
func MatchCon(ctx *Context, v Value, tag Tag) ([]Value, bool) {
	if !v.IsBlock() || v.H == 0 {
		return nil, false
	}
	b := ctx.Heap.Get(v.H)
	if b.IsBlackhole() {
		panic(ctx.eb.matchOnBlackhole(v.H))
	}
	if b.Tag != tag {
		return nil, false
	}
	return b.Fields[:b.ScanSize], true
}
