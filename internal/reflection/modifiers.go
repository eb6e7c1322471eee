package reflection

// Modifier is a bitmask of declaration modifiers. The values match PHP's
// reflection constants so filters written against PHP keep working.
type Modifier int

const (
	IsStatic   Modifier = 1
	IsAbstract Modifier = 2
	IsFinal    Modifier = 4

	// Class-level bits.
	IsImplicitAbstract Modifier = 16
	IsExplicitAbstract Modifier = 32
	IsFinalClass       Modifier = 64

	IsPublic    Modifier = 256
	IsProtected Modifier = 512
	IsPrivate   Modifier = 1024

	// FilterAll matches every member, including one without modifier bits.
	FilterAll Modifier = -1
)

// Has reports whether every bit of flag is set.
func (m Modifier) Has(flag Modifier) bool {
	return m&flag == flag
}

// Matches reports whether m passes filter: any shared bit is enough.
func (m Modifier) Matches(filter Modifier) bool {
	return filter == FilterAll || m&filter != 0
}

var memberModifierNames = []struct {
	flag Modifier
	name string
}{
	{IsAbstract, "abstract"},
	{IsFinal, "final"},
	{IsPublic, "public"},
	{IsProtected, "protected"},
	{IsPrivate, "private"},
	{IsStatic, "static"},
}

// MemberNames returns the keywords for a method or property modifier set in
// declaration order.
func (m Modifier) MemberNames() []string {
	var names []string
	for _, mn := range memberModifierNames {
		if m.Has(mn.flag) {
			names = append(names, mn.name)
		}
	}
	return names
}

// ClassNames returns the keywords for a class modifier set.
func (m Modifier) ClassNames() []string {
	var names []string
	if m.Has(IsExplicitAbstract) {
		names = append(names, "abstract")
	} else if m.Has(IsImplicitAbstract) {
		names = append(names, "implicit abstract")
	}
	if m.Has(IsFinalClass) {
		names = append(names, "final")
	}
	return names
}
