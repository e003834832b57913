package types

// Section names a page section shown by the view router.
type Section string

// Page sections.
const (
	SectionHero       Section = "hero"
	SectionCVBuilder  Section = "cv-builder"
	SectionVoice      Section = "voice"
	SectionJobScanner Section = "job-scanner"
)

// Sections lists every section in navigation order.
func Sections() []Section {
	return []Section{SectionHero, SectionCVBuilder, SectionVoice, SectionJobScanner}
}

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	for _, known := range Sections() {
		if s == known {
			return true
		}
	}
	return false
}
