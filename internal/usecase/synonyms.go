package usecase

import (
	"fmt"
)

// SynonymGroup ties a head concept to the alternate phrasings forms use for it.
type SynonymGroup struct {
	Head       string   `mapstructure:"head"`
	Alternates []string `mapstructure:"alternates"`
}

// DefaultSynonymGroups covers the identity, contact and company fields that
// public funding forms ask for.
var DefaultSynonymGroups = []SynonymGroup{
	{Head: "nombre", Alternates: []string{"nombres", "primer nombre", "nombre completo"}},
	{Head: "apellido", Alternates: []string{"apellidos", "apellido completo"}},
	{Head: "apellido paterno", Alternates: []string{"primer apellido", "ap paterno"}},
	{Head: "apellido materno", Alternates: []string{"segundo apellido", "ap materno"}},
	{Head: "rut", Alternates: []string{"run", "rol unico tributario", "rol unico nacional", "cedula"}},
	{Head: "email", Alternates: []string{"correo", "correo electronico", "e-mail", "mail"}},
	{Head: "telefono", Alternates: []string{"tel", "fono", "celular", "movil"}},
	{Head: "direccion", Alternates: []string{"domicilio", "dir", "calle"}},
	{Head: "fecha nacimiento", Alternates: []string{"fecha nac", "fec nacimiento", "fecha de nacimiento"}},
	{Head: "razon social", Alternates: []string{"nombre empresa", "nombre comercial", "empresa"}},
	{Head: "giro", Alternates: []string{"actividad", "rubro", "giro comercial"}},
}

// WithDefaultSynonyms returns the built-in groups followed by extra. The
// defaults are copied, so callers never alias DefaultSynonymGroups.
func WithDefaultSynonyms(extra []SynonymGroup) []SynonymGroup {
	groups := make([]SynonymGroup, 0, len(DefaultSynonymGroups)+len(extra))
	groups = append(groups, DefaultSynonymGroups...)
	return append(groups, extra...)
}

// normalizedGroup is a SynonymGroup with every phrase normalized once.
// phrases[0] is the head.
type normalizedGroup struct {
	phrases []string
	members map[string]bool
}

// SynonymIndex answers bidirectional synonym lookups over a static table.
type SynonymIndex struct {
	normalizer *TextNormalizer
	groups     []normalizedGroup
}

// NewSynonymIndex normalizes the table and rejects phrases that land in more
// than one group, since a lookup would then depend on table order.
func NewSynonymIndex(normalizer *TextNormalizer, groups []SynonymGroup) (*SynonymIndex, error) {
	idx := &SynonymIndex{normalizer: normalizer}
	owner := make(map[string]string)

	for _, g := range groups {
		head := normalizer.Normalize(g.Head, true)
		if head == "" {
			return nil, fmt.Errorf("synonym table: empty head %q", g.Head)
		}

		ng := normalizedGroup{members: make(map[string]bool)}
		for _, raw := range append([]string{g.Head}, g.Alternates...) {
			phrase := normalizer.Normalize(raw, true)
			if phrase == "" || ng.members[phrase] {
				continue
			}
			if other, taken := owner[phrase]; taken {
				return nil, fmt.Errorf("synonym table: %q appears under both %q and %q", phrase, other, head)
			}
			owner[phrase] = head
			ng.members[phrase] = true
			ng.phrases = append(ng.phrases, phrase)
		}
		idx.groups = append(idx.groups, ng)
	}

	return idx, nil
}

// MustSynonymIndex is like NewSynonymIndex but panics on a table error.
// It is meant for the compiled-in defaults.
func MustSynonymIndex(normalizer *TextNormalizer, groups []SynonymGroup) *SynonymIndex {
	idx, err := NewSynonymIndex(normalizer, groups)
	if err != nil {
		panic(err)
	}
	return idx
}

// FindSynonyms returns the normalized text followed by every phrase of the
// group it belongs to (head first), without duplicates. Text outside the
// table yields just its normalized form.
func (s *SynonymIndex) FindSynonyms(text string) []string {
	normalized := s.normalizer.Normalize(text, true)
	synonyms := []string{normalized}

	for _, g := range s.groups {
		if !g.members[normalized] {
			continue
		}
		for _, phrase := range g.phrases {
			if phrase != normalized {
				synonyms = append(synonyms, phrase)
			}
		}
		break
	}

	return synonyms
}
