package usecase

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formaudit/backend/internal/domain"
)

func labeled(id, label string) domain.DiscoveredField {
	return domain.DiscoveredField{ID: id, Label: label, Type: domain.FieldTypeText, Visible: true, Enabled: true}
}

func TestNewMatchingService(t *testing.T) {
	testCases := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"uses provided threshold", 0.7, 0.7},
		{"uses default threshold when zero", 0, 0.8},
		{"uses default threshold when negative", -1, 0.8},
		{"uses default threshold above one", 1.5, 0.8},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewMatchingService(MatchConfig{Threshold: tc.threshold})
			if svc.Threshold() != tc.want {
				t.Errorf("Threshold() = %v, want %v", svc.Threshold(), tc.want)
			}
		})
	}
}

func TestNewChecklistEntries(t *testing.T) {
	svc := NewMatchingService(MatchConfig{})

	entries := svc.NewChecklistEntries([]string{"  Email ", "Ap. Paterno"})
	require.Len(t, entries, 2)

	assert.Equal(t, "Email", entries[0].Text)
	assert.Equal(t, "email", entries[0].Normalized)
	assert.Equal(t, "email", entries[0].CanonicalKey)
	assert.Contains(t, entries[0].Synonyms, "correo electronico")

	assert.Equal(t, "ap paterno", entries[1].Normalized)
	assert.Equal(t, "apellido paterno", entries[1].CanonicalKey)
	assert.Equal(t, []string{"ap paterno", "apellido paterno", "primer apellido"}, entries[1].Synonyms)
}

func TestMatch(t *testing.T) {
	svc := NewMatchingService(MatchConfig{})
	approx := cmpopts.EquateApprox(0, 1e-9)

	t.Run("resolves each tier", func(t *testing.T) {
		checklist := svc.NewChecklistEntries([]string{"RUT", "Email", "Nombre Completo"})
		fields := []domain.DiscoveredField{
			labeled("rut", "Rol Único Tributario"),
			labeled("mail", "Correo electrónico"),
			labeled("name", "Nombre completo (ej. JP MT)"),
		}

		got := svc.Match(checklist, fields)

		want := domain.MatchOutcome{
			Verdicts: []domain.MatchVerdict{
				{Entry: "RUT", Status: domain.MatchPresent, FieldID: "rut", FieldKey: "rol unico tributario", Similarity: 1.0, Tier: domain.TierExact},
				{Entry: "Email", Status: domain.MatchPresent, FieldID: "mail", FieldKey: "correo electronico", Similarity: 0.95, Tier: domain.TierSynonym},
				{Entry: "Nombre Completo", Status: domain.MatchPotentialEquivalent, FieldID: "name", FieldKey: "nombre completo ej jp mt", Similarity: 0.85, Tier: domain.TierSimilarity},
			},
			Extras: []string{},
		}
		if diff := cmp.Diff(want, got, approx); diff != "" {
			t.Errorf("Match mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("high similarity counts as present", func(t *testing.T) {
		checklist := svc.NewChecklistEntries([]string{"Nombre Completo"})
		got := svc.Match(checklist, []domain.DiscoveredField{labeled("name", "Nombre completo sr")})

		require.Len(t, got.Verdicts, 1)
		assert.Equal(t, domain.MatchPresent, got.Verdicts[0].Status)
		assert.Equal(t, domain.TierSimilarity, got.Verdicts[0].Tier)
		assert.InDelta(t, 0.6+0.4*(1-3.0/18.0), got.Verdicts[0].Similarity, 1e-9)
	})

	t.Run("low similarity is missing and field is extra", func(t *testing.T) {
		checklist := svc.NewChecklistEntries([]string{"Nombre Completo"})
		got := svc.Match(checklist, []domain.DiscoveredField{labeled("name", "Nombre y apellido")})

		want := []domain.MatchVerdict{{Entry: "Nombre Completo", Status: domain.MatchMissing, Tier: domain.TierNone}}
		if diff := cmp.Diff(want, got.Verdicts); diff != "" {
			t.Errorf("verdicts mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, []string{"nombre apellido"}, got.Extras)
	})

	t.Run("label decoration does not defeat exact tier", func(t *testing.T) {
		checklist := svc.NewChecklistEntries([]string{"Nombre Completo"})
		got := svc.Match(checklist, []domain.DiscoveredField{labeled("name", "Nombre Completo *")})

		require.Len(t, got.Verdicts, 1)
		assert.Equal(t, domain.TierExact, got.Verdicts[0].Tier)
	})

	t.Run("threshold is exclusive floor", func(t *testing.T) {
		strict := NewMatchingService(MatchConfig{Threshold: 0.85 + 1e-6})
		checklist := strict.NewChecklistEntries([]string{"Nombre Completo"})
		got := strict.Match(checklist, []domain.DiscoveredField{labeled("name", "Nombre completo (ej. JP MT)")})

		assert.Equal(t, domain.MatchMissing, got.Verdicts[0].Status)
	})

	t.Run("first listed entry wins a contested field", func(t *testing.T) {
		checklist := svc.NewChecklistEntries([]string{"Email", "Correo"})
		got := svc.Match(checklist, []domain.DiscoveredField{labeled("mail", "Correo electrónico")})

		require.Len(t, got.Verdicts, 2)
		assert.Equal(t, "mail", got.Verdicts[0].FieldID)
		assert.Equal(t, domain.TierSynonym, got.Verdicts[0].Tier)
		assert.Equal(t, domain.MatchMissing, got.Verdicts[1].Status)
		assert.Empty(t, got.Extras)
	})

	t.Run("a shared key is claimed once", func(t *testing.T) {
		checklist := svc.NewChecklistEntries([]string{"Teléfono", "Teléfono"})
		got := svc.Match(checklist, []domain.DiscoveredField{labeled("t1", "Teléfono"), labeled("t2", "Teléfono")})

		require.Len(t, got.Verdicts, 2)
		assert.Equal(t, domain.MatchPresent, got.Verdicts[0].Status)
		assert.Equal(t, "t1", got.Verdicts[0].FieldID)
		assert.Equal(t, "telefono", got.Verdicts[0].FieldKey)
		assert.Equal(t, domain.MatchMissing, got.Verdicts[1].Status)
		assert.Empty(t, got.Verdicts[1].FieldKey)
		assert.Empty(t, got.Extras)
	})

	t.Run("claimed key never reported as extra", func(t *testing.T) {
		checklist := svc.NewChecklistEntries([]string{"Teléfono"})
		got := svc.Match(checklist, []domain.DiscoveredField{labeled("t1", "Teléfono"), labeled("t2", "Teléfono")})

		require.Len(t, got.Verdicts, 1)
		assert.Equal(t, "telefono", got.Verdicts[0].FieldKey)
		assert.Empty(t, got.Extras)
	})

	t.Run("synonym tier skips a claimed key", func(t *testing.T) {
		checklist := svc.NewChecklistEntries([]string{"Email", "E-mail"})
		got := svc.Match(checklist, []domain.DiscoveredField{labeled("a", "Email"), labeled("b", "Email")})

		require.Len(t, got.Verdicts, 2)
		assert.Equal(t, "a", got.Verdicts[0].FieldID)
		assert.Equal(t, domain.TierExact, got.Verdicts[0].Tier)
		assert.Equal(t, domain.MatchMissing, got.Verdicts[1].Status)
		assert.Empty(t, got.Extras)
	})

	t.Run("unclaimed duplicates are each extra", func(t *testing.T) {
		got := svc.Match(nil, []domain.DiscoveredField{labeled("a", "Comuna"), labeled("b", "Comuna")})

		assert.Equal(t, []string{"comuna", "comuna"}, got.Extras)
	})

	t.Run("equal scores go to the first field", func(t *testing.T) {
		checklist := svc.NewChecklistEntries([]string{"Nombre Completo"})
		got := svc.Match(checklist, []domain.DiscoveredField{
			labeled("x", "Nombre completo sr"),
			labeled("y", "Nombre completo jr"),
		})

		assert.Equal(t, "x", got.Verdicts[0].FieldID)
		assert.Equal(t, []string{"nombre completo jr"}, got.Extras)
	})

	t.Run("empty checklist reports every field as extra", func(t *testing.T) {
		got := svc.Match(nil, []domain.DiscoveredField{labeled("a", "Comuna"), labeled("b", "Región")})

		assert.Empty(t, got.Verdicts)
		assert.Equal(t, []string{"comuna", "region"}, got.Extras)
	})

	t.Run("no fields marks everything missing", func(t *testing.T) {
		checklist := svc.NewChecklistEntries([]string{"RUT", "Email"})
		got := svc.Match(checklist, nil)

		require.Len(t, got.Verdicts, 2)
		for _, v := range got.Verdicts {
			assert.Equal(t, domain.MatchMissing, v.Status)
			assert.Equal(t, domain.TierNone, v.Tier)
		}
		assert.NotNil(t, got.Extras)
		assert.Empty(t, got.Extras)
	})

	t.Run("empty key can match an unlabeled field", func(t *testing.T) {
		checklist := svc.NewChecklistEntries([]string{"de la"})
		got := svc.Match(checklist, []domain.DiscoveredField{{Type: domain.FieldTypeText}})

		assert.Equal(t, domain.TierExact, got.Verdicts[0].Tier)
	})
}

func TestMatchInvariants(t *testing.T) {
	svc := NewMatchingService(MatchConfig{})
	checklist := svc.NewChecklistEntries([]string{
		"RUT", "Nombre", "Apellido Paterno", "Email", "Teléfono", "Dirección",
		"Comuna", "Razón Social", "Giro Comercial", "Email",
	})
	fields := []domain.DiscoveredField{
		labeled("f1", "Rol Único Tributario"),
		labeled("f2", "Nombres"),
		labeled("f3", "Primer apellido"),
		labeled("f4", "Correo"),
		labeled("f5", "Celular"),
		labeled("f6", "Domicilio"),
		labeled("f7", "Comuna"),
		labeled("f8", "Nombre empresa"),
		labeled("f9", "Actividad"),
		labeled("f10", "Correo"),
		labeled("f11", "Sitio web"),
	}

	got := svc.Match(checklist, fields)

	require.Len(t, got.Verdicts, len(checklist))
	claimed := make(map[string]bool)
	for i, v := range got.Verdicts {
		assert.Equal(t, checklist[i].Text, v.Entry)
		assert.GreaterOrEqual(t, v.Similarity, 0.0)
		assert.LessOrEqual(t, v.Similarity, 1.0)
		if !v.Matched() {
			continue
		}
		assert.False(t, claimed[v.FieldKey], "key %q claimed twice", v.FieldKey)
		claimed[v.FieldKey] = true
	}
	assert.Equal(t, domain.MatchMissing, got.Verdicts[9].Status, "second Email has no key left")

	unclaimed := 0
	for _, f := range fields {
		if !claimed[svc.normalizer.CanonicalKey(f.BestLabel())] {
			unclaimed++
		}
	}
	assert.Len(t, got.Extras, unclaimed)
	for _, key := range got.Extras {
		assert.False(t, claimed[key], "key %q both claimed and extra", key)
	}
	assert.Equal(t, []string{"sitio web"}, got.Extras)
}
