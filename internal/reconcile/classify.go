package reconcile

import (
	"strings"

	"github.com/noah-isme/academy-reconcile-api/internal/models"
)

// ClassificationSource tells where a class kind was read from.
type ClassificationSource string

const (
	SourceKind    ClassificationSource = "kind"
	SourceName    ClassificationSource = "name"
	SourceUnknown ClassificationSource = "unknown"
)

// Classification is the resolved kind of a class and whether students pay for it directly.
type Classification struct {
	Kind    models.ClassKind     `json:"kind"`
	Payable bool                 `json:"payable"`
	Source  ClassificationSource `json:"source"`
}

// legacyNameHints maps localized words found in class names of rows that predate
// the kind column. Checked in order; the first hit wins.
var legacyNameHints = []struct {
	word string
	kind models.ClassKind
}{
	{"particular", models.ClassKindIndividual},
	{"individual", models.ClassKindIndividual},
	{"grupal", models.ClassKindGroup},
	{"grupo", models.ClassKindGroup},
	{"interna", models.ClassKindInternal},
	{"interno", models.ClassKindInternal},
	{"escuela", models.ClassKindSchool},
	{"colegio", models.ClassKindSchool},
}

// ClassifyClass resolves the kind of a class. The structured kind wins; the name
// lookup only runs for rows without a valid kind.
// TODO: drop the name lookup once legacy rows are backfilled with a kind.
func ClassifyClass(class models.TeachingClass) Classification {
	if class.Kind.Valid() {
		return Classification{Kind: class.Kind, Payable: payableKind(class.Kind), Source: SourceKind}
	}

	name := strings.ToLower(class.Name)
	for _, hint := range legacyNameHints {
		if strings.Contains(name, hint.word) {
			return Classification{Kind: hint.kind, Payable: payableKind(hint.kind), Source: SourceName}
		}
	}

	return Classification{Source: SourceUnknown}
}

func payableKind(kind models.ClassKind) bool {
	return kind == models.ClassKindIndividual || kind == models.ClassKindGroup
}
