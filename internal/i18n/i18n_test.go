package i18n

import (
	"testing"

	"github.com/iwvelando/calculator-hub/pkg/bmi"
	"github.com/iwvelando/calculator-hub/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func loadAll(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load([]string{"en", "es", "fr", "de"}, "en")
	require.NoError(t, err)
	return b
}

func TestLoad(t *testing.T) {
	b := loadAll(t)
	assert.Equal(t, []string{"en", "es", "fr", "de"}, b.Locales())
	assert.Equal(t, "en", b.Default())

	b, err := Load([]string{"DE"}, "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "de"}, b.Locales(), "default always loaded first")

	_, err = Load([]string{"en", "pt"}, "en")
	assert.Error(t, err, "no catalog for pt")
}

func TestResolve(t *testing.T) {
	b := loadAll(t)

	tests := []struct {
		name       string
		path       string
		accept     string
		wantLocale string
		wantOK     bool
	}{
		{"path locale", "es", "", "es", true},
		{"path locale case", "FR", "de", "fr", true},
		{"unsupported path locale", "pt", "en", "pt", false},
		{"no path, no header", "", "", "en", true},
		{"accept language", "", "de-DE,de;q=0.9,en;q=0.5", "de", true},
		{"accept language regional", "", "fr-CA", "fr", true},
		{"accept language unmatched", "", "ja-JP", "en", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locale, ok := b.Resolve(tt.path, tt.accept)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantLocale, locale)
		})
	}
}

func TestT(t *testing.T) {
	b := loadAll(t)

	assert.Equal(t, "Monthly payment", b.T("en", "mortgage.monthly_payment"))
	assert.Equal(t, "Monatliche Rate", b.T("de", "mortgage.monthly_payment"))
	assert.Equal(t, "From currency", b.T("fr", "field.fromCurrency"), "falls back to default locale")
	assert.Equal(t, "no.such.key", b.T("es", "no.such.key"))
	assert.Equal(t, "360 monthly payments", b.T("en", "mortgage.payment_count", 360))
	assert.Equal(t, "1.000 Monatsraten", b.T("de", "mortgage.payment_count", 1000))
	assert.Equal(t, language.German, b.Tag("de"))
	assert.Equal(t, language.English, b.Tag("xx"))
}

func TestValidationMessage(t *testing.T) {
	b := loadAll(t)

	err := validation.NewError("interestRate", validation.ReasonOutOfRange)
	assert.Equal(t, "Interest rate is out of range", b.ValidationMessage("en", err))
	assert.Equal(t, "Zinssatz liegt außerhalb des zulässigen Bereichs", b.ValidationMessage("de", err))

	err = validation.NewError("widgets", validation.ReasonRequired)
	assert.Equal(t, "widgets is required", b.ValidationMessage("en", err))
}

func TestCatalogsCoverRecommendations(t *testing.T) {
	b := loadAll(t)
	categories := []bmi.Category{bmi.Underweight, bmi.Normal, bmi.Overweight, bmi.Obese, bmi.SeverelyObese}

	for _, locale := range b.Locales() {
		for _, category := range categories {
			assert.True(t, b.Has(locale, "bmi.category."+string(category)), "%s %s", locale, category)
			for _, age := range []int{10, 40, 70} {
				for _, gender := range []string{bmi.GenderMale, bmi.GenderFemale} {
					for _, key := range bmi.Recommendations(category, age, gender) {
						_, own := b.messages[locale][key]
						assert.True(t, own, "%s missing %s", locale, key)
					}
				}
			}
		}
	}
}

func TestCatalogsMatchDefault(t *testing.T) {
	b := loadAll(t)

	for _, locale := range b.Locales() {
		for key := range b.messages["en"] {
			_, own := b.messages[locale][key]
			assert.True(t, own, "%s missing %s", locale, key)
		}
	}
}
