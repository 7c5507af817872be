package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		in   string
		want language.Tag
	}{
		{"", language.English},
		{"C", language.English},
		{"en_US.UTF-8", language.English},
		{"ru", language.Russian},
		{"ru_RU.UTF-8", language.Russian},
		{"ru-RU", language.Russian},
		{"de_DE", language.English},
		{"!!", language.English},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Match(tt.in), "input %q", tt.in)
	}
}

func TestDetect(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "ru_RU.UTF-8")

	assert.Equal(t, "en", Detect("en"))
	assert.Equal(t, "ru_RU.UTF-8", Detect(""))

	t.Setenv("LC_ALL", "en_GB.UTF-8")
	assert.Equal(t, "en_GB.UTF-8", Detect(""))
}

func TestPrinter_Loading(t *testing.T) {
	assert.Equal(t, "Loading...", New("en").Loading())
	assert.Equal(t, "Идёт загрузка...", New("ru").Loading())
	assert.Equal(t, language.Russian, New("ru_RU").Tag())
}

func TestPrinter_Plurals(t *testing.T) {
	en := New("en")
	assert.Equal(t, "1 listing cached", en.Sprintf(KeyListings, 1))
	assert.Equal(t, "4 listings cached", en.Sprintf(KeyListings, 4))
	assert.Equal(t, "2 source requests", en.Sprintf(KeyRequests, 2))

	ru := New("ru")
	assert.Equal(t, "1 список в кэше", ru.Sprintf(KeyListings, 1))
	assert.Equal(t, "3 списка в кэше", ru.Sprintf(KeyListings, 3))
	assert.Equal(t, "5 списков в кэше", ru.Sprintf(KeyListings, 5))
	assert.Equal(t, "2 ошибки", ru.Sprintf(KeyFailures, 2))
}

func TestPrinter_Formatting(t *testing.T) {
	assert.Equal(t, "failed to load: timeout", New("en").Sprintf(KeyLoadFailed, "timeout"))
	assert.Equal(t, "не удалось загрузить: timeout", New("ru").Sprintf(KeyLoadFailed, "timeout"))
	assert.Equal(t, "1,234,567", New("en").Number(1234567))
	assert.ElementsMatch(t, []string{"en", "ru"}, Supported())
}
