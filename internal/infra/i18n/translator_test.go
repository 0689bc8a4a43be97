//go:build !integration

package i18n

import (
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	translator, err := newTranslatorFromBytes([]byte("greeting: Hola\nplayers: \"%d/%d players\""))
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got := translator.T("greeting"); got != "Hola" {
			t.Errorf("wanted 'Hola', got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := translator.T("nonexistent_key"); got != "nonexistent_key" {
			t.Errorf("wanted 'nonexistent_key', got '%s'", got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got := translator.T("players", 3, 4); got != "3/4 players" {
			t.Errorf("wanted '3/4 players', got '%s'", got)
		}
	})
}

func TestNewTranslator(t *testing.T) {
	t.Run("should load from an fs", func(t *testing.T) {
		fsys := fstest.MapFS{"locales/xx.yaml": {Data: []byte("k: v")}}
		tr, err := NewTranslator(fsys, "xx")
		if err != nil {
			t.Fatalf("NewTranslator failed: %v", err)
		}
		if tr.T("k") != "v" || tr.Lang() != "xx" {
			t.Error("unexpected translator state")
		}
	})

	t.Run("should fail for a missing language", func(t *testing.T) {
		if _, err := NewTranslator(fstest.MapFS{}, "zz"); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("embedded locales share the same keys", func(t *testing.T) {
		en, err := NewTranslator(LocalesFS, "en")
		if err != nil {
			t.Fatalf("load en: %v", err)
		}
		es, err := NewTranslator(LocalesFS, "es")
		if err != nil {
			t.Fatalf("load es: %v", err)
		}
		for k := range en.translations {
			if _, ok := es.translations[k]; !ok {
				t.Errorf("es locale is missing key %q", k)
			}
		}
	})
}
