// Package i18n holds the game's UI strings and resolves language tags to a
// supported language.
package i18n

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Default is the fallback language code.
const Default = "en"

// messages is the source table registered into the catalog at init.
var messages = map[string]map[string]string{
	"en": {
		"name":           "English",
		"play":           "Play",
		"level":          "Level",
		"correct":        "Correct!",
		"wrong":          "Wrong!",
		"game_over":      "Game Over!",
		"profiles":       "Profiles",
		"leaderboard":    "Leaderboard",
		"quit":           "Quit",
		"score":          "Score",
		"answer":         "Answer",
		"submit":         "Submit",
		"level_up":       "Level up!",
		"answer_was":     "The answer was",
		"mistakes":       "Mistakes",
		"new_profile":    "New profile",
		"back":           "Back",
		"handwriting_on": "Handwriting input enabled",
	},
	"es": {
		"name":           "Español",
		"play":           "Jugar",
		"level":          "Nivel",
		"correct":        "¡Correcto!",
		"wrong":          "¡Incorrecto!",
		"game_over":      "¡Juego Terminado!",
		"profiles":       "Perfiles",
		"leaderboard":    "Clasificación",
		"quit":           "Salir",
		"score":          "Puntos",
		"answer":         "Respuesta",
		"submit":         "Enviar",
		"level_up":       "¡Subes de nivel!",
		"answer_was":     "La respuesta era",
		"mistakes":       "Errores",
		"new_profile":    "Nuevo perfil",
		"back":           "Volver",
		"handwriting_on": "Escritura a mano activada",
	},
	"fr": {
		"name":           "Français",
		"play":           "Jouer",
		"level":          "Niveau",
		"correct":        "Correct !",
		"wrong":          "Faux !",
		"game_over":      "Jeu Terminé !",
		"profiles":       "Profils",
		"leaderboard":    "Classement",
		"quit":           "Quitter",
		"score":          "Score",
		"answer":         "Réponse",
		"submit":         "Valider",
		"level_up":       "Niveau supérieur !",
		"answer_was":     "La réponse était",
		"mistakes":       "Erreurs",
		"new_profile":    "Nouveau profil",
		"back":           "Retour",
		"handwriting_on": "Écriture manuscrite activée",
	},
	"de": {
		"name":           "Deutsch",
		"play":           "Spielen",
		"level":          "Stufe",
		"correct":        "Richtig!",
		"wrong":          "Falsch!",
		"game_over":      "Spiel Vorbei!",
		"profiles":       "Profile",
		"leaderboard":    "Bestenliste",
		"quit":           "Beenden",
		"score":          "Punkte",
		"answer":         "Antwort",
		"submit":         "Senden",
		"level_up":       "Stufe geschafft!",
		"answer_was":     "Die Antwort war",
		"mistakes":       "Fehler",
		"new_profile":    "Neues Profil",
		"back":           "Zurück",
		"handwriting_on": "Handschrift-Eingabe aktiv",
	},
}

var supportedCodes = []string{"en", "es", "fr", "de"}

var supportedTags = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
}

var tagMatcher = language.NewMatcher(supportedTags)

var (
	builder  = catalog.NewBuilder(catalog.Fallback(language.English))
	printers = map[string]*message.Printer{}
)

// Every supported language gets every English key, overridden by its own
// translation where one exists.
func init() {
	for i, code := range supportedCodes {
		tag := supportedTags[i]
		for key, en := range messages[Default] {
			msg := en
			if tr, ok := messages[code][key]; ok {
				msg = tr
			}
			if err := builder.SetString(tag, key, msg); err != nil {
				panic("i18n: registering " + code + "/" + key + ": " + err.Error())
			}
		}
		printers[code] = message.NewPrinter(tag, message.Catalog(builder))
	}
}

// Supported returns the supported language codes, default first.
func Supported() []string {
	out := make([]string, len(supportedCodes))
	copy(out, supportedCodes)
	return out
}

// Match resolves a BCP 47 tag (or a POSIX locale such as "fr_CA.UTF-8") to
// a supported language code.
func Match(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, ".@"); i >= 0 {
		tag = tag[:i]
	}
	tag = strings.ReplaceAll(tag, "_", "-")
	if tag == "" || strings.EqualFold(tag, "C") || strings.EqualFold(tag, "POSIX") {
		return Default
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return Default
	}
	_, idx, conf := tagMatcher.Match(parsed)
	if conf == language.No {
		return Default
	}
	return supportedCodes[idx]
}

// FromEnvironment picks a language from LC_ALL, LC_MESSAGES or LANG.
func FromEnvironment() string {
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(k); v != "" {
			return Match(v)
		}
	}
	return Default
}

// T returns the string for key in lang. Unknown languages resolve to
// English; unknown keys render as the key itself.
func T(lang, key string) string {
	p, ok := printers[lang]
	if !ok {
		p = printers[Match(lang)]
	}
	return p.Sprintf(key)
}
