// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package i18n translates the notification keys emitted by the session
// controller.
//
// Messages live in an x/text catalog. Lookups for a locale without a
// translation fall back to English, and unknown keys are returned as-is.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/jeranaias/sessionguard/internal/session"
)

// Supported lists the locales with a full message set. English comes first
// and is the matcher's default.
var Supported = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.Hindi,
	language.Chinese,
}

var messages = map[string]map[language.Tag]string{
	session.KeySessionWarning: {
		language.English: "Your session will expire soon due to inactivity. Interact with the page to stay signed in.",
		language.Spanish: "Su sesión expirará pronto por inactividad. Interactúe con la página para mantener la sesión.",
		language.French:  "Votre session va bientôt expirer pour cause d'inactivité. Interagissez avec la page pour rester connecté.",
		language.Hindi:   "निष्क्रियता के कारण आपका सत्र जल्द ही समाप्त हो जाएगा। साइन इन रहने के लिए पेज का उपयोग करें।",
		language.Chinese: "由于长时间未操作，您的会话即将过期。请与页面交互以保持登录。",
	},
	session.KeySessionLogOut: {
		language.English: "Your session has expired due to inactivity. Please sign in again.",
		language.Spanish: "Su sesión ha expirado por inactividad. Inicie sesión de nuevo.",
		language.French:  "Votre session a expiré pour cause d'inactivité. Veuillez vous reconnecter.",
		language.Hindi:   "निष्क्रियता के कारण आपका सत्र समाप्त हो गया है। कृपया फिर से साइन इन करें।",
		language.Chinese: "由于长时间未操作，您的会话已过期。请重新登录。",
	},
	session.KeyErrorOccurred: {
		language.English: "An error occurred. Please try again.",
		language.Spanish: "Se produjo un error. Inténtelo de nuevo.",
		language.French:  "Une erreur s'est produite. Veuillez réessayer.",
		language.Hindi:   "एक त्रुटि हुई। कृपया पुनः प्रयास करें।",
		language.Chinese: "发生错误，请重试。",
	},
	session.KeySessionExtended: {
		language.English: "Your session has been extended.",
		language.Spanish: "Su sesión se ha extendido.",
		language.French:  "Votre session a été prolongée.",
		language.Hindi:   "आपका सत्र बढ़ा दिया गया है।",
		language.Chinese: "您的会话已延长。",
	},
}

var (
	cat     = buildCatalog()
	matcher = language.NewMatcher(Supported)
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, byTag := range messages {
		for tag, msg := range byTag {
			if err := b.SetString(tag, key, msg); err != nil {
				panic("i18n: " + err.Error())
			}
		}
	}
	return b
}

// Translator renders message keys for one locale.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Translator for locale (a BCP 47 tag such as "fr" or
// "zh-CN"). Unparseable or unsupported locales resolve to English.
func New(locale string) *Translator {
	tag := Match(locale)
	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(cat)),
	}
}

// Match resolves locale to the closest supported tag.
func Match(locale string) language.Tag {
	requested, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	_, idx, conf := matcher.Match(requested)
	if conf == language.No {
		return language.English
	}
	return Supported[idx]
}

// Tag returns the resolved locale.
func (t *Translator) Tag() language.Tag {
	return t.tag
}

// T translates key. Keys with no catalog entry come back unchanged.
func (t *Translator) T(key string) string {
	if _, ok := messages[key]; !ok {
		return key
	}
	return t.printer.Sprintf(key)
}

// Keys returns the translatable keys.
func Keys() []string {
	return []string{
		session.KeySessionWarning,
		session.KeySessionLogOut,
		session.KeyErrorOccurred,
		session.KeySessionExtended,
	}
}
