// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"github.com/jeranaias/sessionguard/internal/session"
)

func TestEveryKeyTranslatedForEveryLocale(t *testing.T) {
	for _, key := range Keys() {
		for _, tag := range Supported {
			msg, ok := messages[key][tag]
			assert.True(t, ok, "missing %s for %s", key, tag)
			assert.NotEmpty(t, msg)
		}
	}
}

func TestTranslator_T(t *testing.T) {
	tests := []struct {
		locale string
		key    string
		want   string
	}{
		{"en", session.KeySessionLogOut, messages[session.KeySessionLogOut][language.English]},
		{"fr", session.KeySessionExtended, "Votre session a été prolongée."},
		{"es-MX", session.KeyErrorOccurred, "Se produjo un error. Inténtelo de nuevo."},
		{"zh-CN", session.KeySessionExtended, "您的会话已延长。"},
		{"de", session.KeySessionExtended, "Your session has been extended."},
		{"not a locale", session.KeySessionExtended, "Your session has been extended."},
		{"fr", "unknownKey", "unknownKey"},
	}
	for _, tt := range tests {
		t.Run(tt.locale+"/"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.locale).T(tt.key))
		})
	}
}

func TestMatch(t *testing.T) {
	assert.Equal(t, language.Hindi, Match("hi-IN"))
	assert.Equal(t, language.English, Match(""))
	assert.Equal(t, language.French, New("fr-CA").Tag())
}
