package indicator

import (
	"github.com/rbright/hark/internal/i18n"
)

type messageKey int

const (
	msgListening messageKey = iota + 1
	msgNetwork
	msgBlocked
	msgDenied
	msgError
)

var messageWords = map[messageKey]*i18n.Word{
	msgListening: i18n.MustWord(map[string]string{
		"en": "Listening…",
		"de": "Höre zu…",
		"fr": "À l'écoute…",
		"es": "Escuchando…",
		"ja": "聞き取り中…",
	}),
	msgNetwork: i18n.MustWord(map[string]string{
		"en": "Speech service unreachable",
		"de": "Sprachdienst nicht erreichbar",
		"fr": "Service vocal injoignable",
		"es": "Servicio de voz no disponible",
		"ja": "音声サービスに接続できません",
	}),
	msgBlocked: i18n.MustWord(map[string]string{
		"en": "Microphone access is blocked",
		"de": "Mikrofonzugriff ist blockiert",
		"fr": "L'accès au micro est bloqué",
		"es": "El acceso al micrófono está bloqueado",
		"ja": "マイクへのアクセスがブロックされています",
	}),
	msgDenied: i18n.MustWord(map[string]string{
		"en": "Microphone permission denied",
		"de": "Mikrofonberechtigung verweigert",
		"fr": "Permission du micro refusée",
		"es": "Permiso de micrófono denegado",
		"ja": "マイクの使用が拒否されました",
	}),
	msgError: i18n.MustWord(map[string]string{
		"en": "Speech recognition error",
		"de": "Fehler bei der Spracherkennung",
		"fr": "Erreur de reconnaissance vocale",
		"es": "Error de reconocimiento de voz",
		"ja": "音声認識エラー",
	}),
}

// localizedMessage resolves key for lang, falling back to English.
func localizedMessage(key messageKey, lang string) string {
	word, ok := messageWords[key]
	if !ok {
		word = messageWords[msgError]
	}
	if text, err := word.Resolve(lang); err == nil {
		return text
	}
	text, _ := word.Resolve("en")
	return text
}
