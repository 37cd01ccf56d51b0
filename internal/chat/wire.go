package chat

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

const timeLayout = "15:04:05"

const (
	relayPrefix    = "FILE_INCOMING"
	relaySeparator = "|"
)

const (
	privUsage       = "Error: Uso: /priv <ID> <mensaje>"
	privFormatError = "Error: Formato incorrecto. Uso: /priv <ID> <mensaje>"
	fileUsage       = "Error: Uso: /file <nombre_archivo> <contenido_base64>"
	noActiveRoom    = "Error: No estás en un chat activo."
)

var ErrNotRelayFrame = errors.New("not a file relay frame")

var menuLines = []string{
	"Menu:",
	"1 - Listar usuarios",
	"2 - Listar chats",
	"3 - Crear chat grupal",
	"4 - Listar mis chats y entrar",
	"6 - Salir de chat grupal",
	"5 - Salir",
	"Escribe una opción:",
}

// MenuText is the menu block, newline terminated.
func MenuText() string {
	return block(menuLines...)
}

func WelcomeText(name string) string {
	return block("Bienvenido al servidor. Tu usuario: "+name) + MenuText()
}

// ChatLine formats a room message as stored in history.
func ChatLine(sender string, at time.Time, text string) string {
	return fmt.Sprintf("%s - [%s] : %s", sender, at.Format(timeLayout), text)
}

// PrivateLine formats a private message as seen by its recipient.
func PrivateLine(sender string, at time.Time, text string) string {
	return fmt.Sprintf("[PRIVADO de %s - %s] : %s", sender, at.Format(timeLayout), text)
}

func privateConfirmation(recipient string) string {
	return fmt.Sprintf("[PRIVADO a %s] Enviado.", recipient)
}

func recipientNotFound(id int) string {
	return fmt.Sprintf("Error: ID %d no encontrado o no conectado.", id)
}

func joinNotice(name string) string       { return name + " se unió al chat" }
func leaveNotice(name string) string      { return name + " ha salido del chat" }
func disconnectNotice(name string) string { return name + " se ha desconectado" }
func roomNotFound(name string) string     { return "Chat no encontrado: " + name }

func presenceLine(u *User) string {
	if u.Active {
		return u.Name + " está en línea"
	}
	return u.Name + " está desconectado"
}

// RelayFrame builds the file relay line FILE_INCOMING|sender|name|payload.
func RelayFrame(sender, fileName, payload string) string {
	return strings.Join([]string{relayPrefix, sender, fileName, payload}, relaySeparator)
}

// RelayFile is a decoded file relay frame.
type RelayFile struct {
	Sender string
	Name   string
	Data   []byte
}

// DecodeRelayFrame parses a relay frame as a receiving client would: the
// payload is sanitised with SanitizeBase64 before decoding.
func DecodeRelayFrame(line string) (RelayFile, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), relayPrefix+relaySeparator)
	if !ok {
		return RelayFile{}, ErrNotRelayFrame
	}
	parts := strings.SplitN(rest, relaySeparator, 3)
	if len(parts) != 3 {
		return RelayFile{}, fmt.Errorf("relay frame has %d fields: %w", len(parts)+1, ErrNotRelayFrame)
	}

	data, err := base64.StdEncoding.DecodeString(SanitizeBase64(parts[2]))
	if err != nil {
		return RelayFile{}, fmt.Errorf("decode relay payload %q: %w", parts[1], err)
	}
	return RelayFile{Sender: parts[0], Name: parts[1], Data: data}, nil
}

// SanitizeBase64 drops every rune outside the standard base64 alphabet,
// whitespace included.
func SanitizeBase64(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/', r == '=':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// block joins lines into a newline terminated chunk.
func block(lines ...string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
