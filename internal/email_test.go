package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"printdock.app/api/internal/database"
)

func TestWelcomeMessage(t *testing.T) {
	user := &database.User{Firstname: "Grace", Email: "grace@example.com"}

	msg, err := welcomeMessage("hello@printdock.app", "https://printdock.app", user)
	require.NoError(t, err)

	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"grace@example.com"}, rcpts)
	assert.Equal(t, []string{"Welcome to PrintDock"}, msg.GetGenHeader(mail.HeaderSubject))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Hi Grace,")
	assert.Contains(t, buf.String(), "https://printdock.app")
}

func TestWelcomeMessage_InvalidAddress(t *testing.T) {
	_, err := welcomeMessage("not an address", "/", &database.User{Email: "grace@example.com"})
	assert.Error(t, err)

	_, err = welcomeMessage("hello@printdock.app", "/", &database.User{Email: "nope"})
	assert.Error(t, err)
}
