package templates

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcount/calcount-api/config"
)

func testConfig() *config.Config {
	return &config.Config{AppName: "CalCount", CompanyName: "CalCount Inc", AppURL: "https://app.example/"}
}

func TestFriendRequestSentData(t *testing.T) {
	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.FixedZone("WIB", 7*3600))
	data := NewFriendRequestSentData(testConfig(), "Bob", "bob@example.com", "alice", " Alice Smith ", WithTime(at))

	assert.Equal(t, FriendRequestSent, data["Type"])
	assert.Equal(t, "alice", data["FriendUsername"])
	assert.Equal(t, "Alice Smith", data["FriendFullName"])
	assert.Equal(t, "https://app.example/friends/requests", data["ActionURL"])
	assert.Equal(t, "01 June 2024, 02:30", data["Time"])

	subject, text, html, err := Render(FriendRequestSent, data)
	require.NoError(t, err)
	assert.Equal(t, "alice wants to be your friend on CalCount", strings.TrimSpace(subject))
	assert.Contains(t, text, "Hi Bob,")
	assert.Contains(t, text, "Alice Smith (@alice)")
	assert.Contains(t, text, "on 01 June 2024, 02:30 UTC")
	assert.Contains(t, html, "https://app.example/friends/requests")
}

func TestFriendRequestAcceptedData(t *testing.T) {
	data := NewFriendRequestAcceptedData(testConfig(), "Alice", "alice@example.com", "bob", "")

	assert.Equal(t, "https://app.example/friends", data["ActionURL"])
	subject, text, _, err := Render(FriendRequestAccepted, data)
	require.NoError(t, err)
	assert.Equal(t, "bob accepted your friend request", strings.TrimSpace(subject))
	// full name falls back to the username
	assert.Contains(t, text, "bob (@bob) accepted")
	assert.NotContains(t, text, "UTC")
}

func TestRenderHTML_EscapesInput(t *testing.T) {
	data := NewFriendRequestSentData(testConfig(), "Bob", "bob@example.com", "alice", "<script>x</script>")
	html, err := RenderHTML(FriendRequestSent, data)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestKnownAndMissing(t *testing.T) {
	assert.True(t, Known(FriendRequestSent))
	assert.True(t, Known(FriendRequestAccepted))
	assert.False(t, Known("password_reset"))

	_, _, _, err := Render("password_reset", map[string]any{})
	assert.Error(t, err)
}

func TestAppLink(t *testing.T) {
	assert.Equal(t, "", appLink("", "friends"))
	assert.Equal(t, "https://x.example/a/b", appLink("https://x.example", "a", "b"))
}
