package email

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

// TakeURL builds the link a student follows to redeem an invite
func TakeURL(baseURL string, testID uint, token string) string {
	return fmt.Sprintf("%s/take/%d?token=%s", strings.TrimRight(baseURL, "/"), testID, url.QueryEscape(token))
}

// InviteEmail renders the subject and body of an invitation
func InviteEmail(testName, inviterName, link string) (subject, body string) {
	subject = fmt.Sprintf("You are invited to take %q", testName)

	inviter := "Your instructor"
	if inviterName != "" {
		inviter = html.EscapeString(inviterName)
	}

	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<p>%s has invited you to take the test <strong>%s</strong>.</p>",
		inviter, html.EscapeString(testName))
	fmt.Fprintf(&b, `<p><a href="%s">Start the test</a></p>`, html.EscapeString(link))
	b.WriteString("<p>This link can be used once. Do not share it.</p>")
	b.WriteString("</body></html>")
	return subject, b.String()
}
